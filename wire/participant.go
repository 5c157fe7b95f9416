// Copyright 2025 PolyCrypt GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wire

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stellar/go/xdr"

	"github.com/statechannels/nitro-protocol/wallet"
	"github.com/statechannels/nitro-protocol/wire/scval"
)

const (
	SymbolSignatureR xdr.ScSymbol = "r"
	SymbolSignatureS xdr.ScSymbol = "s"
	SymbolSignatureV xdr.ScSymbol = "v"
)

// WrapAddress encodes an address as 20 bytes.
func WrapAddress(addr common.Address) (xdr.ScVal, error) {
	return scval.WrapScBytes(addr.Bytes())
}

// AddressFromScVal decodes an address produced by WrapAddress.
func AddressFromScVal(v xdr.ScVal) (common.Address, error) {
	b, ok := v.GetBytes()
	if !ok {
		return common.Address{}, errors.New("expected bytes")
	}
	if len(b) != common.AddressLength {
		return common.Address{}, errors.Errorf("expected length of %d bytes, got %d", common.AddressLength, len(b))
	}
	return common.BytesToAddress(b), nil
}

// Signature is the xdr form of a wallet.Signature.
type Signature struct {
	wallet.Signature
}

func (s Signature) ToScVal() (xdr.ScVal, error) {
	m, err := MakeSymbolScMap(
		[]xdr.ScSymbol{SymbolSignatureR, SymbolSignatureS, SymbolSignatureV},
		[]xdr.ScVal{
			scval.MustWrapScBytes(s.R.Bytes()),
			scval.MustWrapScBytes(s.S.Bytes()),
			scval.MustWrapUint64(xdr.Uint64(s.V)),
		},
	)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScMap(m)
}

func (s *Signature) FromScVal(v xdr.ScVal) error {
	m, err := ExpectMap(v, 3)
	if err != nil {
		return err
	}
	r, err := GetBytes(SymbolSignatureR, m, common.HashLength)
	if err != nil {
		return err
	}
	sv, err := GetBytes(SymbolSignatureS, m, common.HashLength)
	if err != nil {
		return err
	}
	recID, err := GetUint64(SymbolSignatureV, m)
	if err != nil {
		return err
	}
	if recID > 0xff {
		return errors.New("recovery id out of range")
	}
	s.R = common.BytesToHash(r)
	s.S = common.BytesToHash(sv)
	s.V = uint8(recID)
	return nil
}

func (s Signature) MarshalBinary() ([]byte, error) {
	v, err := s.ToScVal()
	if err != nil {
		return nil, err
	}
	return MarshalScVal(v)
}

func (s *Signature) UnmarshalBinary(data []byte) error {
	v, err := UnmarshalScVal(data)
	if err != nil {
		return err
	}
	return s.FromScVal(v)
}
