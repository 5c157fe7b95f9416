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
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stellar/go/xdr"

	"github.com/statechannels/nitro-protocol/wire/scval"
)

// Amount is a non-negative token amount that fits into 256 bits.
type Amount struct {
	*big.Int
}

// MakeAmount wraps i. A nil i is treated as zero.
func MakeAmount(i *big.Int) Amount {
	if i == nil {
		i = new(big.Int)
	}
	return Amount{i}
}

// MakeUInt256Parts splits i into the four 64 bit limbs of a xdr.UInt256Parts.
func MakeUInt256Parts(i *big.Int) (xdr.UInt256Parts, error) {
	if i.Sign() < 0 {
		return xdr.UInt256Parts{}, errors.New("expected non-negative amount")
	}
	u, overflow := uint256.FromBig(i)
	if overflow {
		return xdr.UInt256Parts{}, errors.New("amount too large")
	}
	return xdr.UInt256Parts{
		HiHi: xdr.Uint64(u[3]),
		HiLo: xdr.Uint64(u[2]),
		LoHi: xdr.Uint64(u[1]),
		LoLo: xdr.Uint64(u[0]),
	}, nil
}

// ToBigInt joins the limbs of a xdr.UInt256Parts.
func ToBigInt(p xdr.UInt256Parts) *big.Int {
	u := uint256.Int{uint64(p.LoLo), uint64(p.LoHi), uint64(p.HiLo), uint64(p.HiHi)}
	return u.ToBig()
}

func (a Amount) ToScVal() (xdr.ScVal, error) {
	parts, err := MakeUInt256Parts(MakeAmount(a.Int).Int)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapUInt256Parts(parts)
}

func (a *Amount) FromScVal(v xdr.ScVal) error {
	parts, ok := v.GetU256()
	if !ok {
		return errors.New("expected u256")
	}
	a.Int = ToBigInt(parts)
	return nil
}

func (a Amount) MarshalBinary() ([]byte, error) {
	v, err := a.ToScVal()
	if err != nil {
		return nil, err
	}
	return MarshalScVal(v)
}

func (a *Amount) UnmarshalBinary(data []byte) error {
	v, err := UnmarshalScVal(data)
	if err != nil {
		return err
	}
	return a.FromScVal(v)
}

func getAmount(key xdr.ScSymbol, m xdr.ScMap) (*big.Int, error) {
	v, err := GetMapValue(key, m)
	if err != nil {
		return nil, err
	}
	var a Amount
	if err := a.FromScVal(v); err != nil {
		return nil, errors.WithMessage(err, string(key))
	}
	return a.Int, nil
}
