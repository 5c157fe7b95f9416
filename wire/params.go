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

	"github.com/statechannels/nitro-protocol/channel/types"
	"github.com/statechannels/nitro-protocol/wire/scval"
)

const (
	SymbolFixedPartChainID           xdr.ScSymbol = "chain_id"
	SymbolFixedPartParticipants      xdr.ScSymbol = "participants"
	SymbolFixedPartChannelNonce      xdr.ScSymbol = "channel_nonce"
	SymbolFixedPartAppDefinition     xdr.ScSymbol = "app_definition"
	SymbolFixedPartChallengeDuration xdr.ScSymbol = "challenge_duration"
)

// FixedPart is the xdr form of a types.FixedPart.
type FixedPart struct {
	types.FixedPart
}

func (p FixedPart) ToScVal() (xdr.ScVal, error) {
	chainID, err := MakeAmount(p.ChainID).ToScVal()
	if err != nil {
		return xdr.ScVal{}, errors.WithMessage(err, "chain id")
	}
	nonce, err := MakeAmount(p.ChannelNonce).ToScVal()
	if err != nil {
		return xdr.ScVal{}, errors.WithMessage(err, "channel nonce")
	}
	parts := make(xdr.ScVec, len(p.Participants))
	for i, a := range p.Participants {
		if parts[i], err = WrapAddress(a); err != nil {
			return xdr.ScVal{}, err
		}
	}
	app, err := WrapAddress(p.AppDefinition)
	if err != nil {
		return xdr.ScVal{}, err
	}
	m, err := MakeSymbolScMap(
		[]xdr.ScSymbol{
			SymbolFixedPartChainID,
			SymbolFixedPartParticipants,
			SymbolFixedPartChannelNonce,
			SymbolFixedPartAppDefinition,
			SymbolFixedPartChallengeDuration,
		},
		[]xdr.ScVal{
			chainID,
			scval.MustWrapScVec(parts),
			nonce,
			app,
			scval.MustWrapUint64(xdr.Uint64(p.ChallengeDuration)),
		},
	)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScMap(m)
}

func (p *FixedPart) FromScVal(v xdr.ScVal) error {
	m, err := ExpectMap(v, 5)
	if err != nil {
		return err
	}
	chainID, err := getAmount(SymbolFixedPartChainID, m)
	if err != nil {
		return err
	}
	nonce, err := getAmount(SymbolFixedPartChannelNonce, m)
	if err != nil {
		return err
	}
	partsVec, err := GetVec(SymbolFixedPartParticipants, m)
	if err != nil {
		return err
	}
	parts := make([]common.Address, len(partsVec))
	for i, pv := range partsVec {
		if parts[i], err = AddressFromScVal(pv); err != nil {
			return errors.WithMessagef(err, "participant %d", i)
		}
	}
	appVal, err := GetMapValue(SymbolFixedPartAppDefinition, m)
	if err != nil {
		return err
	}
	app, err := AddressFromScVal(appVal)
	if err != nil {
		return errors.WithMessage(err, "app definition")
	}
	challengeDuration, err := GetUint64(SymbolFixedPartChallengeDuration, m)
	if err != nil {
		return err
	}
	p.FixedPart = types.FixedPart{
		ChainID:           chainID,
		Participants:      parts,
		ChannelNonce:      nonce,
		AppDefinition:     app,
		ChallengeDuration: challengeDuration,
	}
	return nil
}

func (p FixedPart) MarshalBinary() ([]byte, error) {
	v, err := p.ToScVal()
	if err != nil {
		return nil, err
	}
	return MarshalScVal(v)
}

func (p *FixedPart) UnmarshalBinary(data []byte) error {
	v, err := UnmarshalScVal(data)
	if err != nil {
		return err
	}
	return p.FromScVal(v)
}
