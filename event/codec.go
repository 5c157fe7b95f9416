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

package event

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stellar/go/xdr"

	"github.com/statechannels/nitro-protocol/wire"
	"github.com/statechannels/nitro-protocol/wire/scval"
)

const (
	SymbolTopic xdr.ScSymbol = "topic"
	SymbolBody  xdr.ScSymbol = "body"

	SymbolChannelID     xdr.ScSymbol = "channel_id"
	SymbolTurnNumRecord xdr.ScSymbol = "turn_num_record"
	SymbolFinalizesAt   xdr.ScSymbol = "finalizes_at"
	SymbolChallenger    xdr.ScSymbol = "challenger"
	SymbolIsFinal       xdr.ScSymbol = "is_final"
	SymbolFixedPart     xdr.ScSymbol = "fixed_part"
	SymbolVariableParts xdr.ScSymbol = "variable_parts"
	SymbolAssetHolder   xdr.ScSymbol = "asset_holder"
	SymbolOutcomeHash   xdr.ScSymbol = "outcome_hash"
	SymbolDestination   xdr.ScSymbol = "destination"
	SymbolAmount        xdr.ScSymbol = "amount"
	SymbolHoldings      xdr.ScSymbol = "holdings"
	SymbolParticipant   xdr.ScSymbol = "participant"
)

func wrapHash(h [32]byte) xdr.ScVal {
	return scval.MustWrapScBytes(h[:])
}

func makeBody(keys []xdr.ScSymbol, values []xdr.ScVal) (xdr.ScVal, error) {
	m, err := wire.MakeSymbolScMap(keys, values)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScMap(m)
}

func (e *ForceMoveEvent) ToScVal() (xdr.ScVal, error) {
	challenger, err := wire.WrapAddress(e.Challenger)
	if err != nil {
		return xdr.ScVal{}, err
	}
	fp, err := wire.FixedPart{FixedPart: e.FixedPart}.ToScVal()
	if err != nil {
		return xdr.ScVal{}, err
	}
	vps, err := wire.VariableParts(e.VariableParts)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return makeBody(
		[]xdr.ScSymbol{SymbolChannelID, SymbolTurnNumRecord, SymbolFinalizesAt, SymbolChallenger, SymbolIsFinal, SymbolFixedPart, SymbolVariableParts},
		[]xdr.ScVal{
			wrapHash(e.ChannelID),
			scval.MustWrapUint64(xdr.Uint64(e.TurnNumRecord)),
			scval.MustWrapUint64(xdr.Uint64(e.FinalizesAt)),
			challenger,
			scval.MustWrapBool(e.IsFinal),
			fp,
			vps,
		},
	)
}

func (e *ChallengeClearedEvent) ToScVal() (xdr.ScVal, error) {
	return makeBody(
		[]xdr.ScSymbol{SymbolChannelID, SymbolTurnNumRecord},
		[]xdr.ScVal{wrapHash(e.ChannelID), scval.MustWrapUint64(xdr.Uint64(e.NewTurnNumRecord))},
	)
}

func (e *ConcludedEvent) ToScVal() (xdr.ScVal, error) {
	return makeBody([]xdr.ScSymbol{SymbolChannelID}, []xdr.ScVal{wrapHash(e.ChannelID)})
}

func (e *OutcomePushedEvent) ToScVal() (xdr.ScVal, error) {
	holder, err := wire.WrapAddress(e.AssetHolder)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return makeBody(
		[]xdr.ScSymbol{SymbolChannelID, SymbolAssetHolder, SymbolOutcomeHash},
		[]xdr.ScVal{wrapHash(e.ChannelID), holder, wrapHash(e.OutcomeHash)},
	)
}

func (e *DepositedEvent) ToScVal() (xdr.ScVal, error) {
	holder, err := wire.WrapAddress(e.AssetHolder)
	if err != nil {
		return xdr.ScVal{}, err
	}
	deposited, err := wire.MakeAmount(e.AmountDeposited).ToScVal()
	if err != nil {
		return xdr.ScVal{}, err
	}
	holdings, err := wire.MakeAmount(e.DestinationHoldings).ToScVal()
	if err != nil {
		return xdr.ScVal{}, err
	}
	return makeBody(
		[]xdr.ScSymbol{SymbolAssetHolder, SymbolDestination, SymbolAmount, SymbolHoldings},
		[]xdr.ScVal{holder, wrapHash(e.Destination), deposited, holdings},
	)
}

func (e *AssetTransferredEvent) ToScVal() (xdr.ScVal, error) {
	holder, err := wire.WrapAddress(e.AssetHolder)
	if err != nil {
		return xdr.ScVal{}, err
	}
	amount, err := wire.MakeAmount(e.Amount).ToScVal()
	if err != nil {
		return xdr.ScVal{}, err
	}
	return makeBody(
		[]xdr.ScSymbol{SymbolAssetHolder, SymbolChannelID, SymbolDestination, SymbolAmount},
		[]xdr.ScVal{holder, wrapHash(e.ChannelID), wrapHash(e.Destination), amount},
	)
}

func (e *WithdrawnEvent) ToScVal() (xdr.ScVal, error) {
	holder, err := wire.WrapAddress(e.AssetHolder)
	if err != nil {
		return xdr.ScVal{}, err
	}
	participant, err := wire.WrapAddress(e.Participant)
	if err != nil {
		return xdr.ScVal{}, err
	}
	destination, err := wire.WrapAddress(e.Destination)
	if err != nil {
		return xdr.ScVal{}, err
	}
	amount, err := wire.MakeAmount(e.Amount).ToScVal()
	if err != nil {
		return xdr.ScVal{}, err
	}
	return makeBody(
		[]xdr.ScSymbol{SymbolAssetHolder, SymbolParticipant, SymbolDestination, SymbolAmount},
		[]xdr.ScVal{holder, participant, destination, amount},
	)
}

// Encode serializes the event together with its topic.
func Encode(e Event) ([]byte, error) {
	topic, err := e.Type().Topic()
	if err != nil {
		return nil, err
	}
	body, err := e.ToScVal()
	if err != nil {
		return nil, errors.WithMessagef(err, "encoding %s event", topic)
	}
	m, err := wire.MakeSymbolScMap(
		[]xdr.ScSymbol{SymbolTopic, SymbolBody},
		[]xdr.ScVal{scval.MustWrapScSymbol(topic), body},
	)
	if err != nil {
		return nil, err
	}
	return wire.MarshalScVal(scval.MustWrapScMap(m))
}

// Decode parses an event produced by Encode.
func Decode(data []byte) (Event, error) {
	v, err := wire.UnmarshalScVal(data)
	if err != nil {
		return nil, errors.WithMessage(ErrEventDecode, err.Error())
	}
	m, err := wire.ExpectMap(v, 2)
	if err != nil {
		return nil, errors.WithMessage(ErrEventDecode, err.Error())
	}
	topicVal, err := wire.GetMapValue(SymbolTopic, m)
	if err != nil {
		return nil, errors.WithMessage(ErrEventDecode, err.Error())
	}
	topic, ok := topicVal.GetSym()
	if !ok {
		return nil, errors.WithMessage(ErrEventDecode, "expected topic symbol")
	}
	body, err := wire.GetMapValue(SymbolBody, m)
	if err != nil {
		return nil, errors.WithMessage(ErrEventDecode, err.Error())
	}
	ev, err := decodeBody(topic, body)
	if err != nil && !errors.Is(err, ErrEventUnsupported) {
		return nil, errors.WithMessage(ErrEventDecode, err.Error())
	}
	return ev, err
}

//nolint:funlen
func decodeBody(topic xdr.ScSymbol, body xdr.ScVal) (Event, error) {
	var typ EventType = -1
	for t, s := range eventTopics {
		if s == topic {
			typ = t
		}
	}
	switch typ {
	case EventTypeForceMove:
		m, err := wire.ExpectMap(body, 7)
		if err != nil {
			return nil, err
		}
		e := &ForceMoveEvent{}
		if e.ChannelID, err = getHash(SymbolChannelID, m); err != nil {
			return nil, err
		}
		if e.TurnNumRecord, err = wire.GetUint64(SymbolTurnNumRecord, m); err != nil {
			return nil, err
		}
		if e.FinalizesAt, err = wire.GetUint64(SymbolFinalizesAt, m); err != nil {
			return nil, err
		}
		if e.Challenger, err = getAddress(SymbolChallenger, m); err != nil {
			return nil, err
		}
		if e.IsFinal, err = wire.GetBool(SymbolIsFinal, m); err != nil {
			return nil, err
		}
		fpVal, err := wire.GetMapValue(SymbolFixedPart, m)
		if err != nil {
			return nil, err
		}
		var fp wire.FixedPart
		if err := fp.FromScVal(fpVal); err != nil {
			return nil, err
		}
		e.FixedPart = fp.FixedPart
		vpsVal, err := wire.GetMapValue(SymbolVariableParts, m)
		if err != nil {
			return nil, err
		}
		if e.VariableParts, err = wire.VariablePartsFromScVal(vpsVal); err != nil {
			return nil, err
		}
		return e, nil

	case EventTypeChallengeCleared:
		m, err := wire.ExpectMap(body, 2)
		if err != nil {
			return nil, err
		}
		e := &ChallengeClearedEvent{}
		if e.ChannelID, err = getHash(SymbolChannelID, m); err != nil {
			return nil, err
		}
		if e.NewTurnNumRecord, err = wire.GetUint64(SymbolTurnNumRecord, m); err != nil {
			return nil, err
		}
		return e, nil

	case EventTypeConcluded:
		m, err := wire.ExpectMap(body, 1)
		if err != nil {
			return nil, err
		}
		e := &ConcludedEvent{}
		e.ChannelID, err = getHash(SymbolChannelID, m)
		return e, err

	case EventTypeOutcomePushed:
		m, err := wire.ExpectMap(body, 3)
		if err != nil {
			return nil, err
		}
		e := &OutcomePushedEvent{}
		if e.ChannelID, err = getHash(SymbolChannelID, m); err != nil {
			return nil, err
		}
		if e.AssetHolder, err = getAddress(SymbolAssetHolder, m); err != nil {
			return nil, err
		}
		e.OutcomeHash, err = getHash(SymbolOutcomeHash, m)
		return e, err

	case EventTypeDeposited:
		m, err := wire.ExpectMap(body, 4)
		if err != nil {
			return nil, err
		}
		e := &DepositedEvent{}
		if e.AssetHolder, err = getAddress(SymbolAssetHolder, m); err != nil {
			return nil, err
		}
		if e.Destination, err = getHash(SymbolDestination, m); err != nil {
			return nil, err
		}
		if e.AmountDeposited, err = getAmount(SymbolAmount, m); err != nil {
			return nil, err
		}
		e.DestinationHoldings, err = getAmount(SymbolHoldings, m)
		return e, err

	case EventTypeAssetTransferred:
		m, err := wire.ExpectMap(body, 4)
		if err != nil {
			return nil, err
		}
		e := &AssetTransferredEvent{}
		if e.AssetHolder, err = getAddress(SymbolAssetHolder, m); err != nil {
			return nil, err
		}
		if e.ChannelID, err = getHash(SymbolChannelID, m); err != nil {
			return nil, err
		}
		if e.Destination, err = getHash(SymbolDestination, m); err != nil {
			return nil, err
		}
		e.Amount, err = getAmount(SymbolAmount, m)
		return e, err

	case EventTypeWithdrawn:
		m, err := wire.ExpectMap(body, 4)
		if err != nil {
			return nil, err
		}
		e := &WithdrawnEvent{}
		if e.AssetHolder, err = getAddress(SymbolAssetHolder, m); err != nil {
			return nil, err
		}
		if e.Participant, err = getAddress(SymbolParticipant, m); err != nil {
			return nil, err
		}
		if e.Destination, err = getAddress(SymbolDestination, m); err != nil {
			return nil, err
		}
		e.Amount, err = getAmount(SymbolAmount, m)
		return e, err
	}
	return nil, ErrEventUnsupported
}

func getHash(key xdr.ScSymbol, m xdr.ScMap) ([32]byte, error) {
	b, err := wire.GetBytes(key, m, common.HashLength)
	if err != nil {
		return [32]byte{}, err
	}
	var h [32]byte
	copy(h[:], b)
	return h, nil
}

func getAddress(key xdr.ScSymbol, m xdr.ScMap) (common.Address, error) {
	v, err := wire.GetMapValue(key, m)
	if err != nil {
		return common.Address{}, err
	}
	return wire.AddressFromScVal(v)
}

func getAmount(key xdr.ScSymbol, m xdr.ScMap) (*big.Int, error) {
	v, err := wire.GetMapValue(key, m)
	if err != nil {
		return nil, err
	}
	var a wire.Amount
	if err := a.FromScVal(v); err != nil {
		return nil, err
	}
	return a.Int, nil
}
