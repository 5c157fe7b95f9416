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
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stellar/go/xdr"
	pchannel "perun.network/go-perun/channel"

	"github.com/statechannels/nitro-protocol/channel/types"
)

type EventType int

const (
	EventTypeForceMove        EventType = iota // challenge registered
	EventTypeChallengeCleared                  // challenge cleared by respond, refute or checkpoint
	EventTypeConcluded                         // channel finalized by final states
	EventTypeOutcomePushed                     // outcome hash handed to an asset holder
	EventTypeDeposited                         // holdings increased
	EventTypeAssetTransferred                  // holdings moved to a destination
	EventTypeWithdrawn                         // holdings paid out externally
)

var (
	eventTopics = map[EventType]xdr.ScSymbol{
		EventTypeForceMove:        "force_move",
		EventTypeChallengeCleared: "cleared",
		EventTypeConcluded:        "concluded",
		EventTypeOutcomePushed:    "pushed",
		EventTypeDeposited:        "deposited",
		EventTypeAssetTransferred: "transferred",
		EventTypeWithdrawn:        "withdrawn",
	}

	ErrEventUnsupported = errors.New("this type of event is unsupported")
	ErrEventDecode      = errors.New("error while decoding events")
)

func (t EventType) String() string {
	if s, ok := eventTopics[t]; ok {
		return string(s)
	}
	return "unknown"
}

// Topic returns the symbol the event type is published under.
func (t EventType) Topic() (xdr.ScSymbol, error) {
	s, ok := eventTopics[t]
	if !ok {
		return "", ErrEventUnsupported
	}
	return s, nil
}

type (
	// Event is emitted after a successful operation.
	Event interface {
		Type() EventType
		ToScVal() (xdr.ScVal, error)
	}

	// ForceMoveEvent is emitted when a challenge is registered.
	ForceMoveEvent struct {
		ChannelID     pchannel.ID
		TurnNumRecord uint64
		FinalizesAt   uint64
		Challenger    common.Address
		IsFinal       bool
		FixedPart     types.FixedPart
		VariableParts []types.VariablePart
	}

	// ChallengeClearedEvent is emitted when a challenge is cleared or a
	// checkpoint raises the turn number record.
	ChallengeClearedEvent struct {
		ChannelID        pchannel.ID
		NewTurnNumRecord uint64
	}

	// ConcludedEvent is emitted when a channel is finalized with final states.
	ConcludedEvent struct {
		ChannelID pchannel.ID
	}

	// OutcomePushedEvent is emitted when an outcome hash is pushed to an
	// asset holder.
	OutcomePushedEvent struct {
		ChannelID   pchannel.ID
		AssetHolder common.Address
		OutcomeHash common.Hash
	}

	// DepositedEvent is emitted on every deposit, even if nothing was
	// credited.
	DepositedEvent struct {
		AssetHolder         common.Address
		Destination         types.Destination
		AmountDeposited     *big.Int
		DestinationHoldings *big.Int
	}

	// AssetTransferredEvent is emitted for every payout from a channel.
	AssetTransferredEvent struct {
		AssetHolder common.Address
		ChannelID   pchannel.ID
		Destination types.Destination
		Amount      *big.Int
	}

	// WithdrawnEvent is emitted when holdings leave the asset holder.
	WithdrawnEvent struct {
		AssetHolder common.Address
		Participant common.Address
		Destination common.Address
		Amount      *big.Int
	}
)

func (*ForceMoveEvent) Type() EventType        { return EventTypeForceMove }
func (*ChallengeClearedEvent) Type() EventType { return EventTypeChallengeCleared }
func (*ConcludedEvent) Type() EventType        { return EventTypeConcluded }
func (*OutcomePushedEvent) Type() EventType    { return EventTypeOutcomePushed }
func (*DepositedEvent) Type() EventType        { return EventTypeDeposited }
func (*AssetTransferredEvent) Type() EventType { return EventTypeAssetTransferred }
func (*WithdrawnEvent) Type() EventType        { return EventTypeWithdrawn }

// Timeout returns the timeout after which the challenge is binding.
func (e *ForceMoveEvent) Timeout() pchannel.Timeout {
	return MakeTimeout(e.FinalizesAt)
}
