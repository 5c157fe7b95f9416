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

package types

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Mode is the phase of a channel as derived from its storage.
type Mode int

const (
	ModeOpen Mode = iota
	ModeChallenge
	ModeFinalized
)

func (m Mode) String() string {
	switch m {
	case ModeOpen:
		return "open"
	case ModeChallenge:
		return "challenge"
	case ModeFinalized:
		return "finalized"
	}
	return "unknown"
}

// ErrMalformedStorage is returned when encoding an open channel storage that
// carries challenge fields.
var ErrMalformedStorage = errors.New("open channel storage must not carry state, challenger or outcome")

type (
	// ChannelStorage is the record whose hash the adjudicator keeps per
	// channel. State and outcome are held as digests, zero meaning absent.
	ChannelStorage struct {
		TurnNumRecord uint64
		FinalizesAt   uint64
		StateHash     common.Hash
		Challenger    common.Address
		OutcomeHash   common.Hash
	}

	// ChannelStorageLite is the finalized projection of a ChannelStorage
	// that omits the turn number record.
	ChannelStorageLite struct {
		FinalizesAt uint64
		StateHash   common.Hash
		Challenger  common.Address
		OutcomeHash common.Hash
	}
)

// OpenStorage returns the storage of an open channel.
func OpenStorage(turnNumRecord uint64) ChannelStorage {
	return ChannelStorage{TurnNumRecord: turnNumRecord}
}

// ChallengeStorage returns the storage of a channel challenged with the
// given state.
func ChallengeStorage(turnNumRecord, finalizesAt uint64, state State, challenger common.Address) (ChannelStorage, error) {
	stateHash, err := state.Hash()
	if err != nil {
		return ChannelStorage{}, err
	}
	outcomeHash, err := HashOutcome(state.Outcome)
	if err != nil {
		return ChannelStorage{}, err
	}
	return ChannelStorage{
		TurnNumRecord: turnNumRecord,
		FinalizesAt:   finalizesAt,
		StateHash:     stateHash,
		Challenger:    challenger,
		OutcomeHash:   outcomeHash,
	}, nil
}

// FinalizedStorage returns the storage of a concluded channel. State and
// challenger are dropped, the outcome is retained.
func FinalizedStorage(finalizesAt uint64, outcomeHash common.Hash) ChannelStorage {
	return ChannelStorageLite{FinalizesAt: finalizesAt, OutcomeHash: outcomeHash}.Storage()
}

// IsOpen returns whether no challenge or finalization is recorded.
func (cs ChannelStorage) IsOpen() bool {
	return cs.FinalizesAt == 0
}

// Mode returns the phase of the channel at time now.
func (cs ChannelStorage) Mode(now uint64) Mode {
	switch {
	case cs.FinalizesAt == 0:
		return ModeOpen
	case cs.FinalizesAt <= now:
		return ModeFinalized
	default:
		return ModeChallenge
	}
}

// Valid checks the storage invariant: a channel is open if and only if
// state, challenger and outcome are absent.
func (cs ChannelStorage) Valid() error {
	if cs.FinalizesAt == 0 && (cs.StateHash != common.Hash{} || cs.Challenger != common.Address{} || cs.OutcomeHash != common.Hash{}) {
		return ErrMalformedStorage
	}
	return nil
}

// Encode abi-encodes the storage. A finalized storage, one without a state,
// is encoded with a zero challenger.
func (cs ChannelStorage) Encode() ([]byte, error) {
	if err := cs.Valid(); err != nil {
		return nil, err
	}
	challenger := cs.Challenger
	if cs.FinalizesAt != 0 && cs.StateHash == (common.Hash{}) {
		// Finalized: the challenger is not part of the record.
		challenger = common.Address{}
	}
	return pack([]abi.Type{abiChannelStorage}, channelStorageABI{
		TurnNumRecord:     bigUint(cs.TurnNumRecord),
		FinalizesAt:       bigUint(cs.FinalizesAt),
		StateHash:         cs.StateHash,
		ChallengerAddress: challenger,
		OutcomeHash:       cs.OutcomeHash,
	}), nil
}

// Hash returns the digest kept by the adjudicator.
func (cs ChannelStorage) Hash() (common.Hash, error) {
	enc, err := cs.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return Keccak256(enc), nil
}

// MustHash is Hash for storages built by the constructors of this package.
func (cs ChannelStorage) MustHash() common.Hash {
	h, err := cs.Hash()
	if err != nil {
		panic(err)
	}
	return h
}

// DecodeChannelStorage decodes a storage produced by ChannelStorage.Encode.
func DecodeChannelStorage(data []byte) (ChannelStorage, error) {
	v, err := unpackSingle(abiChannelStorage, data)
	if err != nil {
		return ChannelStorage{}, errors.WithMessage(err, "decoding channel storage")
	}
	raw := *abi.ConvertType(v, new(channelStorageABI)).(*channelStorageABI)
	if !raw.TurnNumRecord.IsUint64() || !raw.FinalizesAt.IsUint64() {
		return ChannelStorage{}, errors.New("channel storage field out of range")
	}
	cs := ChannelStorage{
		TurnNumRecord: raw.TurnNumRecord.Uint64(),
		FinalizesAt:   raw.FinalizesAt.Uint64(),
		StateHash:     raw.StateHash,
		Challenger:    raw.ChallengerAddress,
		OutcomeHash:   raw.OutcomeHash,
	}
	return cs, cs.Valid()
}

// Lite drops the turn number record.
func (cs ChannelStorage) Lite() ChannelStorageLite {
	return ChannelStorageLite{
		FinalizesAt: cs.FinalizesAt,
		StateHash:   cs.StateHash,
		Challenger:  cs.Challenger,
		OutcomeHash: cs.OutcomeHash,
	}
}

// Storage lifts the lite storage to a ChannelStorage with turn number
// record 0.
func (l ChannelStorageLite) Storage() ChannelStorage {
	return ChannelStorage{
		FinalizesAt: l.FinalizesAt,
		StateHash:   l.StateHash,
		Challenger:  l.Challenger,
		OutcomeHash: l.OutcomeHash,
	}
}

// Encode abi-encodes the lite storage.
func (l ChannelStorageLite) Encode() []byte {
	return pack([]abi.Type{abiChannelStorageLite}, channelStorageLiteABI{
		FinalizesAt:       bigUint(l.FinalizesAt),
		StateHash:         l.StateHash,
		ChallengerAddress: l.Challenger,
		OutcomeHash:       l.OutcomeHash,
	})
}

// Hash hashes the encoded lite storage.
func (l ChannelStorageLite) Hash() common.Hash {
	return Keccak256(l.Encode())
}
