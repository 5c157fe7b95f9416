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
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	pchannel "perun.network/go-perun/channel"
)

type (
	// ID identifies a channel. It is the keccak256 hash of the abi-encoded
	// Channel.
	ID = pchannel.ID

	// Destination is either a channel ID or an external address left-padded
	// with zeros.
	Destination [32]byte

	// Channel holds the parameters that determine a channel ID.
	Channel struct {
		ChainID      *big.Int
		Participants []common.Address
		ChannelNonce *big.Int
	}

	// FixedPart holds the parts of a state that do not change during the
	// lifetime of a channel.
	FixedPart struct {
		ChainID           *big.Int
		Participants      []common.Address
		ChannelNonce      *big.Int
		AppDefinition     common.Address
		ChallengeDuration uint64
	}

	// VariablePart holds the parts of a state that may change with every
	// turn. Outcome is the encoded Outcome.
	VariablePart struct {
		Outcome []byte
		AppData []byte
	}

	// State is a full channel state as signed by the participants.
	State struct {
		TurnNum           uint64
		IsFinal           bool
		Channel           Channel
		Outcome           Outcome
		AppDefinition     common.Address
		AppData           []byte
		ChallengeDuration uint64
	}
)

// externalPrefixLen is the number of leading zero bytes of an external
// destination.
const externalPrefixLen = 12

// AddressToDestination left-pads an address to a Destination.
func AddressToDestination(addr common.Address) Destination {
	var d Destination
	copy(d[externalPrefixLen:], addr[:])
	return d
}

// ChannelDestination returns the Destination referring to the channel id.
func ChannelDestination(id ID) Destination {
	return Destination(id)
}

// IsExternal returns whether the destination is a padded address.
func (d Destination) IsExternal() bool {
	for _, b := range d[:externalPrefixLen] {
		if b != 0 {
			return false
		}
	}
	return true
}

// Address returns the address part of the destination.
func (d Destination) Address() common.Address {
	return common.BytesToAddress(d[externalPrefixLen:])
}

// ChannelID interprets the destination as channel id.
func (d Destination) ChannelID() ID {
	return ID(d)
}

func (d Destination) String() string {
	return common.Hash(d).Hex()
}

// ID computes the channel id.
func (c Channel) ID() ID {
	return Keccak256(pack(
		[]abi.Type{abiUint256, abiAddresses, abiUint256},
		bigOrZero(c.ChainID), participantsOrEmpty(c.Participants), bigOrZero(c.ChannelNonce),
	))
}

// Equal returns whether both channels have the same parameters.
func (c Channel) Equal(other Channel) bool {
	return bigOrZero(c.ChainID).Cmp(bigOrZero(other.ChainID)) == 0 &&
		bigOrZero(c.ChannelNonce).Cmp(bigOrZero(other.ChannelNonce)) == 0 &&
		addressesEqual(c.Participants, other.Participants)
}

// NumParticipants returns the number of participants.
func (f FixedPart) NumParticipants() int {
	return len(f.Participants)
}

// Channel returns the channel the fixed part belongs to.
func (f FixedPart) Channel() Channel {
	return Channel{ChainID: f.ChainID, Participants: f.Participants, ChannelNonce: f.ChannelNonce}
}

// ChannelID computes the id of the channel the fixed part belongs to.
func (f FixedPart) ChannelID() ID {
	return f.Channel().ID()
}

// Valid checks that the fixed part describes a usable channel.
func (f FixedPart) Valid() error {
	if len(f.Participants) == 0 {
		return errors.New("no participants")
	}
	if f.ChainID == nil || f.ChainID.Sign() < 0 {
		return errors.New("invalid chain id")
	}
	if f.ChannelNonce == nil || f.ChannelNonce.Sign() < 0 {
		return errors.New("invalid channel nonce")
	}
	return nil
}

// Equal returns whether both variable parts are byte-wise equal.
func (v VariablePart) Equal(other VariablePart) bool {
	return bytes.Equal(v.Outcome, other.Outcome) && bytes.Equal(v.AppData, other.AppData)
}

// OutcomeHash returns the hash of the encoded outcome.
func (v VariablePart) OutcomeHash() common.Hash {
	return HashOutcomeBytes(v.Outcome)
}

// ChannelID returns the id of the state's channel.
func (s State) ChannelID() ID {
	return s.Channel.ID()
}

// FixedPart returns the fixed part of the state.
func (s State) FixedPart() FixedPart {
	return FixedPart{
		ChainID:           s.Channel.ChainID,
		Participants:      s.Channel.Participants,
		ChannelNonce:      s.Channel.ChannelNonce,
		AppDefinition:     s.AppDefinition,
		ChallengeDuration: s.ChallengeDuration,
	}
}

// VariablePart returns the variable part of the state.
func (s State) VariablePart() (VariablePart, error) {
	outcome, err := s.Outcome.Encode()
	if err != nil {
		return VariablePart{}, errors.WithMessage(err, "encoding outcome")
	}
	return VariablePart{Outcome: outcome, AppData: s.AppData}, nil
}

// Hash computes the digest signed by the participants.
func (s State) Hash() (common.Hash, error) {
	vp, err := s.VariablePart()
	if err != nil {
		return common.Hash{}, err
	}
	return HashState(s.TurnNum, s.IsFinal, s.FixedPart(), vp), nil
}

// HashAppPart hashes the application specific part of a state.
func HashAppPart(challengeDuration uint64, appDefinition common.Address, appData []byte) common.Hash {
	return Keccak256(pack(
		[]abi.Type{abiUint256, abiAddress, abiBytes},
		bigUint(challengeDuration), appDefinition, bytesOrEmpty(appData),
	))
}

// HashState computes the digest of the state made up of the given parts.
func HashState(turnNum uint64, isFinal bool, fp FixedPart, vp VariablePart) common.Hash {
	return HashStateParts(turnNum, isFinal, fp.ChannelID(),
		HashAppPart(fp.ChallengeDuration, fp.AppDefinition, vp.AppData),
		vp.OutcomeHash())
}

// HashStateParts computes the state digest from already hashed parts.
func HashStateParts(turnNum uint64, isFinal bool, channelID ID, appPartHash, outcomeHash common.Hash) common.Hash {
	return Keccak256(pack([]abi.Type{abiState}, stateABI{
		TurnNum:     bigUint(turnNum),
		IsFinal:     isFinal,
		ChannelID:   channelID,
		AppPartHash: appPartHash,
		OutcomeHash: outcomeHash,
	}))
}

func participantsOrEmpty(ps []common.Address) []common.Address {
	if ps == nil {
		return []common.Address{}
	}
	return ps
}

func bytesOrEmpty(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func addressesEqual(a, b []common.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
