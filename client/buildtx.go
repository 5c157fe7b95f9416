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

// Package client builds the parameters of adjudicator operations from full
// channel states and submits them on behalf of a participant.
package client

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/statechannels/nitro-protocol/channel"
	"github.com/statechannels/nitro-protocol/channel/types"
	"github.com/statechannels/nitro-protocol/wallet"
)

var (
	ErrNoStates            = errors.New("no states")
	ErrChannelMismatch     = errors.New("states belong to different channels")
	ErrNotConsecutive      = errors.New("turn numbers are not consecutive")
	ErrFinalNotSuffix      = errors.New("final states must end the chain")
	ErrNotFinal            = errors.New("state is not final")
	ErrFinalStatesDiffer   = errors.New("final states differ")
	ErrSignatureCount      = errors.New("wrong number of signatures")
	ErrUnsignedParticipant = errors.New("participant signed none of the states")
)

// support is a chain of states in the form the adjudicator takes it.
type support struct {
	fixedPart      types.FixedPart
	largestTurnNum uint64
	variableParts  []types.VariablePart
	isFinalCount   int
}

func makeSupport(states []types.State) (support, error) {
	if len(states) == 0 {
		return support{}, ErrNoStates
	}
	first := states[0]
	s := support{
		fixedPart:      first.FixedPart(),
		largestTurnNum: states[len(states)-1].TurnNum,
		variableParts:  make([]types.VariablePart, len(states)),
	}
	for i, st := range states {
		if err := sameChannel(first, st); err != nil {
			return support{}, err
		}
		if st.TurnNum != first.TurnNum+uint64(i) {
			return support{}, errors.WithMessagef(ErrNotConsecutive, "state %d", i)
		}
		if st.IsFinal {
			s.isFinalCount++
		} else if s.isFinalCount > 0 {
			return support{}, errors.WithMessagef(ErrFinalNotSuffix, "state %d", i)
		}
		vp, err := st.VariablePart()
		if err != nil {
			return support{}, errors.WithMessagef(err, "state %d", i)
		}
		s.variableParts[i] = vp
	}
	return s, nil
}

func sameChannel(a, b types.State) error {
	if a.ChannelID() != b.ChannelID() {
		return ErrChannelMismatch
	}
	if a.AppDefinition != b.AppDefinition || a.ChallengeDuration != b.ChallengeDuration {
		return channel.Revert(channel.ErrInvalidInput, channel.ReasonAppDefinitionMismatch)
	}
	return nil
}

// WhoSignedWhat finds for every participant the latest of states its
// signature is valid for.
func WhoSignedWhat(states []types.State, sigs []wallet.Signature) ([]int, error) {
	if len(states) == 0 {
		return nil, ErrNoStates
	}
	participants := states[0].Channel.Participants
	if len(sigs) != len(participants) {
		return nil, errors.WithMessagef(ErrSignatureCount, "got %d, want %d", len(sigs), len(participants))
	}
	hashes := make([]common.Hash, len(states))
	for i, st := range states {
		h, err := st.Hash()
		if err != nil {
			return nil, errors.WithMessagef(err, "hashing state %d", i)
		}
		hashes[i] = h
	}

	whoSignedWhat := make([]int, len(sigs))
	for i, sig := range sigs {
		found := false
		for j := len(hashes) - 1; j >= 0; j-- {
			signer, err := wallet.Backend.RecoverSigner(hashes[j], sig)
			if err == nil && signer == participants[i] {
				whoSignedWhat[i], found = j, true
				break
			}
		}
		if !found {
			return nil, errors.WithMessagef(ErrUnsignedParticipant, "participant %d", i)
		}
	}
	return whoSignedWhat, nil
}

// ForceMove builds a challenge with the last of states.
func ForceMove(turnNumRecord uint64, states []types.State, sigs []wallet.Signature, whoSignedWhat []int, challengerSig wallet.Signature) (channel.ForceMoveParams, error) {
	s, err := makeSupport(states)
	if err != nil {
		return channel.ForceMoveParams{}, err
	}
	return channel.ForceMoveParams{
		TurnNumRecord:  turnNumRecord,
		FixedPart:      s.fixedPart,
		LargestTurnNum: s.largestTurnNum,
		VariableParts:  s.variableParts,
		IsFinalCount:   s.isFinalCount,
		Sigs:           sigs,
		WhoSignedWhat:  whoSignedWhat,
		ChallengerSig:  challengerSig,
	}, nil
}

// Respond builds the response to the challenge registered with
// challengeState. sig is the mover's signature on response.
func Respond(challengeState types.State, finalizesAt uint64, challenger common.Address, response types.State, sig wallet.Signature) (channel.RespondParams, error) {
	vpAB, err := variablePartAB(challengeState, response)
	if err != nil {
		return channel.RespondParams{}, err
	}
	return channel.RespondParams{
		TurnNumRecord:  challengeState.TurnNum,
		FinalizesAt:    finalizesAt,
		Challenger:     challenger,
		IsFinalAB:      [2]bool{challengeState.IsFinal, response.IsFinal},
		FixedPart:      challengeState.FixedPart(),
		VariablePartAB: vpAB,
		Sig:            sig,
	}, nil
}

// Refute builds the refutation of the challenge registered with
// challengeState. sig is the challenger's signature on refutation.
func Refute(challengeState types.State, finalizesAt uint64, challenger common.Address, refutation types.State, sig wallet.Signature) (channel.RefuteParams, error) {
	vpAB, err := variablePartAB(challengeState, refutation)
	if err != nil {
		return channel.RefuteParams{}, err
	}
	return channel.RefuteParams{
		TurnNumRecord:          challengeState.TurnNum,
		RefutationStateTurnNum: refutation.TurnNum,
		FinalizesAt:            finalizesAt,
		Challenger:             challenger,
		IsFinalAB:              [2]bool{challengeState.IsFinal, refutation.IsFinal},
		FixedPart:              challengeState.FixedPart(),
		VariablePartAB:         vpAB,
		RefutationStateSig:     sig,
	}, nil
}

func variablePartAB(a, b types.State) ([2]types.VariablePart, error) {
	var vps [2]types.VariablePart
	if err := sameChannel(a, b); err != nil {
		return vps, err
	}
	var err error
	if vps[0], err = a.VariablePart(); err != nil {
		return vps, err
	}
	if vps[1], err = b.VariablePart(); err != nil {
		return vps, err
	}
	return vps, nil
}

// Checkpoint builds a checkpoint with the last of states. current is the
// storage expected on chain.
func Checkpoint(current types.ChannelStorage, states []types.State, sigs []wallet.Signature, whoSignedWhat []int) (channel.CheckpointParams, error) {
	s, err := makeSupport(states)
	if err != nil {
		return channel.CheckpointParams{}, err
	}
	return channel.CheckpointParams{
		Current:        current,
		FixedPart:      s.fixedPart,
		LargestTurnNum: s.largestTurnNum,
		VariableParts:  s.variableParts,
		IsFinalCount:   s.isFinalCount,
		Sigs:           sigs,
		WhoSignedWhat:  whoSignedWhat,
	}, nil
}

// ConcludeFromOpen builds the conclusion of an open channel with a chain of
// identical final states.
func ConcludeFromOpen(turnNumRecord uint64, states []types.State, sigs []wallet.Signature, whoSignedWhat []int) (channel.ConcludeFromOpenParams, error) {
	fs, err := finalStates(states, sigs, whoSignedWhat)
	if err != nil {
		return channel.ConcludeFromOpenParams{}, err
	}
	return channel.ConcludeFromOpenParams{TurnNumRecord: turnNumRecord, FinalStates: fs}, nil
}

// ConcludeFromChallenge builds the conclusion of a channel with an ongoing
// challenge.
func ConcludeFromChallenge(challenge types.ChannelStorage, states []types.State, sigs []wallet.Signature, whoSignedWhat []int) (channel.ConcludeFromChallengeParams, error) {
	fs, err := finalStates(states, sigs, whoSignedWhat)
	if err != nil {
		return channel.ConcludeFromChallengeParams{}, err
	}
	return channel.ConcludeFromChallengeParams{Challenge: challenge, FinalStates: fs}, nil
}

func finalStates(states []types.State, sigs []wallet.Signature, whoSignedWhat []int) (channel.FinalStates, error) {
	s, err := makeSupport(states)
	if err != nil {
		return channel.FinalStates{}, err
	}
	for i, st := range states {
		if !st.IsFinal {
			return channel.FinalStates{}, errors.WithMessagef(ErrNotFinal, "state %d", i)
		}
		if !s.variableParts[i].Equal(s.variableParts[0]) {
			return channel.FinalStates{}, errors.WithMessagef(ErrFinalStatesDiffer, "state %d", i)
		}
	}
	last := states[len(states)-1]
	return channel.FinalStates{
		LargestTurnNum: s.largestTurnNum,
		FixedPart:      s.fixedPart,
		AppPartHash:    types.HashAppPart(last.ChallengeDuration, last.AppDefinition, last.AppData),
		OutcomeHash:    s.variableParts[0].OutcomeHash(),
		NumStates:      len(states),
		WhoSignedWhat:  whoSignedWhat,
		Sigs:           sigs,
	}, nil
}
