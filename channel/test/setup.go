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

package test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	pkgtest "polycry.pt/poly-go/test"

	"github.com/statechannels/nitro-protocol/channel"
	"github.com/statechannels/nitro-protocol/channel/types"
	"github.com/statechannels/nitro-protocol/event"
	"github.com/statechannels/nitro-protocol/store"
	"github.com/statechannels/nitro-protocol/wallet"
	wtest "github.com/statechannels/nitro-protocol/wallet/test"
)

const (
	// DefaultTestTimeout bounds the contexts created by Setup.NewCtx.
	DefaultTestTimeout = 10 * time.Second
	// DefaultChallengeDuration is the challenge duration of Setup channels.
	DefaultChallengeDuration = 0x1000
	// StartTime is the initial time of the Setup clock.
	StartTime = 1_000_000
)

// Setup is a CountingApp channel between random participants together with
// an adjudicator on an in-memory store.
type Setup struct {
	t *testing.T

	Accounts      []*wallet.Account
	Channel       types.Channel
	AppDefinition common.Address
	AssetHolder   common.Address
	Outcome       types.Outcome

	Apps        *channel.AppRegistry
	Clock       *channel.ManualClock
	KV          *store.Memory
	Events      *event.Recorder
	Adjudicator *channel.Adjudicator
}

// NewTestSetup creates a Setup with numParts participants.
func NewTestSetup(t *testing.T, numParts int) *Setup {
	t.Helper()
	rng := pkgtest.Prng(t)

	accs := wtest.NewRandomAccounts(rng, numParts)
	parts := wtest.Addresses(accs)
	appDef := NewRandomAddress(rng)
	holder := NewRandomAddress(rng)

	dests := make([]types.Destination, numParts)
	for i, p := range parts {
		dests[i] = types.AddressToDestination(p)
	}

	apps := channel.NewAppRegistry()
	apps.Register(appDef, channel.CountingApp{})
	clock := channel.NewManualClock(StartTime)
	kv := store.NewMemory()
	rec := event.NewRecorder()

	return &Setup{
		t:        t,
		Accounts: accs,
		Channel: types.Channel{
			ChainID:      big.NewInt(0x1234),
			Participants: parts,
			ChannelNonce: big.NewInt(rng.Int63()),
		},
		AppDefinition: appDef,
		AssetHolder:   holder,
		Outcome:       NewRandomOutcome(rng, []common.Address{holder}, dests...),
		Apps:          apps,
		Clock:         clock,
		KV:            kv,
		Events:        rec,
		Adjudicator:   channel.NewAdjudicator(kv, apps, channel.WithClock(clock), channel.WithSink(rec)),
	}
}

// NewCtx returns a context that is cancelled after timeout or at the end of
// the test.
func (s *Setup) NewCtx(timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	s.t.Cleanup(cancel)
	return ctx
}

// ID returns the channel id.
func (s *Setup) ID() types.ID {
	return s.Channel.ID()
}

// Participants returns the participant addresses.
func (s *Setup) Participants() []common.Address {
	return s.Channel.Participants
}

// FixedPart returns the fixed part of the channel.
func (s *Setup) FixedPart() types.FixedPart {
	return types.FixedPart{
		ChainID:           s.Channel.ChainID,
		Participants:      s.Channel.Participants,
		ChannelNonce:      s.Channel.ChannelNonce,
		AppDefinition:     s.AppDefinition,
		ChallengeDuration: DefaultChallengeDuration,
	}
}

// State returns the state at turnNum with the given counter.
func (s *Setup) State(turnNum, counter uint64, isFinal bool) types.State {
	return types.State{
		TurnNum:           turnNum,
		IsFinal:           isFinal,
		Channel:           s.Channel,
		Outcome:           s.Outcome,
		AppDefinition:     s.AppDefinition,
		AppData:           channel.EncodeCounter(counter),
		ChallengeDuration: DefaultChallengeDuration,
	}
}

// States returns len(counters) consecutive states ending at largestTurnNum.
// The last isFinalCount states are final.
func (s *Setup) States(largestTurnNum uint64, counters []uint64, isFinalCount int) []types.State {
	m := len(counters)
	states := make([]types.State, m)
	for i, c := range counters {
		states[i] = s.State(channel.StateTurnNum(largestTurnNum, m, i), c, channel.IsFinalAt(i, m, isFinalCount))
	}
	return states
}

// VariableParts returns the variable parts of states.
func (s *Setup) VariableParts(states []types.State) []types.VariablePart {
	vps := make([]types.VariablePart, len(states))
	for i, st := range states {
		vp, err := st.VariablePart()
		require.NoError(s.t, err)
		vps[i] = vp
	}
	return vps
}

// VariablePart returns the variable part of a single state.
func (s *Setup) VariablePart(state types.State) types.VariablePart {
	return s.VariableParts([]types.State{state})[0]
}

// SignState signs state with the account of participant idx.
func (s *Setup) SignState(idx int, state types.State) wallet.Signature {
	sig, err := channel.Backend.Sign(s.Accounts[idx], state)
	require.NoError(s.t, err)
	return sig
}

// SignStates lets participant i sign states[whoSignedWhat[i]].
func (s *Setup) SignStates(states []types.State, whoSignedWhat []int) []wallet.Signature {
	sigs := make([]wallet.Signature, len(whoSignedWhat))
	for i, w := range whoSignedWhat {
		sigs[i] = s.SignState(i, states[w])
	}
	return sigs
}

// SignChallenge signs the challenge message with the account of
// participant idx.
func (s *Setup) SignChallenge(idx int, largestTurnNum uint64) wallet.Signature {
	sig, err := channel.Backend.SignChallenge(s.Accounts[idx], largestTurnNum, s.ID())
	require.NoError(s.t, err)
	return sig
}

// ForceMoveParams builds the parameters of a forceMove by participant
// challenger.
func (s *Setup) ForceMoveParams(turnNumRecord uint64, states []types.State, isFinalCount int, whoSignedWhat []int, challenger int) channel.ForceMoveParams {
	largest := states[len(states)-1].TurnNum
	return channel.ForceMoveParams{
		TurnNumRecord:  turnNumRecord,
		FixedPart:      s.FixedPart(),
		LargestTurnNum: largest,
		VariableParts:  s.VariableParts(states),
		IsFinalCount:   isFinalCount,
		Sigs:           s.SignStates(states, whoSignedWhat),
		WhoSignedWhat:  whoSignedWhat,
		ChallengerSig:  s.SignChallenge(challenger, largest),
	}
}

// ChallengeStorage returns the storage of a challenge with state, raised
// by participant challenger, finalizing at finalizesAt.
func (s *Setup) ChallengeStorage(state types.State, challenger int, finalizesAt uint64) types.ChannelStorage {
	cs, err := types.ChallengeStorage(state.TurnNum, finalizesAt, state, s.Channel.Participants[challenger])
	require.NoError(s.t, err)
	return cs
}

// SetStorage overwrites the stored channel storage.
func (s *Setup) SetStorage(cs types.ChannelStorage) {
	h, err := cs.Hash()
	require.NoError(s.t, err)
	require.NoError(s.t, s.Adjudicator.SetChannelStorageHash(context.Background(), s.ID(), h))
}

// RequireStorage checks that cs is stored.
func (s *Setup) RequireStorage(cs types.ChannelStorage) {
	h, err := s.Adjudicator.ChannelStorageHash(context.Background(), s.ID())
	require.NoError(s.t, err)
	require.Equal(s.t, cs.MustHash(), h)
}

// FinalStates returns the support of numStates final states ending at
// largestTurnNum, signed according to whoSignedWhat.
func (s *Setup) FinalStates(largestTurnNum uint64, numStates int, whoSignedWhat []int) channel.FinalStates {
	final := s.State(largestTurnNum, 0, true)
	states := make([]types.State, numStates)
	for i := range states {
		st := final
		st.TurnNum = channel.StateTurnNum(largestTurnNum, numStates, i)
		states[i] = st
	}
	vp := s.VariablePart(final)
	return channel.FinalStates{
		LargestTurnNum: largestTurnNum,
		FixedPart:      s.FixedPart(),
		AppPartHash:    types.HashAppPart(DefaultChallengeDuration, s.AppDefinition, final.AppData),
		OutcomeHash:    vp.OutcomeHash(),
		NumStates:      numStates,
		WhoSignedWhat:  whoSignedWhat,
		Sigs:           s.SignStates(states, whoSignedWhat),
	}
}
