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

package client_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	pkgtest "polycry.pt/poly-go/test"

	"github.com/statechannels/nitro-protocol/channel"
	chtest "github.com/statechannels/nitro-protocol/channel/test"
	"github.com/statechannels/nitro-protocol/channel/types"
	"github.com/statechannels/nitro-protocol/client"
	"github.com/statechannels/nitro-protocol/event"
	"github.com/statechannels/nitro-protocol/wallet"
)

func TestWhoSignedWhat(t *testing.T) {
	s := chtest.NewTestSetup(t, 3)

	for _, tc := range []struct {
		largest  uint64
		counters []uint64
		wsw      []int
	}{
		{5, []uint64{3, 4, 5}, []int{0, 1, 2}},
		{12, []uint64{10, 11, 12}, []int{2, 0, 1}},
		{12, []uint64{12}, []int{0, 0, 0}},
		{7, []uint64{6, 7}, []int{1, 1, 0}},
	} {
		states := s.States(tc.largest, tc.counters, 0)
		got, err := client.WhoSignedWhat(states, s.SignStates(states, tc.wsw))
		require.NoError(t, err)
		require.Equal(t, tc.wsw, got)
	}

	states := s.States(5, []uint64{3, 4, 5}, 0)
	sigs := s.SignStates(states, []int{0, 1, 2})
	_, err := client.WhoSignedWhat(states, sigs[:2])
	require.ErrorIs(t, err, client.ErrSignatureCount)

	sigs[1] = sigs[0]
	_, err = client.WhoSignedWhat(states, sigs)
	require.ErrorIs(t, err, client.ErrUnsignedParticipant)

	_, err = client.WhoSignedWhat(nil, nil)
	require.ErrorIs(t, err, client.ErrNoStates)
}

func TestForceMoveBuilder(t *testing.T) {
	s := chtest.NewTestSetup(t, 3)
	states := s.States(12, []uint64{10, 11, 12}, 0)
	wsw := []int{2, 0, 1}
	sigs := s.SignStates(states, wsw)
	challengerSig := s.SignChallenge(1, 12)

	p, err := client.ForceMove(0, states, sigs, wsw, challengerSig)
	require.NoError(t, err)
	want := s.ForceMoveParams(0, states, 0, wsw, 1)
	require.Equal(t, want.LargestTurnNum, p.LargestTurnNum)
	require.Equal(t, want.VariableParts, p.VariableParts)
	require.Equal(t, want.FixedPart.ChannelID(), p.FixedPart.ChannelID())
	require.Equal(t, want.WhoSignedWhat, p.WhoSignedWhat)
	require.Zero(t, p.IsFinalCount)

	require.NoError(t, s.Adjudicator.ForceMove(s.NewCtx(chtest.DefaultTestTimeout), p))
	s.RequireStorage(s.ChallengeStorage(states[2], 1, chtest.StartTime+chtest.DefaultChallengeDuration))
}

func TestSupportErrors(t *testing.T) {
	s := chtest.NewTestSetup(t, 3)
	var sigs []wallet.Signature

	t.Run("final count", func(t *testing.T) {
		states := s.States(12, []uint64{10, 11, 12}, 2)
		p, err := client.ForceMove(0, states, sigs, nil, wallet.Signature{})
		require.NoError(t, err)
		require.Equal(t, 2, p.IsFinalCount)
	})

	t.Run("not consecutive", func(t *testing.T) {
		states := s.States(12, []uint64{10, 11, 12}, 0)
		states[0].TurnNum = 9
		_, err := client.ForceMove(0, states, sigs, nil, wallet.Signature{})
		require.ErrorIs(t, err, client.ErrNotConsecutive)
	})

	t.Run("final not last", func(t *testing.T) {
		states := s.States(12, []uint64{10, 11, 12}, 0)
		states[1].IsFinal = true
		_, err := client.Checkpoint(types.ChannelStorage{}, states, sigs, nil)
		require.ErrorIs(t, err, client.ErrFinalNotSuffix)
	})

	t.Run("app definition", func(t *testing.T) {
		states := s.States(12, []uint64{10, 11, 12}, 0)
		states[2].AppDefinition = chtest.NewRandomAddress(pkgtest.Prng(t))
		_, err := client.ForceMove(0, states, sigs, nil, wallet.Signature{})
		require.ErrorIs(t, err, channel.ErrInvalidInput)
		require.EqualError(t, err, channel.ReasonAppDefinitionMismatch)
	})

	t.Run("channel", func(t *testing.T) {
		other := chtest.NewTestSetup(t, 3)
		_, err := client.Respond(s.State(5, 5, false), 1, s.Participants()[0], other.State(6, 6, false), wallet.Signature{})
		require.ErrorIs(t, err, client.ErrChannelMismatch)
	})

	t.Run("not final", func(t *testing.T) {
		states := s.States(12, []uint64{11, 12}, 1)
		_, err := client.ConcludeFromOpen(0, states, sigs, nil)
		require.ErrorIs(t, err, client.ErrNotFinal)
	})

	t.Run("final states differ", func(t *testing.T) {
		states := s.States(12, []uint64{11, 12}, 2)
		_, err := client.ConcludeFromOpen(0, states, sigs, nil)
		require.ErrorIs(t, err, client.ErrFinalStatesDiffer)
	})
}

func TestClientDispute(t *testing.T) {
	s := chtest.NewTestSetup(t, 3)
	ctx := s.NewCtx(chtest.DefaultTestTimeout)
	alice := client.New(s.Adjudicator, s.Accounts[0])
	bob := client.New(s.Adjudicator, s.Accounts[1])
	require.Equal(t, s.Participants()[0], alice.Address())

	challengeState := s.State(5, 5, false)
	states := s.States(5, []uint64{3, 4, 5}, 0)
	require.NoError(t, alice.Challenge(ctx, 0, states, s.SignStates(states, []int{0, 1, 2})))
	finalizesAt := uint64(chtest.StartTime + chtest.DefaultChallengeDuration)
	s.RequireStorage(s.ChallengeStorage(challengeState, 0, finalizesAt))
	evs := s.Events.OfType(event.EventTypeForceMove)
	require.Len(t, evs, 1)
	require.Equal(t, finalizesAt, evs[0].(*event.ForceMoveEvent).FinalizesAt)

	// Turn 6 is alice's again.
	require.NoError(t, alice.Respond(ctx, challengeState, finalizesAt, alice.Address(), s.State(6, 6, false)))
	s.RequireStorage(types.OpenStorage(6))

	require.NoError(t, bob.Challenge(ctx, 6, []types.State{s.State(7, 7, false)}, s.SignStates([]types.State{s.State(7, 7, false)}, []int{0, 0, 0})))
	refutation, err := bob.SignState(s.State(8, 8, false))
	require.NoError(t, err)
	require.NoError(t, alice.Refute(ctx, s.State(7, 7, false), finalizesAt, bob.Address(), s.State(8, 8, false), refutation))
	s.RequireStorage(types.OpenStorage(7))

	states = s.States(9, []uint64{8, 9}, 0)
	require.NoError(t, bob.Checkpoint(ctx, types.OpenStorage(7), states, s.SignStates(states, []int{1, 1, 0})))
	s.RequireStorage(types.OpenStorage(9))

	final := []types.State{s.State(10, 0, true)}
	require.NoError(t, bob.Conclude(ctx, 9, types.ChannelStorage{}, final, s.SignStates(final, []int{0, 0, 0})))
	vp := s.VariablePart(final[0])
	s.RequireStorage(types.FinalizedStorage(chtest.StartTime, vp.OutcomeHash()))
}

func TestClientConcludeFromChallenge(t *testing.T) {
	s := chtest.NewTestSetup(t, 3)
	ctx := s.NewCtx(chtest.DefaultTestTimeout)
	c := client.New(s.Adjudicator, s.Accounts[2])

	states := s.States(5, []uint64{3, 4, 5}, 0)
	require.NoError(t, c.Challenge(ctx, 0, states, s.SignStates(states, []int{0, 1, 2})))
	challenge := s.ChallengeStorage(states[2], 2, chtest.StartTime+chtest.DefaultChallengeDuration)

	final := s.States(7, []uint64{0, 0}, 2)
	require.NoError(t, c.Conclude(ctx, 5, challenge, final, s.SignStates(final, []int{1, 1, 0})))
	require.Len(t, s.Events.OfType(event.EventTypeConcluded), 1)
}
