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

package types_test

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	pkgtest "polycry.pt/poly-go/test"

	"github.com/statechannels/nitro-protocol/channel/types"
)

func randomDestination(seed int64) types.Destination {
	var addr common.Address
	rand.New(rand.NewSource(seed)).Read(addr[:])
	return types.AddressToDestination(addr)
}

func randomAllocation(seed int64, n int) types.Allocation {
	rng := rand.New(rand.NewSource(seed))
	a := make(types.Allocation, n)
	for i := range a {
		a[i] = types.AllocationItem{
			Destination: randomDestination(rng.Int63()),
			Amount:      big.NewInt(rng.Int63n(1000)),
		}
	}
	return a
}

func randomState(rng *rand.Rand) types.State {
	parts := make([]common.Address, 3)
	for i := range parts {
		rng.Read(parts[i][:])
	}
	var app, holder common.Address
	rng.Read(app[:])
	rng.Read(holder[:])
	return types.State{
		TurnNum: rng.Uint64() % 1000,
		Channel: types.Channel{
			ChainID:      big.NewInt(rng.Int63()),
			Participants: parts,
			ChannelNonce: big.NewInt(rng.Int63()),
		},
		Outcome:           types.Outcome{{AssetHolderAddress: holder, Item: randomAllocation(rng.Int63(), 3)}},
		AppDefinition:     app,
		AppData:           []byte{1, 2, 3},
		ChallengeDuration: 60,
	}
}

func TestChannelID(t *testing.T) {
	rng := pkgtest.Prng(t)
	s := randomState(rng)
	c := s.Channel
	require.Equal(t, c.ID(), s.FixedPart().ChannelID())

	other := c
	other.ChannelNonce = new(big.Int).Add(c.ChannelNonce, big.NewInt(1))
	require.NotEqual(t, c.ID(), other.ID())
	require.False(t, c.Equal(other))

	swapped := c
	swapped.Participants = []common.Address{c.Participants[1], c.Participants[0], c.Participants[2]}
	require.NotEqual(t, c.ID(), swapped.ID())
}

func TestStateHash(t *testing.T) {
	rng := pkgtest.Prng(t)
	s := randomState(rng)

	h, err := s.Hash()
	require.NoError(t, err)
	vp, err := s.VariablePart()
	require.NoError(t, err)
	require.Equal(t, h, types.HashState(s.TurnNum, s.IsFinal, s.FixedPart(), vp))

	final := s
	final.IsFinal = true
	hf, err := final.Hash()
	require.NoError(t, err)
	require.NotEqual(t, h, hf)

	next := s
	next.TurnNum++
	hn, err := next.Hash()
	require.NoError(t, err)
	require.NotEqual(t, h, hn)

	data := s
	data.AppData = []byte{1, 2, 4}
	hd, err := data.Hash()
	require.NoError(t, err)
	require.NotEqual(t, h, hd)
}

func TestChannelStorageRoundTrip(t *testing.T) {
	rng := pkgtest.Prng(t)
	s := randomState(rng)
	var challenger common.Address
	rng.Read(challenger[:])

	challenge, err := types.ChallengeStorage(5, 1000, s, challenger)
	require.NoError(t, err)
	outcomeHash, err := types.HashOutcome(s.Outcome)
	require.NoError(t, err)

	for name, cs := range map[string]types.ChannelStorage{
		"open":      types.OpenStorage(7),
		"openZero":  types.OpenStorage(0),
		"challenge": challenge,
		"finalized": types.FinalizedStorage(1000, outcomeHash),
	} {
		cs := cs
		t.Run(name, func(t *testing.T) {
			enc, err := cs.Encode()
			require.NoError(t, err)
			dec, err := types.DecodeChannelStorage(enc)
			require.NoError(t, err)
			require.Equal(t, cs, dec)
		})
	}
}

func TestChannelStorageMalformed(t *testing.T) {
	cs := types.ChannelStorage{TurnNumRecord: 1, Challenger: common.Address{1}}
	_, err := cs.Encode()
	require.ErrorIs(t, err, types.ErrMalformedStorage)
	_, err = cs.Hash()
	require.ErrorIs(t, err, types.ErrMalformedStorage)

	cs = types.ChannelStorage{OutcomeHash: common.Hash{1}}
	require.ErrorIs(t, cs.Valid(), types.ErrMalformedStorage)
}

func TestChannelStorageHashDistinct(t *testing.T) {
	rng := pkgtest.Prng(t)
	s := randomState(rng)
	var challenger common.Address
	rng.Read(challenger[:])
	challenge, err := types.ChallengeStorage(5, 1000, s, challenger)
	require.NoError(t, err)

	variants := []types.ChannelStorage{
		types.OpenStorage(0),
		types.OpenStorage(5),
		challenge,
		types.FinalizedStorage(1000, challenge.OutcomeHash),
		types.FinalizedStorage(1001, challenge.OutcomeHash),
	}
	mod := challenge
	mod.TurnNumRecord++
	variants = append(variants, mod)
	mod = challenge
	mod.FinalizesAt++
	variants = append(variants, mod)
	mod = challenge
	mod.Challenger = common.Address{}
	variants = append(variants, mod)
	mod = challenge
	mod.StateHash = common.Hash{}
	variants = append(variants, mod)

	seen := make(map[common.Hash]int)
	for i, v := range variants {
		h := v.MustHash()
		j, dup := seen[h]
		require.False(t, dup, "storages %d and %d collide", i, j)
		seen[h] = i
	}
}

func TestFinalizedStorageIgnoresChallenger(t *testing.T) {
	rng := pkgtest.Prng(t)
	var outcome common.Hash
	rng.Read(outcome[:])
	var challenger common.Address
	rng.Read(challenger[:])

	finalized := types.FinalizedStorage(5, outcome)
	withChallenger := finalized
	withChallenger.Challenger = challenger
	require.Equal(t, finalized.MustHash(), withChallenger.MustHash())

	challenge := withChallenger
	challenge.StateHash = common.Hash{1}
	noChallenger := challenge
	noChallenger.Challenger = common.Address{}
	require.NotEqual(t, challenge.MustHash(), noChallenger.MustHash())
}

func TestChannelStorageMode(t *testing.T) {
	require.Equal(t, types.ModeOpen, types.OpenStorage(3).Mode(100))
	cs := types.ChannelStorage{TurnNumRecord: 3, FinalizesAt: 100, StateHash: common.Hash{1}}
	require.Equal(t, types.ModeChallenge, cs.Mode(99))
	require.Equal(t, types.ModeFinalized, cs.Mode(100))
	require.True(t, types.OpenStorage(1).IsOpen())
}

func TestChannelStorageLite(t *testing.T) {
	lite := types.ChannelStorageLite{FinalizesAt: 42, OutcomeHash: common.Hash{2}}
	cs := lite.Storage()
	require.Equal(t, uint64(0), cs.TurnNumRecord)
	require.Equal(t, lite, cs.Lite())
	require.Equal(t, types.FinalizedStorage(42, common.Hash{2}), cs)
	require.NotEqual(t, lite.Hash(), cs.MustHash())
	require.Len(t, lite.Encode(), 4*32)
}

func TestChallengeMessage(t *testing.T) {
	id := types.ID{1}
	require.NotEqual(t, types.ChallengeMessage(1, id), types.ChallengeMessage(2, id))
	require.NotEqual(t, types.ChallengeMessage(1, id), types.ChallengeMessage(1, types.ID{2}))
	require.Len(t, types.WithdrawAuthorization(common.Address{1}, common.Address{2}, big.NewInt(3), common.Address{4}), 4*32)
}
