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

package assetholder_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	pkgtest "polycry.pt/poly-go/test"

	"github.com/statechannels/nitro-protocol/assetholder"
	"github.com/statechannels/nitro-protocol/channel"
	chtest "github.com/statechannels/nitro-protocol/channel/test"
	"github.com/statechannels/nitro-protocol/channel/types"
)

func alloc(items ...interface{}) types.Allocation {
	a := make(types.Allocation, 0, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		a = append(a, types.AllocationItem{
			Destination: items[i].(types.Destination),
			Amount:      big.NewInt(int64(items[i+1].(int))),
		})
	}
	return a
}

func requireAmount(t *testing.T, want int64, got *big.Int) {
	t.Helper()
	require.NotNil(t, got)
	require.Zerof(t, big.NewInt(want).Cmp(got), "want %d, got %v", want, got)
}

func TestAffords(t *testing.T) {
	rng := pkgtest.Prng(t)
	a, b, c := chtest.NewRandomExternalDestination(rng), chtest.NewRandomExternalDestination(rng), chtest.NewRandomExternalDestination(rng)
	allocation := alloc(a, 6, b, 4)

	tests := []struct {
		name      string
		recipient types.Destination
		funding   int64
		want      int64
	}{
		{"first, underfunded", a, 1, 1},
		{"first, funded", a, 10, 6},
		{"first, overfunded", a, 20, 6},
		{"second, nothing left", b, 6, 0},
		{"second, partly", b, 8, 2},
		{"second, funded", b, 10, 4},
		{"not listed", c, 10, 0},
		{"no funding", a, 0, 0},
		{"negative funding", a, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireAmount(t, tt.want, assetholder.Affords(tt.recipient, allocation, big.NewInt(tt.funding)))
		})
	}

	t.Run("repeated recipient", func(t *testing.T) {
		requireAmount(t, 5, assetholder.Affords(a, alloc(a, 2, b, 1, a, 3), big.NewInt(6)))
		requireAmount(t, 3, assetholder.Affords(a, alloc(a, 2, b, 1, a, 3), big.NewInt(4)))
	})
}

func TestAffordsMonotonic(t *testing.T) {
	rng := pkgtest.Prng(t)
	dests := []types.Destination{
		chtest.NewRandomExternalDestination(rng),
		chtest.NewRandomChannelDestination(rng),
		chtest.NewRandomExternalDestination(rng),
	}
	for i := 0; i < 50; i++ {
		allocation := chtest.NewRandomAllocation(rng, 100, dests...)
		for _, d := range dests {
			bound := assetholder.Affords(d, allocation, allocation.Total())
			prev := new(big.Int)
			for funding := int64(0); funding <= allocation.Total().Int64()+5; funding++ {
				got := assetholder.Affords(d, allocation, big.NewInt(funding))
				require.True(t, got.Cmp(prev) >= 0, "affords decreased")
				require.True(t, got.Cmp(bound) <= 0, "affords exceeds allocation")
				prev = got
			}
		}
	}
}

func TestReduce(t *testing.T) {
	rng := pkgtest.Prng(t)
	a, b := chtest.NewRandomExternalDestination(rng), chtest.NewRandomExternalDestination(rng)
	allocation := alloc(a, 6, b, 4)

	reduced, err := assetholder.Reduce(allocation, b, big.NewInt(2))
	require.NoError(t, err)
	require.True(t, reduced.Equal(alloc(a, 6, b, 2)))
	require.True(t, allocation.Equal(alloc(a, 6, b, 4)), "input must not change")

	reduced, err = assetholder.Reduce(allocation, a, big.NewInt(6))
	require.NoError(t, err)
	require.True(t, reduced.Equal(alloc(a, 0, b, 4)))

	reduced, err = assetholder.Reduce(alloc(a, 2, b, 1, a, 3), a, big.NewInt(4))
	require.NoError(t, err)
	require.True(t, reduced.Equal(alloc(a, 0, b, 1, a, 1)))

	_, err = assetholder.Reduce(allocation, b, big.NewInt(5))
	require.ErrorIs(t, err, assetholder.ErrInsufficientFunds)
	require.EqualError(t, err, assetholder.ReasonReduceInsufficient)
	var revert *channel.RevertError
	require.ErrorAs(t, err, &revert)
}

func TestReprioritize(t *testing.T) {
	rng := pkgtest.Prng(t)
	a, b, c := chtest.NewRandomExternalDestination(rng), chtest.NewRandomExternalDestination(rng), chtest.NewRandomExternalDestination(rng)
	allocation := alloc(a, 6, b, 4)

	t.Run("reversed", func(t *testing.T) {
		got := assetholder.Reprioritize(allocation, types.Guarantee{Destinations: []types.Destination{b, a}})
		require.True(t, got.Equal(alloc(b, 4, a, 6)))
	})

	t.Run("subset", func(t *testing.T) {
		got := assetholder.Reprioritize(allocation, types.Guarantee{Destinations: []types.Destination{b}})
		require.True(t, got.Equal(alloc(b, 4)))
	})

	t.Run("missing destination", func(t *testing.T) {
		got := assetholder.Reprioritize(allocation, types.Guarantee{Destinations: []types.Destination{c, a}})
		require.True(t, got.Equal(alloc(a, 6)))
	})

	t.Run("copies amounts", func(t *testing.T) {
		got := assetholder.Reprioritize(allocation, types.Guarantee{Destinations: []types.Destination{a, b}})
		got[0].Amount.SetInt64(0)
		requireAmount(t, 6, allocation[0].Amount)
	})
}
