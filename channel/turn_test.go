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

package channel_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	pkgtest "polycry.pt/poly-go/test"

	"github.com/statechannels/nitro-protocol/channel"
	wtest "github.com/statechannels/nitro-protocol/wallet/test"
)

func TestMover(t *testing.T) {
	require.Equal(t, 0, channel.Mover(0, 3))
	require.Equal(t, 2, channel.Mover(5, 3))
	require.Equal(t, 1, channel.Mover(7, 2))
	require.Equal(t, 0, channel.Mover(42, 1))
}

func TestIsAddressInArray(t *testing.T) {
	rng := pkgtest.Prng(t)
	addrs := []common.Address{wtest.NewRandomAddress(rng), wtest.NewRandomAddress(rng)}
	require.True(t, channel.IsAddressInArray(addrs[1], addrs))
	require.False(t, channel.IsAddressInArray(wtest.NewRandomAddress(rng), addrs))
	require.False(t, channel.IsAddressInArray(addrs[0], nil))
}

func TestStateTurnNum(t *testing.T) {
	require.Equal(t, uint64(6), channel.StateTurnNum(8, 3, 0))
	require.Equal(t, uint64(8), channel.StateTurnNum(8, 3, 2))
	require.Equal(t, uint64(0), channel.StateTurnNum(0, 1, 0))
}

func TestIsFinalAt(t *testing.T) {
	require.False(t, channel.IsFinalAt(0, 3, 0))
	require.False(t, channel.IsFinalAt(2, 3, 0))
	require.False(t, channel.IsFinalAt(1, 3, 1))
	require.True(t, channel.IsFinalAt(2, 3, 1))
	require.True(t, channel.IsFinalAt(0, 3, 3))
}

func TestAcceptableWhoSignedWhat(t *testing.T) {
	tests := []struct {
		whoSignedWhat  []int
		largestTurnNum uint64
		nStates        int
		acceptable     bool
	}{
		{[]int{0, 1, 2}, 2, 3, true},
		{[]int{0, 1, 2}, 5, 3, true},
		{[]int{0, 0, 1}, 2, 2, true},
		{[]int{0, 0, 0}, 2, 1, true},
		{[]int{0, 0, 0}, 8, 1, true},
		{[]int{0, 0, 2}, 2, 3, false},
		{[]int{0, 0, 2}, 11, 3, false},
		{[]int{2, 0, 1}, 3, 3, true},
		{[]int{0, 0, 3}, 2, 3, false},
		{[]int{-1, 0, 0}, 2, 1, false},
	}
	for _, tc := range tests {
		ok, err := channel.AcceptableWhoSignedWhat(tc.whoSignedWhat, tc.largestTurnNum, 3, tc.nStates)
		require.NoError(t, err)
		require.Equal(t, tc.acceptable, ok, "whoSignedWhat %v, largestTurnNum %d, nStates %d", tc.whoSignedWhat, tc.largestTurnNum, tc.nStates)
	}
}

func TestAcceptableWhoSignedWhatLength(t *testing.T) {
	_, err := channel.AcceptableWhoSignedWhat([]int{0, 0}, 2, 3, 1)
	require.ErrorIs(t, err, channel.ErrUnacceptableWhoSignedWhat)
	require.EqualError(t, err, channel.ReasonWhoSignedWhatLength)
}

// Every participant signing their own latest turn is acceptable for any
// largest turn number.
func TestAcceptableWhoSignedWhatOwnTurns(t *testing.T) {
	const n = 4
	for largest := uint64(n - 1); largest < 20; largest++ {
		wsw := make([]int, n)
		for i := range wsw {
			// participant i moved last at the state with turn number
			// congruent to i.
			for j := 0; j < n; j++ {
				if int(channel.StateTurnNum(largest, n, j)%n) == i {
					wsw[i] = j
				}
			}
		}
		ok, err := channel.AcceptableWhoSignedWhat(wsw, largest, n, n)
		require.NoError(t, err)
		require.True(t, ok, "largestTurnNum %d", largest)
	}
}
