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

	"github.com/stretchr/testify/require"
	pkgtest "polycry.pt/poly-go/test"

	"github.com/statechannels/nitro-protocol/channel"
	chtest "github.com/statechannels/nitro-protocol/channel/test"
	"github.com/statechannels/nitro-protocol/channel/types"
)

func TestCounter(t *testing.T) {
	c, err := channel.DecodeCounter(channel.EncodeCounter(42))
	require.NoError(t, err)
	require.Equal(t, uint64(42), c.Uint64())
	require.Len(t, channel.EncodeCounter(0), 32)

	_, err = channel.DecodeCounter([]byte{1, 2, 3})
	require.Error(t, err)
}

func counterPart(outcome []byte, counter uint64) types.VariablePart {
	return types.VariablePart{Outcome: outcome, AppData: channel.EncodeCounter(counter)}
}

func TestCountingApp(t *testing.T) {
	app := channel.CountingApp{}
	outcome, other := []byte{1}, []byte{2}

	require.NoError(t, app.ValidTransition(counterPart(outcome, 3), counterPart(outcome, 4), 4, 2))

	err := app.ValidTransition(counterPart(outcome, 3), counterPart(outcome, 5), 4, 2)
	require.ErrorIs(t, err, channel.ErrInvalidTransition)
	require.EqualError(t, err, "CountingApp: Counter must be incremented")

	err = app.ValidTransition(counterPart(outcome, 3), counterPart(other, 4), 4, 2)
	require.ErrorIs(t, err, channel.ErrInvalidTransition)
	require.EqualError(t, err, "CountingApp: Outcome must not change")

	err = app.ValidTransition(counterPart(outcome, 3), types.VariablePart{Outcome: outcome}, 4, 2)
	require.ErrorIs(t, err, channel.ErrInvalidTransition)
}

func TestAppRegistry(t *testing.T) {
	rng := pkgtest.Prng(t)
	counting, trivial := chtest.NewRandomAddress(rng), chtest.NewRandomAddress(rng)
	apps := channel.NewAppRegistry()
	apps.Register(counting, channel.CountingApp{})
	apps.Register(trivial, channel.TrivialApp{})

	_, err := apps.App(counting)
	require.NoError(t, err)
	_, err = apps.App(chtest.NewRandomAddress(rng))
	require.ErrorIs(t, err, channel.ErrUnknownApp)

	fp := types.FixedPart{AppDefinition: trivial}
	outcome, other := []byte{1}, []byte{2}
	a, b := counterPart(outcome, 1), counterPart(outcome, 7)

	t.Run("trivial", func(t *testing.T) {
		require.NoError(t, apps.ValidTransition(fp, a, b, 2, false, false))
		require.NoError(t, apps.ValidTransition(fp, a, counterPart(other, 1), 2, false, false))
	})

	t.Run("final-same-outcome", func(t *testing.T) {
		require.NoError(t, apps.ValidTransition(fp, a, b, 2, false, true))
		require.NoError(t, apps.ValidTransition(fp, a, b, 2, true, true))
	})

	t.Run("final-other-outcome", func(t *testing.T) {
		err := apps.ValidTransition(fp, a, counterPart(other, 1), 2, false, true)
		require.ErrorIs(t, err, channel.ErrInvalidTransition)
		require.EqualError(t, err, channel.ReasonFinalOutcomeChanged)
	})

	t.Run("final-to-non-final", func(t *testing.T) {
		err := apps.ValidTransition(fp, a, b, 2, true, false)
		require.ErrorIs(t, err, channel.ErrInvalidTransition)
		require.EqualError(t, err, channel.ReasonFinalToNonFinal)
	})

	t.Run("counting", func(t *testing.T) {
		fp := types.FixedPart{AppDefinition: counting}
		require.NoError(t, apps.ValidTransition(fp, a, counterPart(outcome, 2), 2, false, false))
		require.ErrorIs(t, apps.ValidTransition(fp, a, b, 2, false, false), channel.ErrInvalidTransition)
		// final states skip the app
		require.NoError(t, apps.ValidTransition(fp, a, b, 2, false, true))
	})

	t.Run("unknown", func(t *testing.T) {
		fp := types.FixedPart{AppDefinition: chtest.NewRandomAddress(rng)}
		require.ErrorIs(t, apps.ValidTransition(fp, a, b, 2, false, false), channel.ErrUnknownApp)
	})
}
