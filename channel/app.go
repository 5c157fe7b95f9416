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

package channel

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"polycry.pt/poly-go/sync"

	"github.com/statechannels/nitro-protocol/channel/types"
)

// App decides which transitions between non-final states of a channel are
// allowed.
type App interface {
	// ValidTransition returns an error if the move from a to b, where b has
	// turn number turnNumB, is not allowed.
	ValidTransition(a, b types.VariablePart, turnNumB uint64, nParticipants int) error
}

// AppRegistry maps app definitions to their implementation.
type AppRegistry struct {
	mu   sync.Mutex
	apps map[common.Address]App
}

// NewAppRegistry returns an empty registry.
func NewAppRegistry() *AppRegistry {
	return &AppRegistry{apps: make(map[common.Address]App)}
}

// Register sets the app for appDefinition, replacing any previous one.
func (r *AppRegistry) Register(appDefinition common.Address, app App) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[appDefinition] = app
}

// App returns the app registered for appDefinition.
func (r *AppRegistry) App(appDefinition common.Address) (App, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[appDefinition]
	if !ok {
		return nil, errors.WithMessagef(ErrUnknownApp, "app %s", appDefinition.Hex())
	}
	return app, nil
}

// ValidTransition applies the rules every channel shares and then asks the
// app of the channel.
func (r *AppRegistry) ValidTransition(fp types.FixedPart, a, b types.VariablePart, turnNumB uint64, aIsFinal, bIsFinal bool) error {
	if bIsFinal {
		if !bytes.Equal(a.Outcome, b.Outcome) {
			return Revert(ErrInvalidTransition, ReasonFinalOutcomeChanged)
		}
		return nil
	}
	if aIsFinal {
		return Revert(ErrInvalidTransition, ReasonFinalToNonFinal)
	}
	app, err := r.App(fp.AppDefinition)
	if err != nil {
		return err
	}
	if err := app.ValidTransition(a, b, turnNumB, fp.NumParticipants()); err != nil {
		var revert *RevertError
		if errors.As(err, &revert) {
			return err
		}
		return Revert(ErrInvalidTransition, err.Error())
	}
	return nil
}

// TrivialApp allows every transition.
type TrivialApp struct{}

// ValidTransition implements App.
func (TrivialApp) ValidTransition(types.VariablePart, types.VariablePart, uint64, int) error {
	return nil
}

var counterArgs = abi.Arguments{{Type: mustABIType("uint256")}}

// CountingApp requires every move to increment a counter held in the app
// data and to leave the outcome untouched.
type CountingApp struct{}

// ValidTransition implements App.
func (CountingApp) ValidTransition(a, b types.VariablePart, _ uint64, _ int) error {
	ca, err := DecodeCounter(a.AppData)
	if err != nil {
		return Revert(ErrInvalidTransition, "CountingApp: invalid app data")
	}
	cb, err := DecodeCounter(b.AppData)
	if err != nil {
		return Revert(ErrInvalidTransition, "CountingApp: invalid app data")
	}
	if cb.Cmp(new(big.Int).Add(ca, big.NewInt(1))) != 0 {
		return Revert(ErrInvalidTransition, "CountingApp: Counter must be incremented")
	}
	if !bytes.Equal(a.Outcome, b.Outcome) {
		return Revert(ErrInvalidTransition, "CountingApp: Outcome must not change")
	}
	return nil
}

// EncodeCounter encodes the app data of a CountingApp channel.
func EncodeCounter(counter uint64) []byte {
	data, err := counterArgs.Pack(new(big.Int).SetUint64(counter))
	if err != nil {
		panic(err)
	}
	return data
}

// DecodeCounter decodes the app data of a CountingApp channel.
func DecodeCounter(appData []byte) (*big.Int, error) {
	vals, err := counterArgs.Unpack(appData)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(vals[0], new(big.Int)).(*big.Int), nil
}

func mustABIType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}
