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

package wire

import (
	"github.com/pkg/errors"
	"github.com/stellar/go/xdr"

	"github.com/statechannels/nitro-protocol/channel/types"
	"github.com/statechannels/nitro-protocol/wire/scval"
)

const (
	SymbolVariablePartOutcome xdr.ScSymbol = "outcome"
	SymbolVariablePartAppData xdr.ScSymbol = "app_data"
)

// VariablePart is the xdr form of a types.VariablePart.
type VariablePart struct {
	types.VariablePart
}

func (s VariablePart) ToScVal() (xdr.ScVal, error) {
	m, err := MakeSymbolScMap(
		[]xdr.ScSymbol{SymbolVariablePartOutcome, SymbolVariablePartAppData},
		[]xdr.ScVal{
			scval.MustWrapScBytes(nonNil(s.Outcome)),
			scval.MustWrapScBytes(nonNil(s.AppData)),
		},
	)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return scval.WrapScMap(m)
}

func (s *VariablePart) FromScVal(v xdr.ScVal) error {
	m, err := ExpectMap(v, 2)
	if err != nil {
		return err
	}
	outcome, err := GetBytes(SymbolVariablePartOutcome, m, 0)
	if err != nil {
		return err
	}
	appData, err := GetBytes(SymbolVariablePartAppData, m, 0)
	if err != nil {
		return err
	}
	s.Outcome = outcome
	s.AppData = appData
	return nil
}

func (s VariablePart) MarshalBinary() ([]byte, error) {
	v, err := s.ToScVal()
	if err != nil {
		return nil, err
	}
	return MarshalScVal(v)
}

func (s *VariablePart) UnmarshalBinary(data []byte) error {
	v, err := UnmarshalScVal(data)
	if err != nil {
		return err
	}
	return s.FromScVal(v)
}

// VariableParts wraps a list of variable parts into a xdr vector.
func VariableParts(vps []types.VariablePart) (xdr.ScVal, error) {
	vec := make(xdr.ScVec, len(vps))
	for i, vp := range vps {
		v, err := VariablePart{vp}.ToScVal()
		if err != nil {
			return xdr.ScVal{}, errors.WithMessagef(err, "variable part %d", i)
		}
		vec[i] = v
	}
	return scval.WrapScVec(vec)
}

// VariablePartsFromScVal decodes a vector produced by VariableParts.
func VariablePartsFromScVal(v xdr.ScVal) ([]types.VariablePart, error) {
	vec, ok := v.GetVec()
	if !ok || vec == nil {
		return nil, errors.New("expected vec")
	}
	vps := make([]types.VariablePart, len(*vec))
	for i, e := range *vec {
		var vp VariablePart
		if err := vp.FromScVal(e); err != nil {
			return nil, errors.WithMessagef(err, "variable part %d", i)
		}
		vps[i] = vp.VariablePart
	}
	return vps, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
