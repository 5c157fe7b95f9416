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
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stellar/go/xdr"

	"github.com/statechannels/nitro-protocol/wire/scval"
)

// Digest is a 32 byte hash encoded as xdr bytes.
type Digest common.Hash

func (d Digest) ToScVal() (xdr.ScVal, error) {
	return scval.WrapScBytes(d[:])
}

func (d *Digest) FromScVal(v xdr.ScVal) error {
	b, ok := v.GetBytes()
	if !ok {
		return errors.New("expected bytes")
	}
	if len(b) != common.HashLength {
		return errors.Errorf("expected length of %d bytes, got %d", common.HashLength, len(b))
	}
	copy(d[:], b)
	return nil
}

func (d Digest) MarshalBinary() ([]byte, error) {
	v, err := d.ToScVal()
	if err != nil {
		return nil, err
	}
	return MarshalScVal(v)
}

func (d *Digest) UnmarshalBinary(data []byte) error {
	v, err := UnmarshalScVal(data)
	if err != nil {
		return err
	}
	return d.FromScVal(v)
}

// Hash returns the digest as common.Hash.
func (d Digest) Hash() common.Hash {
	return common.Hash(d)
}
