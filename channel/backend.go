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
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/statechannels/nitro-protocol/channel/types"
	"github.com/statechannels/nitro-protocol/wallet"
)

type backend struct{}

// Backend computes channel ids and signs and verifies states.
var Backend = backend{}

// CalcID computes the id of the channel described by the fixed part.
func (b backend) CalcID(fp types.FixedPart) types.ID {
	return fp.ChannelID()
}

// Sign signs the hash of the state.
func (b backend) Sign(acc *wallet.Account, state types.State) (wallet.Signature, error) {
	h, err := state.Hash()
	if err != nil {
		return wallet.Signature{}, errors.WithMessage(err, "hashing state")
	}
	return acc.SignHash(h)
}

// Verify checks that addr signed the state.
func (b backend) Verify(addr common.Address, state types.State, sig wallet.Signature) (bool, error) {
	h, err := state.Hash()
	if err != nil {
		return false, errors.WithMessage(err, "hashing state")
	}
	return wallet.Backend.VerifySignature(h, sig, addr)
}

// SignChallenge produces the challenger signature for a forceMove up to
// largestTurnNum.
func (b backend) SignChallenge(acc *wallet.Account, largestTurnNum uint64, id types.ID) (wallet.Signature, error) {
	return acc.SignHash(types.ChallengeMessage(largestTurnNum, id))
}
