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

package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ChallengeMessage is the digest a challenger signs to start a challenge at
// largestTurnNum.
func ChallengeMessage(largestTurnNum uint64, id ID) common.Hash {
	return Keccak256(pack(
		[]abi.Type{abiUint256, abiBytes32, abiString},
		bigUint(largestTurnNum), [32]byte(id), "forceMove",
	))
}

// WithdrawAuthorization encodes the data a participant signs to allow
// sender to withdraw amount to destination.
func WithdrawAuthorization(participant, destination common.Address, amount *big.Int, sender common.Address) []byte {
	return pack(
		[]abi.Type{abiAddress, abiAddress, abiUint256, abiAddress},
		participant, destination, bigOrZero(amount), sender,
	)
}
