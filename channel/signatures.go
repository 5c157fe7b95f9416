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

	"github.com/statechannels/nitro-protocol/wallet"
)

// ValidSignatures checks that participant i signed
// stateHashes[whoSignedWhat[i]] and that whoSignedWhat is acceptable for
// states ending at largestTurnNum.
func ValidSignatures(largestTurnNum uint64, participants []common.Address, stateHashes []common.Hash, sigs []wallet.Signature, whoSignedWhat []int) error {
	if len(sigs) != len(participants) {
		return Revert(ErrInvalidInput, ReasonWrongNumberOfSignatures)
	}
	ok, err := AcceptableWhoSignedWhat(whoSignedWhat, largestTurnNum, len(participants), len(stateHashes))
	if err != nil {
		return err
	}
	if !ok {
		return Revert(ErrUnacceptableWhoSignedWhat, ReasonUnacceptableWSW)
	}
	for i, p := range participants {
		signer, err := wallet.Backend.RecoverSigner(stateHashes[whoSignedWhat[i]], sigs[i])
		if err != nil || signer != p {
			return Revert(ErrInvalidSignatures, ReasonInvalidSignatures)
		}
	}
	return nil
}

// recoverSigner returns the zero address for unrecoverable signatures.
func recoverSigner(digest common.Hash, sig wallet.Signature) common.Address {
	signer, err := wallet.Backend.RecoverSigner(digest, sig)
	if err != nil {
		return common.Address{}
	}
	return signer
}
