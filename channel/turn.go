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
)

// Mover returns the index of the participant whose turn turnNum is.
func Mover(turnNum uint64, nParticipants int) int {
	return int(turnNum % uint64(nParticipants))
}

// IsAddressInArray returns whether addr is one of addrs.
func IsAddressInArray(addr common.Address, addrs []common.Address) bool {
	for _, a := range addrs {
		if a == addr {
			return true
		}
	}
	return false
}

// StateTurnNum returns the turn number of the i-th of numStates states
// ending at largestTurnNum.
func StateTurnNum(largestTurnNum uint64, numStates, i int) uint64 {
	return largestTurnNum + 1 - uint64(numStates) + uint64(i)
}

// IsFinalAt returns whether the i-th of numStates states is final when the
// last isFinalCount states are final.
func IsFinalAt(i, numStates, isFinalCount int) bool {
	return i >= numStates-isFinalCount
}

// AcceptableWhoSignedWhat checks that every participant signed a state at or
// after the last state they moved in. whoSignedWhat[i] is the index into the
// numStates states ending at largestTurnNum that participant i signed.
func AcceptableWhoSignedWhat(whoSignedWhat []int, largestTurnNum uint64, nParticipants, numStates int) (bool, error) {
	if len(whoSignedWhat) != nParticipants {
		return false, Revert(ErrUnacceptableWhoSignedWhat, ReasonWhoSignedWhatLength)
	}
	n := uint64(nParticipants)
	for i, signed := range whoSignedWhat {
		if signed < 0 || signed >= numStates {
			return false, nil
		}
		offset := (n + largestTurnNum%n - uint64(i)) % n
		if uint64(signed)+offset < uint64(numStates-1) {
			return false, nil
		}
	}
	return true, nil
}
