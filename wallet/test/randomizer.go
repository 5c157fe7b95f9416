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

package test

import (
	"bytes"
	"math/rand"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/statechannels/nitro-protocol/wallet"
)

// NewRandomAccount creates an account from rng and panics on failure.
func NewRandomAccount(rng *rand.Rand) *wallet.Account {
	acc, err := wallet.NewRandomAccount(rng)
	if err != nil {
		panic(err)
	}
	return acc
}

// NewRandomAccounts creates n accounts.
func NewRandomAccounts(rng *rand.Rand, n int) []*wallet.Account {
	accs := make([]*wallet.Account, n)
	for i := range accs {
		accs[i] = NewRandomAccount(rng)
	}
	return accs
}

// NewRandomAddress returns the address of a fresh account.
func NewRandomAddress(rng *rand.Rand) common.Address {
	return NewRandomAccount(rng).Address()
}

// Addresses returns the addresses of the accounts in order.
func Addresses(accs []*wallet.Account) []common.Address {
	addrs := make([]common.Address, len(accs))
	for i, a := range accs {
		addrs[i] = a.Address()
	}
	return addrs
}

// SortAddresses sorts addresses in place by their bytes.
func SortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
}
