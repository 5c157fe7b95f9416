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
	"math/big"
	"math/rand"

	"github.com/ethereum/go-ethereum/common"

	"github.com/statechannels/nitro-protocol/channel/types"
)

// NewRandomAddress returns a random address.
func NewRandomAddress(rng *rand.Rand) common.Address {
	var a common.Address
	rng.Read(a[:])
	return a
}

// NewRandomExternalDestination returns a random padded address.
func NewRandomExternalDestination(rng *rand.Rand) types.Destination {
	return types.AddressToDestination(NewRandomAddress(rng))
}

// NewRandomChannelDestination returns a random channel id as destination.
func NewRandomChannelDestination(rng *rand.Rand) types.Destination {
	var id types.ID
	rng.Read(id[:])
	return types.ChannelDestination(id)
}

// NewRandomAllocation allocates a random amount below maxAmount to each
// destination.
func NewRandomAllocation(rng *rand.Rand, maxAmount int64, dests ...types.Destination) types.Allocation {
	alloc := make(types.Allocation, len(dests))
	for i, d := range dests {
		alloc[i] = types.AllocationItem{Destination: d, Amount: big.NewInt(rng.Int63n(maxAmount))}
	}
	return alloc
}

// NewRandomOutcome returns an outcome with one random allocation per asset
// holder.
func NewRandomOutcome(rng *rand.Rand, assetHolders []common.Address, dests ...types.Destination) types.Outcome {
	o := make(types.Outcome, len(assetHolders))
	for i, h := range assetHolders {
		o[i] = types.AssetOutcome{AssetHolderAddress: h, Item: NewRandomAllocation(rng, 100, dests...)}
	}
	return o
}
