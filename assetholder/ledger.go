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

package assetholder

import (
	"math/big"

	"github.com/statechannels/nitro-protocol/channel"
	"github.com/statechannels/nitro-protocol/channel/types"
)

// Affords returns how much of funding is paid to recipient when the
// allocation is paid out in order. Repeated entries for recipient are
// summed.
func Affords(recipient types.Destination, allocation types.Allocation, funding *big.Int) *big.Int {
	remaining := new(big.Int).Set(nonNil(funding))
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}
	result := new(big.Int)
	for _, item := range allocation {
		if remaining.Sign() == 0 {
			break
		}
		pay := minBig(nonNil(item.Amount), remaining)
		if item.Destination == recipient {
			result.Add(result, pay)
		}
		remaining.Sub(remaining, pay)
	}
	return result
}

// Reduce returns a copy of the allocation in which the amounts allocated to
// recipient are lowered by amount in priority order.
func Reduce(allocation types.Allocation, recipient types.Destination, amount *big.Int) (types.Allocation, error) {
	reduced := allocation.Clone()
	left := new(big.Int).Set(nonNil(amount))
	for i := range reduced {
		if left.Sign() == 0 {
			break
		}
		if reduced[i].Destination != recipient {
			continue
		}
		cut := minBig(reduced[i].Amount, left)
		reduced[i].Amount.Sub(reduced[i].Amount, cut)
		left.Sub(left, cut)
	}
	if left.Sign() != 0 {
		return nil, channel.Revert(ErrInsufficientFunds, ReasonReduceInsufficient)
	}
	return reduced, nil
}

// Reprioritize orders the allocation by the destinations of the guarantee.
// Destinations missing in the allocation are skipped, allocation items not
// named by the guarantee are dropped.
func Reprioritize(allocation types.Allocation, guarantee types.Guarantee) types.Allocation {
	res := make(types.Allocation, 0, len(guarantee.Destinations))
	for _, d := range guarantee.Destinations {
		for _, item := range allocation {
			if item.Destination == d {
				res = append(res, types.AllocationItem{Destination: d, Amount: new(big.Int).Set(nonNil(item.Amount))})
				break
			}
		}
	}
	return res
}

// prune drops the items that are fully paid.
func prune(allocation types.Allocation) types.Allocation {
	var res types.Allocation
	for _, item := range allocation {
		if item.Amount.Sign() > 0 {
			res = append(res, item)
		}
	}
	return res
}

// payout is the amount paid to a destination by an operation.
type payout struct {
	destination types.Destination
	amount      *big.Int
}

// pay deducts up to funds from the allocation item at i and records the
// payout. It returns the remaining funds.
func pay(allocation types.Allocation, i int, funds *big.Int, payouts []payout) (*big.Int, []payout) {
	amount := minBig(allocation[i].Amount, funds)
	if amount.Sign() == 0 {
		return funds, payouts
	}
	allocation[i].Amount = new(big.Int).Sub(allocation[i].Amount, amount)
	return new(big.Int).Sub(funds, amount), append(payouts, payout{allocation[i].Destination, amount})
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

func nonNil(i *big.Int) *big.Int {
	if i == nil {
		return new(big.Int)
	}
	return i
}
