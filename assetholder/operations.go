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
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/statechannels/nitro-protocol/channel"
	"github.com/statechannels/nitro-protocol/channel/types"
	"github.com/statechannels/nitro-protocol/event"
	"github.com/statechannels/nitro-protocol/store"
	"github.com/statechannels/nitro-protocol/wallet"
)

type (
	// WithdrawParams authorizes moving Amount out of the holdings of
	// Participant to the external Destination. Sig is the participant's
	// signature over types.WithdrawAuthorization.
	WithdrawParams struct {
		Participant common.Address
		Destination common.Address
		Amount      *big.Int
		Sender      common.Address
		Sig         wallet.Signature
	}

	// ClaimParams claims Amount for Recipient from the funds of the
	// Guarantor channel.
	ClaimParams struct {
		Guarantor  types.ID
		Guarantee  types.Guarantee
		Allocation types.Allocation
		Recipient  types.Destination
		Amount     *big.Int
	}
)

// Deposit credits destination with at most amount so that its holdings
// become expectedHeld+amount. It returns the credited amount and the part
// of amount that is refunded.
func (h *AssetHolder) Deposit(ctx context.Context, destination types.Destination, expectedHeld, amount *big.Int) (credited, refund *big.Int, err error) {
	err = h.run(ctx, "deposit", func(txn *store.Txn) ([]event.Event, error) {
		if err := validAmount(expectedHeld); err != nil {
			return nil, err
		}
		if err := validAmount(amount); err != nil {
			return nil, err
		}
		held, err := h.holdings(ctx, txn, destination)
		if err != nil {
			return nil, err
		}
		if held.Cmp(expectedHeld) < 0 {
			return nil, channel.Revert(ErrInsufficientFunds, ReasonDepositLessThanExpected)
		}
		credited = new(big.Int).Add(expectedHeld, amount)
		credited.Sub(credited, held)
		if credited.Sign() < 0 {
			credited.SetInt64(0)
		}
		refund = new(big.Int).Sub(amount, credited)
		newHeld, err := h.addHoldings(ctx, txn, destination, credited)
		if err != nil {
			return nil, err
		}
		return []event.Event{&event.DepositedEvent{
			AssetHolder:         h.address,
			Destination:         destination,
			AmountDeposited:     credited,
			DestinationHoldings: newHeld,
		}}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return credited, refund, nil
}

// Withdraw removes funds of a participant from the ledger. Paying them out
// to the destination is left to the consumer of the Withdrawn event.
func (h *AssetHolder) Withdraw(ctx context.Context, p WithdrawParams) error {
	return h.run(ctx, "withdraw", func(txn *store.Txn) ([]event.Event, error) {
		return h.withdraw(ctx, txn, p)
	})
}

func (h *AssetHolder) withdraw(ctx context.Context, txn *store.Txn, p WithdrawParams) ([]event.Event, error) {
	if err := validAmount(p.Amount); err != nil {
		return nil, err
	}
	from := types.AddressToDestination(p.Participant)
	held, err := h.holdings(ctx, txn, from)
	if err != nil {
		return nil, err
	}
	if held.Cmp(p.Amount) < 0 {
		return nil, channel.Revert(ErrInsufficientFunds, ReasonWithdrawOverdrawn)
	}
	auth := types.WithdrawAuthorization(p.Participant, p.Destination, p.Amount, p.Sender)
	signer, err := wallet.Backend.RecoverDataSigner(auth, p.Sig)
	if err != nil || signer != p.Participant {
		return nil, channel.Revert(ErrUnauthorized, ReasonWithdrawUnauthorized)
	}
	if err := h.setHoldings(txn, from, new(big.Int).Sub(held, p.Amount)); err != nil {
		return nil, err
	}
	return []event.Event{&event.WithdrawnEvent{
		AssetHolder: h.address,
		Participant: p.Participant,
		Destination: p.Destination,
		Amount:      new(big.Int).Set(p.Amount),
	}}, nil
}

// Transfer moves amount from the holdings of channel id to destination.
// The allocation must be the one recorded for the channel and must afford
// the transfer.
func (h *AssetHolder) Transfer(ctx context.Context, id types.ID, allocation types.Allocation, destination types.Destination, amount *big.Int) error {
	return h.run(ctx, "transfer", func(txn *store.Txn) ([]event.Event, error) {
		return h.transfer(ctx, txn, id, allocation, destination, amount)
	})
}

// TransferAndWithdraw transfers amount from channel id to the participant
// and withdraws it in the same transaction.
func (h *AssetHolder) TransferAndWithdraw(ctx context.Context, id types.ID, allocation types.Allocation, p WithdrawParams) error {
	return h.run(ctx, "transferAndWithdraw", func(txn *store.Txn) ([]event.Event, error) {
		transferred, err := h.transfer(ctx, txn, id, allocation, types.AddressToDestination(p.Participant), p.Amount)
		if err != nil {
			return nil, err
		}
		withdrawn, err := h.withdraw(ctx, txn, p)
		if err != nil {
			return nil, err
		}
		return append(transferred, withdrawn...), nil
	})
}

func (h *AssetHolder) transfer(ctx context.Context, txn *store.Txn, id types.ID, allocation types.Allocation, destination types.Destination, amount *big.Int) ([]event.Event, error) {
	if err := validAmount(amount); err != nil {
		return nil, err
	}
	if err := validAllocation(allocation); err != nil {
		return nil, err
	}
	if err := h.requireOutcome(ctx, txn, id, allocation.Hash(), ReasonTransferMismatch); err != nil {
		return nil, err
	}
	source := types.ChannelDestination(id)
	held, err := h.holdings(ctx, txn, source)
	if err != nil {
		return nil, err
	}
	if amount.Cmp(Affords(destination, allocation, held)) > 0 {
		return nil, channel.Revert(ErrInsufficientFunds, ReasonTransferUnaffordable)
	}
	reduced, err := Reduce(allocation, destination, amount)
	if err != nil {
		return nil, err
	}
	if err := h.setOutcomeHash(txn, id, reduced.Hash()); err != nil {
		return nil, err
	}
	return h.payOut(ctx, txn, id, []payout{{destination, new(big.Int).Set(amount)}})
}

// TransferAll pays out the holdings of channel id in allocation order.
// The unpaid remainder of the allocation is recorded as the channel's new
// outcome.
func (h *AssetHolder) TransferAll(ctx context.Context, id types.ID, allocation types.Allocation) error {
	return h.run(ctx, "transferAll", func(txn *store.Txn) ([]event.Event, error) {
		if err := validAllocation(allocation); err != nil {
			return nil, err
		}
		if err := h.requireOutcome(ctx, txn, id, allocation.Hash(), ReasonTransferAllMismatch); err != nil {
			return nil, err
		}
		funds, err := h.holdings(ctx, txn, types.ChannelDestination(id))
		if err != nil {
			return nil, err
		}
		remaining := allocation.Clone()
		var payouts []payout
		for i := range remaining {
			if funds.Sign() == 0 {
				break
			}
			funds, payouts = pay(remaining, i, funds, payouts)
		}
		if err := h.storeAllocation(txn, id, prune(remaining)); err != nil {
			return nil, err
		}
		return h.payOut(ctx, txn, id, payouts)
	})
}

// Claim pays amount to the recipient from the guarantor channel, which
// guarantees the target channel's allocation. The guarantee reorders the
// allocation before the affordability check.
func (h *AssetHolder) Claim(ctx context.Context, p ClaimParams) error {
	return h.run(ctx, "claim", func(txn *store.Txn) ([]event.Event, error) {
		if err := validAmount(p.Amount); err != nil {
			return nil, err
		}
		if err := validAllocation(p.Allocation); err != nil {
			return nil, err
		}
		if err := h.requireOutcome(ctx, txn, p.Guarantor, types.HashAssetOutcome(p.Guarantee), ReasonClaimGuaranteeMismatch); err != nil {
			return nil, err
		}
		target := p.Guarantee.TargetChannelID
		if err := h.requireOutcome(ctx, txn, target, p.Allocation.Hash(), ReasonClaimAllocationMismatch); err != nil {
			return nil, err
		}
		held, err := h.holdings(ctx, txn, types.ChannelDestination(p.Guarantor))
		if err != nil {
			return nil, err
		}
		prioritized := Reprioritize(p.Allocation, p.Guarantee)
		if p.Amount.Cmp(Affords(p.Recipient, prioritized, held)) > 0 {
			return nil, channel.Revert(ErrInsufficientFunds, ReasonClaimUnaffordable)
		}
		reduced, err := Reduce(p.Allocation, p.Recipient, p.Amount)
		if err != nil {
			return nil, err
		}
		if err := h.setOutcomeHash(txn, target, reduced.Hash()); err != nil {
			return nil, err
		}
		return h.payOut(ctx, txn, p.Guarantor, []payout{{p.Recipient, new(big.Int).Set(p.Amount)}})
	})
}

// ClaimAll pays out all holdings of the guarantor channel to the target
// allocation. Destinations named by the guarantee are served first, in
// guarantee order, then the allocation is served in its own order.
func (h *AssetHolder) ClaimAll(ctx context.Context, guarantor types.ID, guarantee types.Guarantee, allocation types.Allocation) error {
	return h.run(ctx, "claimAll", func(txn *store.Txn) ([]event.Event, error) {
		if err := validAllocation(allocation); err != nil {
			return nil, err
		}
		if err := h.requireOutcome(ctx, txn, guarantor, types.HashAssetOutcome(guarantee), ReasonClaimAllGuaranteeMismatch); err != nil {
			return nil, err
		}
		target := guarantee.TargetChannelID
		if err := h.requireOutcome(ctx, txn, target, allocation.Hash(), ReasonClaimAllAllocationMismatch); err != nil {
			return nil, err
		}
		funds, err := h.holdings(ctx, txn, types.ChannelDestination(guarantor))
		if err != nil {
			return nil, err
		}
		remaining := allocation.Clone()
		var payouts []payout
		for _, d := range guarantee.Destinations {
			if funds.Sign() == 0 {
				break
			}
			for i := range remaining {
				if remaining[i].Destination == d {
					funds, payouts = pay(remaining, i, funds, payouts)
					break
				}
			}
		}
		for i := range remaining {
			if funds.Sign() == 0 {
				break
			}
			funds, payouts = pay(remaining, i, funds, payouts)
		}
		if err := h.storeAllocation(txn, target, prune(remaining)); err != nil {
			return nil, err
		}
		return h.payOut(ctx, txn, guarantor, payouts)
	})
}

// requireOutcome checks that want is the outcome hash recorded for id.
func (h *AssetHolder) requireOutcome(ctx context.Context, txn *store.Txn, id types.ID, want common.Hash, reason string) error {
	stored, err := h.outcomeHash(ctx, txn, id)
	if err != nil {
		return err
	}
	if stored != want {
		return channel.Revert(ErrOutcomeMismatch, reason)
	}
	return nil
}

// payOut moves the payouts from the holdings of channel id to their
// destinations.
func (h *AssetHolder) payOut(ctx context.Context, txn *store.Txn, id types.ID, payouts []payout) ([]event.Event, error) {
	total := new(big.Int)
	for _, p := range payouts {
		total.Add(total, p.amount)
	}
	if _, err := h.addHoldings(ctx, txn, types.ChannelDestination(id), total.Neg(total)); err != nil {
		return nil, err
	}
	events := make([]event.Event, 0, len(payouts))
	for _, p := range payouts {
		if _, err := h.addHoldings(ctx, txn, p.destination, p.amount); err != nil {
			return nil, err
		}
		events = append(events, &event.AssetTransferredEvent{
			AssetHolder: h.address,
			ChannelID:   id,
			Destination: p.destination,
			Amount:      p.amount,
		})
	}
	return events, nil
}
