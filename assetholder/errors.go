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
	"github.com/pkg/errors"
)

// Kinds of rejected ledger operations. They are carried by
// *channel.RevertError like the rejections of the adjudicator.
var (
	ErrOutcomeMismatch   = errors.New("outcome mismatch")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnauthorized      = errors.New("unauthorized")
)

// Revert reasons.
const (
	ReasonTransferAllMismatch        = "transferAll | submitted data does not match stored outcomeHash"
	ReasonTransferMismatch           = "Transfer: submitted allocation does not match stored outcomeHash"
	ReasonTransferUnaffordable       = "Transfer: channel cannot afford the requested transfer amount"
	ReasonClaimGuaranteeMismatch     = "claim | submitted guarantee data does not match outcomeHash stored for the guarantor"
	ReasonClaimAllocationMismatch    = "claim | submitted allocation data does not match outcomeHash stored for the target channel"
	ReasonClaimUnaffordable          = "claim | guarantor cannot afford the requested amount"
	ReasonClaimAllGuaranteeMismatch  = "claimAll | submitted guarantee data does not match outcomeHash stored for the guarantor"
	ReasonClaimAllAllocationMismatch = "claimAll | submitted allocation data does not match outcomeHash stored for the target channel"
	ReasonDepositLessThanExpected    = "Deposit: holdings[destination] is less than expected"
	ReasonWithdrawOverdrawn          = "Withdraw: overdrawn"
	ReasonWithdrawUnauthorized       = "Withdraw: not authorized by participant"
	ReasonReduceInsufficient         = "Reduce: amount exceeds allocation to recipient"
	ReasonInvalidAmount              = "Amount must be non-negative"
	ReasonInvalidAllocation          = "Allocation amounts must be non-negative"
)
