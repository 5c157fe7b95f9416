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
	"github.com/pkg/errors"
)

// Kinds of rejected operations. Every rejection is a *RevertError whose
// Unwrap returns one of these, so callers match with errors.Is.
var (
	ErrStaleChallenge            = errors.New("stale challenge")
	ErrChannelNotOpen            = errors.New("channel not open")
	ErrChannelFinalized          = errors.New("channel finalized")
	ErrChannelNotFinalized       = errors.New("channel not finalized")
	ErrStorageMismatch           = errors.New("channel storage mismatch")
	ErrChallengeExpiredOrAbsent  = errors.New("challenge expired or absent")
	ErrUnauthorizedChallenger    = errors.New("unauthorized challenger")
	ErrUnauthorizedResponder     = errors.New("unauthorized responder")
	ErrInvalidTransition         = errors.New("invalid transition")
	ErrUnacceptableWhoSignedWhat = errors.New("unacceptable whoSignedWhat")
	ErrInvalidSignatures         = errors.New("invalid signatures")
	ErrInvalidInput              = errors.New("invalid input")
	ErrOutcomeAlreadyPushed      = errors.New("outcome already pushed")
	ErrTurnNumRecordNotIncreased = errors.New("turn num record not increased")
	ErrRefutationTurnNumTooLow   = errors.New("refutation turn number too low")
	ErrRefutationNotByChallenger = errors.New("refutation not signed by challenger")
)

// Configuration errors. These do not stem from the submitted data but from
// the setup of the adjudicator.
var (
	ErrUnknownApp         = errors.New("unknown app definition")
	ErrUnknownAssetHolder = errors.New("unknown asset holder")
)

// RevertError is returned when an operation is rejected. No state was
// changed.
type RevertError struct {
	Kind   error
	Reason string
}

func (e *RevertError) Error() string {
	return e.Reason
}

func (e *RevertError) Unwrap() error {
	return e.Kind
}

// Revert creates a RevertError of the given kind.
func Revert(kind error, reason string) error {
	return &RevertError{Kind: kind, Reason: reason}
}

// Revert reasons.
const (
	ReasonStaleChallenge           = "Stale challenge!"
	ReasonChannelNotOpen           = "Channel not open."
	ReasonTooManyStates            = "Too many states!"
	ReasonNoStates                 = "Must submit at least one state"
	ReasonWrongNumberOfSignatures  = "Wrong number of signatures"
	ReasonIsFinalCount             = "isFinalCount exceeds number of states"
	ReasonWhoSignedWhatLength      = "_validSignatures: whoSignedWhat must be the same length as participants"
	ReasonUnacceptableWSW          = "Unacceptable whoSignedWhat array"
	ReasonInvalidSignatures        = "Invalid signatures"
	ReasonChallengerNotParticipant = "Challenger is not a participant"
	ReasonChallengeExpired         = "Challenge expired or not present."
	ReasonStorageMismatch          = "Channel storage does not match stored version."
	ReasonResponseNotByMover       = "Response not signed by authorized mover"
	ReasonRefutationTurnNum        = "Refutation state must have a higher turn number"
	ReasonRefutationNotChallenger  = "Refutation state not signed by challenger"
	ReasonTurnNumNotIncreased      = "Turn num record not increased"
	ReasonChannelFinalized         = "Channel finalized"
	ReasonNotFinalized             = "Outcome not finalized."
	ReasonOutcomeHashExists        = "Outcome hash already exists"
	ReasonFinalOutcomeChanged      = "Cannot move to a final state with a different default outcome"
	ReasonFinalToNonFinal          = "Cannot move from a final state to a non final state"
	ReasonAppDefinitionMismatch    = "States must share the app definition"
	ReasonNoAssetOutcome           = "Outcome has no entry for asset holder"
	ReasonTurnNumUnderflow         = "largestTurnNum too small for number of states"
	ReasonChallengeDuration        = "Challenge duration must be positive"
)
