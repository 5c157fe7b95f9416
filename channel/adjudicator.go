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
	"context"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"perun.network/go-perun/log"
	"polycry.pt/poly-go/sync"

	"github.com/statechannels/nitro-protocol/channel/types"
	"github.com/statechannels/nitro-protocol/event"
	"github.com/statechannels/nitro-protocol/store"
	"github.com/statechannels/nitro-protocol/wallet"
	"github.com/statechannels/nitro-protocol/wire"
)

// storageNamespace prefixes the keys of channel storage hashes.
const storageNamespace = "adjudicator"

type (
	// OutcomeReceiver is an asset holder that outcomes can be pushed to.
	OutcomeReceiver interface {
		Address() common.Address
		// SetAssetOutcomeHash records the outcome hash of channel id as part
		// of txn.
		SetAssetOutcomeHash(ctx context.Context, txn *store.Txn, id types.ID, outcomeHash common.Hash) error
	}

	// Adjudicator keeps the storage hash of every channel and runs the
	// dispute operations on it.
	Adjudicator struct {
		kv      store.KV
		apps    *AppRegistry
		clock   Clock
		sink    event.Sink
		metrics *Metrics
		log     log.Embedding

		mu      sync.Mutex
		holders map[common.Address]OutcomeReceiver
	}

	// AdjudicatorOption configures an Adjudicator.
	AdjudicatorOption func(*Adjudicator)
)

// WithClock sets the clock challenges are timed with.
func WithClock(c Clock) AdjudicatorOption {
	return func(a *Adjudicator) { a.clock = c }
}

// WithSink sets the sink events are emitted to.
func WithSink(s event.Sink) AdjudicatorOption {
	return func(a *Adjudicator) { a.sink = s }
}

// WithMetrics sets the operation counter.
func WithMetrics(m *Metrics) AdjudicatorOption {
	return func(a *Adjudicator) { a.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) AdjudicatorOption {
	return func(a *Adjudicator) { a.log = log.MakeEmbedding(l) }
}

// NewAdjudicator returns an Adjudicator on kv that validates transitions
// with apps.
func NewAdjudicator(kv store.KV, apps *AppRegistry, opts ...AdjudicatorOption) *Adjudicator {
	a := &Adjudicator{
		kv:      kv,
		apps:    apps,
		clock:   SystemClock{},
		log:     log.MakeEmbedding(log.Default()),
		holders: make(map[common.Address]OutcomeReceiver),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegisterAssetHolder makes h available as target of PushOutcome.
func (a *Adjudicator) RegisterAssetHolder(h OutcomeReceiver) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.holders[h.Address()] = h
}

func (a *Adjudicator) assetHolder(addr common.Address) (OutcomeReceiver, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h, ok := a.holders[addr]
	if !ok {
		return nil, errors.WithMessagef(ErrUnknownAssetHolder, "asset holder %s", addr.Hex())
	}
	return h, nil
}

// ChannelStorageHash returns the stored hash of channel id. It is zero for
// channels that were never touched.
func (a *Adjudicator) ChannelStorageHash(ctx context.Context, id types.ID) (common.Hash, error) {
	data, err := a.kv.Get(ctx, storageKey(id))
	if err != nil {
		return common.Hash{}, errors.WithMessage(err, "reading channel storage hash")
	}
	return decodeStorageHash(data)
}

// SetChannelStorageHash overwrites the stored hash of channel id. It exists
// for tests and bootstrapping only.
func (a *Adjudicator) SetChannelStorageHash(ctx context.Context, id types.ID, h common.Hash) error {
	txn := store.NewTxn(a.kv)
	if err := setStorageHash(txn, id, h); err != nil {
		return err
	}
	return txn.Commit(ctx)
}

type (
	// ForceMoveParams registers a challenge with the last of a chain of
	// states ending at LargestTurnNum.
	ForceMoveParams struct {
		TurnNumRecord  uint64
		FixedPart      types.FixedPart
		LargestTurnNum uint64
		VariableParts  []types.VariablePart
		IsFinalCount   int
		Sigs           []wallet.Signature
		WhoSignedWhat  []int
		ChallengerSig  wallet.Signature
	}

	// RespondParams clears a challenge with a state signed by the next
	// mover. VariablePartAB holds the challenge state and the response.
	RespondParams struct {
		TurnNumRecord  uint64
		FinalizesAt    uint64
		Challenger     common.Address
		IsFinalAB      [2]bool
		FixedPart      types.FixedPart
		VariablePartAB [2]types.VariablePart
		Sig            wallet.Signature
	}

	// RefuteParams clears a challenge with a later state signed by the
	// challenger. VariablePartAB holds the challenge state and the
	// refutation state.
	RefuteParams struct {
		TurnNumRecord          uint64
		RefutationStateTurnNum uint64
		FinalizesAt            uint64
		Challenger             common.Address
		IsFinalAB              [2]bool
		FixedPart              types.FixedPart
		VariablePartAB         [2]types.VariablePart
		RefutationStateSig     wallet.Signature
	}

	// CheckpointParams raises the turn number record with a supported chain
	// of states. Current is the storage the caller expects to be stored.
	CheckpointParams struct {
		Current        types.ChannelStorage
		FixedPart      types.FixedPart
		LargestTurnNum uint64
		VariableParts  []types.VariablePart
		IsFinalCount   int
		Sigs           []wallet.Signature
		WhoSignedWhat  []int
	}

	// FinalStates is the support of NumStates final states ending at
	// LargestTurnNum that share app part and outcome.
	FinalStates struct {
		LargestTurnNum uint64
		FixedPart      types.FixedPart
		AppPartHash    common.Hash
		OutcomeHash    common.Hash
		NumStates      int
		WhoSignedWhat  []int
		Sigs           []wallet.Signature
	}

	// ConcludeFromOpenParams finalizes an open channel.
	ConcludeFromOpenParams struct {
		TurnNumRecord uint64
		FinalStates
	}

	// ConcludeFromChallengeParams finalizes a channel during a challenge.
	ConcludeFromChallengeParams struct {
		Challenge types.ChannelStorage
		FinalStates
	}

	// PushOutcomeParams hands the outcome of a finalized channel to an
	// asset holder. The fields up to Outcome describe the stored channel
	// storage.
	PushOutcomeParams struct {
		ChannelID     types.ID
		TurnNumRecord uint64
		FinalizesAt   uint64
		StateHash     common.Hash
		Challenger    common.Address
		Outcome       types.Outcome
		AssetHolder   common.Address
	}
)

// ForceMove registers a challenge on an open channel.
func (a *Adjudicator) ForceMove(ctx context.Context, p ForceMoveParams) error {
	if err := validFixedPart(p.FixedPart); err != nil {
		return err
	}
	id := p.FixedPart.ChannelID()
	return a.run(ctx, "forceMove", id, func(txn *store.Txn) ([]event.Event, error) {
		if p.LargestTurnNum <= p.TurnNumRecord {
			return nil, Revert(ErrStaleChallenge, ReasonStaleChallenge)
		}
		stored, err := storageHash(ctx, txn, id)
		if err != nil {
			return nil, err
		}
		if !isOpenAt(stored, p.TurnNumRecord) {
			return nil, Revert(ErrChannelNotOpen, ReasonChannelNotOpen)
		}
		now := a.clock.Now()
		if p.FixedPart.ChallengeDuration == 0 || p.FixedPart.ChallengeDuration > math.MaxUint64-now {
			return nil, Revert(ErrInvalidInput, ReasonChallengeDuration)
		}
		hashes, err := a.validSupport(p.FixedPart, p.LargestTurnNum, p.VariableParts, p.IsFinalCount, p.Sigs, p.WhoSignedWhat)
		if err != nil {
			return nil, err
		}
		challenger := recoverSigner(types.ChallengeMessage(p.LargestTurnNum, id), p.ChallengerSig)
		if !IsAddressInArray(challenger, p.FixedPart.Participants) {
			return nil, Revert(ErrUnauthorizedChallenger, ReasonChallengerNotParticipant)
		}

		m := len(p.VariableParts)
		finalizesAt := now + p.FixedPart.ChallengeDuration
		cs := types.ChannelStorage{
			TurnNumRecord: p.LargestTurnNum,
			FinalizesAt:   finalizesAt,
			StateHash:     hashes[m-1],
			Challenger:    challenger,
			OutcomeHash:   p.VariableParts[m-1].OutcomeHash(),
		}
		if err := writeStorage(txn, id, cs); err != nil {
			return nil, err
		}
		return []event.Event{&event.ForceMoveEvent{
			ChannelID:     id,
			TurnNumRecord: p.LargestTurnNum,
			FinalizesAt:   finalizesAt,
			Challenger:    challenger,
			IsFinal:       p.IsFinalCount > 0,
			FixedPart:     p.FixedPart,
			VariableParts: p.VariableParts,
		}}, nil
	})
}

// Respond clears a challenge with a valid move by the next mover.
func (a *Adjudicator) Respond(ctx context.Context, p RespondParams) error {
	if err := validFixedPart(p.FixedPart); err != nil {
		return err
	}
	id := p.FixedPart.ChannelID()
	return a.run(ctx, "respond", id, func(txn *store.Txn) ([]event.Event, error) {
		if err := a.requireOngoing(p.FinalizesAt); err != nil {
			return nil, err
		}
		challenge := types.ChannelStorage{
			TurnNumRecord: p.TurnNumRecord,
			FinalizesAt:   p.FinalizesAt,
			StateHash:     types.HashState(p.TurnNumRecord, p.IsFinalAB[0], p.FixedPart, p.VariablePartAB[0]),
			Challenger:    p.Challenger,
			OutcomeHash:   p.VariablePartAB[0].OutcomeHash(),
		}
		if err := requireStorage(ctx, txn, id, challenge); err != nil {
			return nil, err
		}

		next := p.TurnNumRecord + 1
		responseHash := types.HashState(next, p.IsFinalAB[1], p.FixedPart, p.VariablePartAB[1])
		mover := p.FixedPart.Participants[Mover(next, p.FixedPart.NumParticipants())]
		if recoverSigner(responseHash, p.Sig) != mover {
			return nil, Revert(ErrUnauthorizedResponder, ReasonResponseNotByMover)
		}
		if err := a.apps.ValidTransition(p.FixedPart, p.VariablePartAB[0], p.VariablePartAB[1], next, p.IsFinalAB[0], p.IsFinalAB[1]); err != nil {
			return nil, err
		}

		if err := writeStorage(txn, id, types.OpenStorage(next)); err != nil {
			return nil, err
		}
		return []event.Event{&event.ChallengeClearedEvent{ChannelID: id, NewTurnNumRecord: next}}, nil
	})
}

// Refute clears a challenge with a later state signed by the challenger.
// The turn number record is kept.
func (a *Adjudicator) Refute(ctx context.Context, p RefuteParams) error {
	if err := validFixedPart(p.FixedPart); err != nil {
		return err
	}
	id := p.FixedPart.ChannelID()
	return a.run(ctx, "refute", id, func(txn *store.Txn) ([]event.Event, error) {
		if err := a.requireOngoing(p.FinalizesAt); err != nil {
			return nil, err
		}
		challenge := types.ChannelStorage{
			TurnNumRecord: p.TurnNumRecord,
			FinalizesAt:   p.FinalizesAt,
			StateHash:     types.HashState(p.TurnNumRecord, p.IsFinalAB[0], p.FixedPart, p.VariablePartAB[0]),
			Challenger:    p.Challenger,
			OutcomeHash:   p.VariablePartAB[0].OutcomeHash(),
		}
		if err := requireStorage(ctx, txn, id, challenge); err != nil {
			return nil, err
		}
		if p.RefutationStateTurnNum <= p.TurnNumRecord {
			return nil, Revert(ErrRefutationTurnNumTooLow, ReasonRefutationTurnNum)
		}
		refutationHash := types.HashState(p.RefutationStateTurnNum, p.IsFinalAB[1], p.FixedPart, p.VariablePartAB[1])
		if recoverSigner(refutationHash, p.RefutationStateSig) != p.Challenger {
			return nil, Revert(ErrRefutationNotByChallenger, ReasonRefutationNotChallenger)
		}

		if err := writeStorage(txn, id, types.OpenStorage(p.TurnNumRecord)); err != nil {
			return nil, err
		}
		return []event.Event{&event.ChallengeClearedEvent{ChannelID: id, NewTurnNumRecord: p.TurnNumRecord}}, nil
	})
}

// Checkpoint records a supported state with a higher turn number and
// clears any ongoing challenge.
func (a *Adjudicator) Checkpoint(ctx context.Context, p CheckpointParams) error {
	if err := validFixedPart(p.FixedPart); err != nil {
		return err
	}
	id := p.FixedPart.ChannelID()
	return a.run(ctx, "checkpoint", id, func(txn *store.Txn) ([]event.Event, error) {
		if err := requireStorage(ctx, txn, id, p.Current); err != nil {
			return nil, err
		}
		if p.Current.Mode(a.clock.Now()) == types.ModeFinalized {
			return nil, Revert(ErrChannelFinalized, ReasonChannelFinalized)
		}
		if p.LargestTurnNum <= p.Current.TurnNumRecord {
			return nil, Revert(ErrTurnNumRecordNotIncreased, ReasonTurnNumNotIncreased)
		}
		if _, err := a.validSupport(p.FixedPart, p.LargestTurnNum, p.VariableParts, p.IsFinalCount, p.Sigs, p.WhoSignedWhat); err != nil {
			return nil, err
		}

		if err := writeStorage(txn, id, types.OpenStorage(p.LargestTurnNum)); err != nil {
			return nil, err
		}
		return []event.Event{&event.ChallengeClearedEvent{ChannelID: id, NewTurnNumRecord: p.LargestTurnNum}}, nil
	})
}

// ConcludeFromOpen finalizes an open channel with a supported set of final
// states.
func (a *Adjudicator) ConcludeFromOpen(ctx context.Context, p ConcludeFromOpenParams) error {
	if err := validFixedPart(p.FixedPart); err != nil {
		return err
	}
	id := p.FixedPart.ChannelID()
	return a.run(ctx, "concludeFromOpen", id, func(txn *store.Txn) ([]event.Event, error) {
		stored, err := storageHash(ctx, txn, id)
		if err != nil {
			return nil, err
		}
		if !isOpenAt(stored, p.TurnNumRecord) {
			return nil, Revert(ErrStorageMismatch, ReasonStorageMismatch)
		}
		return a.conclude(txn, id, p.FinalStates)
	})
}

// ConcludeFromChallenge finalizes a challenged channel with a supported set
// of final states.
func (a *Adjudicator) ConcludeFromChallenge(ctx context.Context, p ConcludeFromChallengeParams) error {
	if err := validFixedPart(p.FixedPart); err != nil {
		return err
	}
	id := p.FixedPart.ChannelID()
	return a.run(ctx, "concludeFromChallenge", id, func(txn *store.Txn) ([]event.Event, error) {
		if p.Challenge.StateHash == (common.Hash{}) {
			return nil, Revert(ErrChallengeExpiredOrAbsent, ReasonChallengeExpired)
		}
		if err := a.requireOngoing(p.Challenge.FinalizesAt); err != nil {
			return nil, err
		}
		if err := requireStorage(ctx, txn, id, p.Challenge); err != nil {
			return nil, err
		}
		return a.conclude(txn, id, p.FinalStates)
	})
}

func (a *Adjudicator) conclude(txn *store.Txn, id types.ID, fs FinalStates) ([]event.Event, error) {
	n, m := fs.FixedPart.NumParticipants(), fs.NumStates
	switch {
	case m <= 0:
		return nil, Revert(ErrInvalidInput, ReasonNoStates)
	case m > n:
		return nil, Revert(ErrInvalidInput, ReasonTooManyStates)
	case fs.LargestTurnNum < uint64(m)-1:
		return nil, Revert(ErrInvalidInput, ReasonTurnNumUnderflow)
	}
	hashes := make([]common.Hash, m)
	for i := range hashes {
		hashes[i] = types.HashStateParts(StateTurnNum(fs.LargestTurnNum, m, i), true, id, fs.AppPartHash, fs.OutcomeHash)
	}
	if err := ValidSignatures(fs.LargestTurnNum, fs.FixedPart.Participants, hashes, fs.Sigs, fs.WhoSignedWhat); err != nil {
		return nil, err
	}

	if err := writeStorage(txn, id, types.FinalizedStorage(a.clock.Now(), fs.OutcomeHash)); err != nil {
		return nil, err
	}
	return []event.Event{&event.ConcludedEvent{ChannelID: id}}, nil
}

// PushOutcome writes the asset outcome of a finalized channel to the named
// asset holder.
func (a *Adjudicator) PushOutcome(ctx context.Context, p PushOutcomeParams) error {
	return a.run(ctx, "pushOutcome", p.ChannelID, func(txn *store.Txn) ([]event.Event, error) {
		if err := a.requireFinalized(p.FinalizesAt); err != nil {
			return nil, err
		}
		outcomeHash, err := types.HashOutcome(p.Outcome)
		if err != nil {
			return nil, Revert(ErrInvalidInput, err.Error())
		}
		current := types.ChannelStorage{
			TurnNumRecord: p.TurnNumRecord,
			FinalizesAt:   p.FinalizesAt,
			StateHash:     p.StateHash,
			Challenger:    p.Challenger,
			OutcomeHash:   outcomeHash,
		}
		if err := requireStorage(ctx, txn, p.ChannelID, current); err != nil {
			return nil, err
		}
		holder, err := a.assetHolder(p.AssetHolder)
		if err != nil {
			return nil, err
		}
		ao, ok := p.Outcome.AssetOutcome(p.AssetHolder)
		if !ok {
			return nil, Revert(ErrInvalidInput, ReasonNoAssetOutcome)
		}

		h := types.HashAssetOutcome(ao.Item)
		if err := holder.SetAssetOutcomeHash(ctx, txn, p.ChannelID, h); err != nil {
			return nil, err
		}
		return []event.Event{&event.OutcomePushedEvent{
			ChannelID:   p.ChannelID,
			AssetHolder: p.AssetHolder,
			OutcomeHash: h,
		}}, nil
	})
}

// run executes op in a transaction and emits its events after commit.
func (a *Adjudicator) run(ctx context.Context, op string, id types.ID, f func(*store.Txn) ([]event.Event, error)) error {
	txn := store.NewTxn(a.kv)
	events, err := f(txn)
	if err == nil {
		err = txn.Commit(ctx)
	}
	a.metrics.Observe(op, err)
	l := a.log.Log().WithField("op", op).WithField("channel", id)
	if err != nil {
		l.WithError(err).Debug("Operation rejected")
		return err
	}
	l.Info("Operation committed")
	if a.sink != nil && len(events) > 0 {
		if err := a.sink.Emit(ctx, events...); err != nil {
			l.WithError(err).Warn("Emitting events failed")
		}
	}
	return nil
}

// validSupport checks a chain of states and its signatures and returns the
// state hashes.
func (a *Adjudicator) validSupport(fp types.FixedPart, largestTurnNum uint64, vps []types.VariablePart, isFinalCount int, sigs []wallet.Signature, whoSignedWhat []int) ([]common.Hash, error) {
	n, m := fp.NumParticipants(), len(vps)
	switch {
	case m == 0:
		return nil, Revert(ErrInvalidInput, ReasonNoStates)
	case m > n:
		return nil, Revert(ErrInvalidInput, ReasonTooManyStates)
	case len(sigs) != n:
		return nil, Revert(ErrInvalidInput, ReasonWrongNumberOfSignatures)
	case isFinalCount < 0 || isFinalCount > m:
		return nil, Revert(ErrInvalidInput, ReasonIsFinalCount)
	case largestTurnNum < uint64(m)-1:
		return nil, Revert(ErrInvalidInput, ReasonTurnNumUnderflow)
	}

	for i := 1; i < m; i++ {
		err := a.apps.ValidTransition(fp, vps[i-1], vps[i],
			StateTurnNum(largestTurnNum, m, i),
			IsFinalAt(i-1, m, isFinalCount),
			IsFinalAt(i, m, isFinalCount))
		if err != nil {
			return nil, err
		}
	}

	hashes := make([]common.Hash, m)
	for i, vp := range vps {
		hashes[i] = types.HashState(StateTurnNum(largestTurnNum, m, i), IsFinalAt(i, m, isFinalCount), fp, vp)
	}
	if err := ValidSignatures(largestTurnNum, fp.Participants, hashes, sigs, whoSignedWhat); err != nil {
		return nil, err
	}
	return hashes, nil
}

func (a *Adjudicator) requireOngoing(finalizesAt uint64) error {
	if finalizesAt <= a.clock.Now() {
		return Revert(ErrChallengeExpiredOrAbsent, ReasonChallengeExpired)
	}
	return nil
}

func (a *Adjudicator) requireFinalized(finalizesAt uint64) error {
	if finalizesAt == 0 || finalizesAt > a.clock.Now() {
		return Revert(ErrChannelNotFinalized, ReasonNotFinalized)
	}
	return nil
}

func validFixedPart(fp types.FixedPart) error {
	if err := fp.Valid(); err != nil {
		return Revert(ErrInvalidInput, err.Error())
	}
	return nil
}

func storageKey(id types.ID) []byte {
	return store.Key(storageNamespace, id[:])
}

func decodeStorageHash(data []byte) (common.Hash, error) {
	if len(data) == 0 {
		return common.Hash{}, nil
	}
	var d wire.Digest
	if err := d.UnmarshalBinary(data); err != nil {
		return common.Hash{}, errors.WithMessage(err, "decoding channel storage hash")
	}
	return d.Hash(), nil
}

func storageHash(ctx context.Context, txn *store.Txn, id types.ID) (common.Hash, error) {
	data, err := txn.Get(ctx, storageKey(id))
	if err != nil {
		return common.Hash{}, err
	}
	return decodeStorageHash(data)
}

func setStorageHash(txn *store.Txn, id types.ID, h common.Hash) error {
	data, err := wire.Digest(h).MarshalBinary()
	if err != nil {
		return errors.WithMessage(err, "encoding channel storage hash")
	}
	txn.Set(storageKey(id), data)
	return nil
}

func writeStorage(txn *store.Txn, id types.ID, cs types.ChannelStorage) error {
	h, err := cs.Hash()
	if err != nil {
		return errors.WithMessage(err, "hashing channel storage")
	}
	return setStorageHash(txn, id, h)
}

// requireStorage checks that cs is what is stored for channel id. A zero
// stored hash stands for the open storage with turn number record 0.
func requireStorage(ctx context.Context, txn *store.Txn, id types.ID, cs types.ChannelStorage) error {
	stored, err := storageHash(ctx, txn, id)
	if err != nil {
		return err
	}
	if !storageMatches(stored, cs) {
		return Revert(ErrStorageMismatch, ReasonStorageMismatch)
	}
	return nil
}

func storageMatches(stored common.Hash, cs types.ChannelStorage) bool {
	if stored == (common.Hash{}) {
		return cs == types.OpenStorage(0)
	}
	h, err := cs.Hash()
	return err == nil && h == stored
}

func isOpenAt(stored common.Hash, turnNumRecord uint64) bool {
	return stored == (common.Hash{}) || stored == types.OpenStorage(turnNumRecord).MustHash()
}
