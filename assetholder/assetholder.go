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

// Package assetholder holds the funds of channels for one asset and pays
// them out according to finalized outcomes.
package assetholder

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"perun.network/go-perun/log"

	"github.com/statechannels/nitro-protocol/channel"
	"github.com/statechannels/nitro-protocol/channel/types"
	"github.com/statechannels/nitro-protocol/event"
	"github.com/statechannels/nitro-protocol/store"
	"github.com/statechannels/nitro-protocol/wire"
)

const (
	holdingsNamespace = "holdings"
	outcomeNamespace  = "outcome"
)

type (
	// AssetHolder is the ledger of one asset. It keeps the holdings of
	// every destination and the outcome hash of every channel.
	AssetHolder struct {
		address common.Address
		kv      store.KV
		sink    event.Sink
		metrics *channel.Metrics
		log     log.Embedding
	}

	// Option configures an AssetHolder.
	Option func(*AssetHolder)
)

var _ channel.OutcomeReceiver = (*AssetHolder)(nil)

// WithSink sets the sink events are emitted to.
func WithSink(s event.Sink) Option {
	return func(h *AssetHolder) { h.sink = s }
}

// WithMetrics sets the operation counter.
func WithMetrics(m *channel.Metrics) Option {
	return func(h *AssetHolder) { h.metrics = m }
}

// NewMetrics creates the operation counter of asset holders under the
// assetholder subsystem.
func NewMetrics(namespace string, reg prometheus.Registerer) (*channel.Metrics, error) {
	return channel.NewMetrics(namespace, "assetholder", reg)
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(h *AssetHolder) { h.log = log.MakeEmbedding(l) }
}

// NewAssetHolder returns the asset holder with the given address on kv.
func NewAssetHolder(address common.Address, kv store.KV, opts ...Option) *AssetHolder {
	h := &AssetHolder{
		address: address,
		kv:      kv,
		log:     log.MakeEmbedding(log.Default()),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Address returns the address identifying the asset holder in outcomes.
func (h *AssetHolder) Address() common.Address {
	return h.address
}

// Holdings returns the funds held for destination.
func (h *AssetHolder) Holdings(ctx context.Context, destination types.Destination) (*big.Int, error) {
	data, err := h.kv.Get(ctx, h.holdingsKey(destination))
	if err != nil {
		return nil, errors.WithMessage(err, "reading holdings")
	}
	return decodeAmount(data)
}

// OutcomeHash returns the outcome hash stored for channel id, zero if none.
func (h *AssetHolder) OutcomeHash(ctx context.Context, id types.ID) (common.Hash, error) {
	data, err := h.kv.Get(ctx, h.outcomeKey(id))
	if err != nil {
		return common.Hash{}, errors.WithMessage(err, "reading outcome hash")
	}
	return decodeDigest(data)
}

// SetAssetOutcomeHash records the outcome hash of channel id as part of
// txn. It fails if a hash is already recorded.
func (h *AssetHolder) SetAssetOutcomeHash(ctx context.Context, txn *store.Txn, id types.ID, outcomeHash common.Hash) error {
	cur, err := h.outcomeHash(ctx, txn, id)
	if err != nil {
		return err
	}
	if cur != (common.Hash{}) {
		return channel.Revert(channel.ErrOutcomeAlreadyPushed, channel.ReasonOutcomeHashExists)
	}
	return h.setOutcomeHash(txn, id, outcomeHash)
}

// SetOutcomeHash overwrites the outcome hash of channel id. It exists for
// tests and bootstrapping only.
func (h *AssetHolder) SetOutcomeHash(ctx context.Context, id types.ID, outcomeHash common.Hash) error {
	txn := store.NewTxn(h.kv)
	if err := h.setOutcomeHash(txn, id, outcomeHash); err != nil {
		return err
	}
	return txn.Commit(ctx)
}

// SetHoldings overwrites the holdings of destination. It exists for tests
// and bootstrapping only.
func (h *AssetHolder) SetHoldings(ctx context.Context, destination types.Destination, amount *big.Int) error {
	txn := store.NewTxn(h.kv)
	if err := h.setHoldings(txn, destination, amount); err != nil {
		return err
	}
	return txn.Commit(ctx)
}

// run executes op in a transaction and emits its events after commit.
func (h *AssetHolder) run(ctx context.Context, op string, f func(*store.Txn) ([]event.Event, error)) error {
	txn := store.NewTxn(h.kv)
	events, err := f(txn)
	if err == nil {
		err = txn.Commit(ctx)
	}
	h.metrics.Observe(op, err)
	l := h.log.Log().WithField("op", op).WithField("asset", h.address.Hex())
	if err != nil {
		l.WithError(err).Debug("Operation rejected")
		return err
	}
	l.Info("Operation committed")
	if h.sink != nil && len(events) > 0 {
		if err := h.sink.Emit(ctx, events...); err != nil {
			l.WithError(err).Warn("Emitting events failed")
		}
	}
	return nil
}

func (h *AssetHolder) holdingsKey(d types.Destination) []byte {
	return store.Key(holdingsNamespace, h.address[:], d[:])
}

func (h *AssetHolder) outcomeKey(id types.ID) []byte {
	return store.Key(outcomeNamespace, h.address[:], id[:])
}

func (h *AssetHolder) holdings(ctx context.Context, txn *store.Txn, d types.Destination) (*big.Int, error) {
	data, err := txn.Get(ctx, h.holdingsKey(d))
	if err != nil {
		return nil, err
	}
	return decodeAmount(data)
}

// setHoldings writes amount. Zero holdings are removed from the store.
func (h *AssetHolder) setHoldings(txn *store.Txn, d types.Destination, amount *big.Int) error {
	if amount.Sign() == 0 {
		txn.Delete(h.holdingsKey(d))
		return nil
	}
	data, err := wire.MakeAmount(amount).MarshalBinary()
	if err != nil {
		return errors.WithMessage(err, "encoding holdings")
	}
	txn.Set(h.holdingsKey(d), data)
	return nil
}

// addHoldings adds delta, which may be negative, to the holdings of d.
func (h *AssetHolder) addHoldings(ctx context.Context, txn *store.Txn, d types.Destination, delta *big.Int) (*big.Int, error) {
	held, err := h.holdings(ctx, txn, d)
	if err != nil {
		return nil, err
	}
	next := new(big.Int).Add(held, delta)
	if next.Sign() < 0 {
		return nil, errors.Errorf("holdings of %s would become negative", d)
	}
	return next, h.setHoldings(txn, d, next)
}

func (h *AssetHolder) outcomeHash(ctx context.Context, txn *store.Txn, id types.ID) (common.Hash, error) {
	data, err := txn.Get(ctx, h.outcomeKey(id))
	if err != nil {
		return common.Hash{}, err
	}
	return decodeDigest(data)
}

// setOutcomeHash writes the outcome hash. A zero hash is removed from the
// store.
func (h *AssetHolder) setOutcomeHash(txn *store.Txn, id types.ID, outcomeHash common.Hash) error {
	if outcomeHash == (common.Hash{}) {
		txn.Delete(h.outcomeKey(id))
		return nil
	}
	data, err := wire.Digest(outcomeHash).MarshalBinary()
	if err != nil {
		return errors.WithMessage(err, "encoding outcome hash")
	}
	txn.Set(h.outcomeKey(id), data)
	return nil
}

// storeAllocation records what is left of an allocation after a payout.
// Nothing is recorded once everything is paid.
func (h *AssetHolder) storeAllocation(txn *store.Txn, id types.ID, remaining types.Allocation) error {
	if len(remaining) == 0 {
		return h.setOutcomeHash(txn, id, common.Hash{})
	}
	return h.setOutcomeHash(txn, id, remaining.Hash())
}

func decodeAmount(data []byte) (*big.Int, error) {
	if len(data) == 0 {
		return new(big.Int), nil
	}
	var a wire.Amount
	if err := a.UnmarshalBinary(data); err != nil {
		return nil, errors.WithMessage(err, "decoding holdings")
	}
	return a.Int, nil
}

func decodeDigest(data []byte) (common.Hash, error) {
	if len(data) == 0 {
		return common.Hash{}, nil
	}
	var d wire.Digest
	if err := d.UnmarshalBinary(data); err != nil {
		return common.Hash{}, errors.WithMessage(err, "decoding outcome hash")
	}
	return d.Hash(), nil
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return channel.Revert(channel.ErrInvalidInput, ReasonInvalidAmount)
	}
	return nil
}

func validAllocation(allocation types.Allocation) error {
	if allocation.Valid() != nil {
		return channel.Revert(channel.ErrInvalidInput, ReasonInvalidAllocation)
	}
	return nil
}
