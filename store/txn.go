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

package store

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

// Txn buffers the writes of an operation and commits them together with a
// check that every value read is still current.
//
// A Txn is not safe for concurrent use.
type Txn struct {
	kv     KV
	reads  map[string][]byte
	writes map[string][]byte
	done   bool
}

// NewTxn starts a transaction on kv.
func NewTxn(kv KV) *Txn {
	return &Txn{
		kv:     kv,
		reads:  make(map[string][]byte),
		writes: make(map[string][]byte),
	}
}

// Get returns the value of key as seen by the transaction.
func (t *Txn) Get(ctx context.Context, key []byte) ([]byte, error) {
	k := string(key)
	if v, ok := t.writes[k]; ok {
		return v, nil
	}
	if v, ok := t.reads[k]; ok {
		return v, nil
	}
	v, err := t.kv.Get(ctx, key)
	if err != nil {
		return nil, errors.WithMessage(err, "reading store")
	}
	t.reads[k] = v
	return v, nil
}

// Set buffers a write of value to key. A nil value deletes the key.
func (t *Txn) Set(key, value []byte) {
	t.writes[string(key)] = value
}

// Delete buffers the deletion of key.
func (t *Txn) Delete(key []byte) {
	t.Set(key, nil)
}

// Commit writes all buffered values if none of the keys touched by the
// transaction changed in the meantime. Otherwise it returns ErrConflict and
// writes nothing. Keys written without being read are read first.
func (t *Txn) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("transaction already committed")
	}
	for k := range t.writes {
		if _, ok := t.reads[k]; ok {
			continue
		}
		v, err := t.kv.Get(ctx, []byte(k))
		if err != nil {
			return errors.WithMessage(err, "reading store")
		}
		t.reads[k] = v
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	keys := make([]string, 0, len(t.reads))
	for k := range t.reads {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ops := make([]CAS, len(keys))
	for i, k := range keys {
		old := t.reads[k]
		next, written := t.writes[k]
		if !written {
			next = old
		}
		ops[i] = CAS{Key: []byte(k), Old: old, New: next}
	}
	if err := t.kv.CompareAndSet(ctx, ops); err != nil {
		return err
	}
	t.done = true
	return nil
}
