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

	"polycry.pt/poly-go/sync"
)

// Memory is an in-memory KV.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ KV = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get returns a copy of the value at key.
func (m *Memory) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, v...), nil
}

// CompareAndSet implements KV.
func (m *Memory) CompareAndSet(ctx context.Context, ops []CAS) error {
	if !m.mu.TryLockCtx(ctx) {
		return ctx.Err()
	}
	defer m.mu.Unlock()
	for _, op := range ops {
		cur, ok := m.data[string(op.Key)]
		if !ok {
			cur = nil
		}
		if !valuesEqual(cur, op.Old) {
			return ErrConflict
		}
	}
	for _, op := range ops {
		if op.New == nil {
			delete(m.data, string(op.Key))
			continue
		}
		m.data[string(op.Key)] = append([]byte{}, op.New...)
	}
	return nil
}
