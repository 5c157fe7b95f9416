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

// Package store provides the key-value storage the adjudicator and asset
// holders persist their digests and holdings in.
package store

import (
	"bytes"
	"context"
	"errors"
)

// ErrConflict is returned by CompareAndSet if a key no longer holds the
// expected value.
var ErrConflict = errors.New("store: concurrent modification")

type (
	// KV is a key-value store with atomic multi-key compare-and-set.
	KV interface {
		// Get returns the value stored at key or nil if the key is absent.
		Get(ctx context.Context, key []byte) ([]byte, error)
		// CompareAndSet atomically checks that every key holds its Old value
		// and then writes all New values. A nil Old means the key must be
		// absent, a nil New deletes the key. If any comparison fails, nothing
		// is written and ErrConflict is returned.
		CompareAndSet(ctx context.Context, ops []CAS) error
	}

	// CAS is a single compare-and-set operation.
	CAS struct {
		Key []byte
		Old []byte
		New []byte
	}
)

// Key joins a namespace and the given parts into a storage key.
func Key(namespace string, parts ...[]byte) []byte {
	k := append([]byte(namespace), '/')
	for i, p := range parts {
		if i > 0 {
			k = append(k, '/')
		}
		k = append(k, p...)
	}
	return k
}

func valuesEqual(a, b []byte) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return bytes.Equal(a, b)
}
