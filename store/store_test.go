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

package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/statechannels/nitro-protocol/store"
)

func backends(t *testing.T) map[string]store.KV {
	t.Helper()
	db, err := store.OpenSQLite(context.Background(), "file:"+filepath.Join(t.TempDir(), "kv.sqlite")+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return map[string]store.KV{
		"memory": store.NewMemory(),
		"sqlite": db,
	}
}

func TestKV(t *testing.T) {
	for name, kv := range backends(t) {
		kv := kv
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			k := store.Key("test", []byte("a"))

			v, err := kv.Get(ctx, k)
			require.NoError(t, err)
			require.Nil(t, v)

			require.NoError(t, kv.CompareAndSet(ctx, []store.CAS{{Key: k, Old: nil, New: []byte{1}}}))
			v, err = kv.Get(ctx, k)
			require.NoError(t, err)
			require.Equal(t, []byte{1}, v)

			// stale expectation
			err = kv.CompareAndSet(ctx, []store.CAS{{Key: k, Old: nil, New: []byte{2}}})
			require.ErrorIs(t, err, store.ErrConflict)

			// all or nothing
			k2 := store.Key("test", []byte("b"))
			err = kv.CompareAndSet(ctx, []store.CAS{
				{Key: k2, Old: nil, New: []byte{3}},
				{Key: k, Old: []byte{9}, New: []byte{4}},
			})
			require.ErrorIs(t, err, store.ErrConflict)
			v, err = kv.Get(ctx, k2)
			require.NoError(t, err)
			require.Nil(t, v)

			require.NoError(t, kv.CompareAndSet(ctx, []store.CAS{{Key: k, Old: []byte{1}, New: nil}}))
			v, err = kv.Get(ctx, k)
			require.NoError(t, err)
			require.Nil(t, v)
		})
	}
}

func TestTxn(t *testing.T) {
	for name, kv := range backends(t) {
		kv := kv
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a, b := store.Key("t", []byte("a")), store.Key("t", []byte("b"))

			txn := store.NewTxn(kv)
			v, err := txn.Get(ctx, a)
			require.NoError(t, err)
			require.Nil(t, v)
			txn.Set(a, []byte("x"))
			v, err = txn.Get(ctx, a)
			require.NoError(t, err)
			require.Equal(t, []byte("x"), v)
			txn.Set(b, []byte("y"))

			// not visible before commit
			v, err = kv.Get(ctx, a)
			require.NoError(t, err)
			require.Nil(t, v)

			require.NoError(t, txn.Commit(ctx))
			require.Error(t, txn.Commit(ctx))
			v, err = kv.Get(ctx, b)
			require.NoError(t, err)
			require.Equal(t, []byte("y"), v)
		})
	}
}

func TestTxnConflict(t *testing.T) {
	for name, kv := range backends(t) {
		kv := kv
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a, b := store.Key("t", []byte("a")), store.Key("t", []byte("b"))

			first, second := store.NewTxn(kv), store.NewTxn(kv)
			_, err := first.Get(ctx, a)
			require.NoError(t, err)
			_, err = second.Get(ctx, a)
			require.NoError(t, err)

			first.Set(a, []byte{1})
			second.Set(b, []byte{2})
			require.NoError(t, first.Commit(ctx))

			// second read a which changed, so its write to b is dropped.
			require.ErrorIs(t, second.Commit(ctx), store.ErrConflict)
			v, err := kv.Get(ctx, b)
			require.NoError(t, err)
			require.Nil(t, v)
		})
	}
}

func TestKey(t *testing.T) {
	require.Equal(t, []byte("ns/a/b"), store.Key("ns", []byte("a"), []byte("b")))
	require.Equal(t, []byte("ns/"), store.Key("ns"))
}
