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
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	sqliteDriver = "sqlite"

	createKVTable = `CREATE TABLE IF NOT EXISTS kv (k BLOB PRIMARY KEY, v BLOB NOT NULL)`
	selectValue   = `SELECT v FROM kv WHERE k = ?`
	upsertValue   = `INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`
	deleteValue   = `DELETE FROM kv WHERE k = ?`
)

// SQLite is a KV persisted in a sqlite database.
type SQLite struct {
	db *sql.DB
}

var _ KV = (*SQLite)(nil)

// OpenSQLite opens the database at dataSourceName and creates the kv table
// if needed.
func OpenSQLite(ctx context.Context, dataSourceName string) (*SQLite, error) {
	db, err := sql.Open(sqliteDriver, dataSourceName)
	if err != nil {
		return nil, errors.WithMessage(err, "opening sqlite")
	}
	// Serializes compare-and-set transactions.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, createKVTable); err != nil {
		db.Close()
		return nil, errors.WithMessage(err, "creating kv table")
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get implements KV.
func (s *SQLite) Get(ctx context.Context, key []byte) ([]byte, error) {
	return get(ctx, s.db, key)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func get(ctx context.Context, q queryer, key []byte) ([]byte, error) {
	var v []byte
	err := q.QueryRowContext(ctx, selectValue, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = []byte{}
	}
	return v, nil
}

// CompareAndSet implements KV.
func (s *SQLite) CompareAndSet(ctx context.Context, ops []CAS) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WithMessage(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, op := range ops {
		cur, err := get(ctx, tx, op.Key)
		if err != nil {
			return err
		}
		if !valuesEqual(cur, op.Old) {
			return ErrConflict
		}
	}
	for _, op := range ops {
		if op.New == nil {
			_, err = tx.ExecContext(ctx, deleteValue, op.Key)
		} else {
			_, err = tx.ExecContext(ctx, upsertValue, op.Key, op.New)
		}
		if err != nil {
			return errors.WithMessage(err, "writing kv")
		}
	}
	return tx.Commit()
}
