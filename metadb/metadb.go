// Copyright (c) HashiCorp, Inc
// SPDX-License-Identifier: MPL-2.0

// Package metadb implements a BoltDB-backed types.MetaStore. Clients that
// manage segment files keep their list of segments and a small stable KV
// area here; committing through a single BoltDB transaction gives them an
// atomic, durable "commit point" between file operations.
package metadb

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/dreamsxin/logseg/types"
)

// FileName is the name of the BoltDB file within the data directory.
const FileName = "wal-meta.db"

var (
	metaBucket   = []byte("wal-meta")
	stableBucket = []byte("stable")
	metaKey      = []byte("meta")
)

// BoltMetaDB implements types.MetaStore with a single BoltDB file in the
// data directory. The zero value is ready to use; the file is created on
// the first Load.
type BoltMetaDB struct {
	dir string
	db  *bbolt.DB
}

var _ types.MetaStore = (*BoltMetaDB)(nil)

func (db *BoltMetaDB) ensureOpen(dir string) error {
	if dir == "" {
		return fmt.Errorf("directory is required")
	}
	if db.db != nil {
		if db.dir == dir {
			return nil
		}
		return fmt.Errorf("already open in dir %q, can't load dir %q", db.dir, dir)
	}

	fileName := filepath.Join(dir, FileName)
	bb, err := bbolt.Open(fileName, 0o644, nil)
	if err != nil {
		return fmt.Errorf("failed to open meta database %q: %w", fileName, err)
	}
	err = bb.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(metaBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(stableBucket)
		return err
	})
	if err != nil {
		bb.Close()
		return fmt.Errorf("failed to initialize meta database: %w", err)
	}

	db.db = bb
	db.dir = dir
	return nil
}

// Load implements types.MetaStore. A directory with no meta database yet
// loads as the zero state.
func (db *BoltMetaDB) Load(dir string) (types.PersistentState, error) {
	var state types.PersistentState
	if err := db.ensureOpen(dir); err != nil {
		return state, err
	}

	err := db.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get(metaKey)
		if raw == nil {
			// Fresh store.
			return nil
		}
		if err := json.Unmarshal(raw, &state); err != nil {
			return fmt.Errorf("failed to parse persisted state: %w", err)
		}
		return nil
	})
	return state, err
}

// CommitState implements types.MetaStore. BoltDB fsyncs on every write
// transaction, so the state is durable when this returns.
func (db *BoltMetaDB) CommitState(state types.PersistentState) error {
	if db.db == nil {
		return fmt.Errorf("meta database not loaded")
	}
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode persisted state: %w", err)
	}
	return db.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(metaBucket).Put(metaKey, encoded)
	})
}

// GetStable implements types.MetaStore.
func (db *BoltMetaDB) GetStable(key []byte) ([]byte, error) {
	if db.db == nil {
		return nil, fmt.Errorf("meta database not loaded")
	}
	var value []byte
	err := db.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(stableBucket).Get(key)
		if raw != nil {
			// The slice is only valid inside the transaction.
			value = append([]byte(nil), raw...)
		}
		return nil
	})
	return value, err
}

// SetStable implements types.MetaStore.
func (db *BoltMetaDB) SetStable(key, value []byte) error {
	if db.db == nil {
		return fmt.Errorf("meta database not loaded")
	}
	return db.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(stableBucket).Put(key, value)
	})
}

// Close implements io.Closer.
func (db *BoltMetaDB) Close() error {
	if db.db == nil {
		return nil
	}
	err := db.db.Close()
	db.db = nil
	return err
}
