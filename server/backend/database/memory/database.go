/*
 * Copyright 2026 The Inkwell Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package memory implements the database interface using an in-memory
// database. It backs unit tests and the db=memory development mode.
package memory

import (
	"context"
	"fmt"
	gotime "time"

	"github.com/hashicorp/go-memdb"

	"github.com/inkwell-team/inkwell/pkg/document/key"
	"github.com/inkwell-team/inkwell/server/backend/database"
)

// DB is an in-memory database for testing or temporary use.
type DB struct {
	db *memdb.MemDB
}

// snapshotRecord wraps SnapshotInfo with a string ID for memory database
// storage.
type snapshotRecord struct {
	ID   string
	Info *database.SnapshotInfo
}

// New returns a new in-memory database.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &DB{db: memDB}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return nil
}

// FindSnapshotInfoByKey finds the snapshot record of the given key.
func (d *DB) FindSnapshotInfoByKey(
	_ context.Context,
	docKey key.Key,
) (*database.SnapshotInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblSnapshots, "id", docKey.String())
	if err != nil {
		return nil, fmt.Errorf("find snapshot of %s: %w", docKey, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", docKey, database.ErrSnapshotNotFound)
	}

	return raw.(*snapshotRecord).Info.DeepCopy(), nil
}

// UpsertSnapshotInfoByKey replaces the snapshot of the given key.
func (d *DB) UpsertSnapshotInfoByKey(
	_ context.Context,
	docKey key.Key,
	snapshot []byte,
) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	info := &database.SnapshotInfo{
		Key:       docKey,
		Snapshot:  snapshot,
		UpdatedAt: gotime.Now(),
	}
	if err := txn.Insert(tblSnapshots, &snapshotRecord{
		ID:   docKey.String(),
		Info: info,
	}); err != nil {
		return fmt.Errorf("upsert snapshot of %s: %w", docKey, err)
	}

	txn.Commit()
	return nil
}

// ClearSnapshotOfKey strips the snapshot field of the given key.
func (d *DB) ClearSnapshotOfKey(_ context.Context, docKey key.Key) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblSnapshots, "id", docKey.String())
	if err != nil {
		return fmt.Errorf("clear snapshot of %s: %w", docKey, err)
	}
	if raw == nil {
		return nil
	}

	info := raw.(*snapshotRecord).Info.DeepCopy()
	info.Snapshot = nil
	if err := txn.Insert(tblSnapshots, &snapshotRecord{
		ID:   docKey.String(),
		Info: info,
	}); err != nil {
		return fmt.Errorf("clear snapshot of %s: %w", docKey, err)
	}

	txn.Commit()
	return nil
}
