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

// Package database provides the interface of the snapshot store and its
// record types. Implementations live in the mongo and memory
// subpackages.
package database

import (
	"context"
	"errors"

	"github.com/inkwell-team/inkwell/pkg/document/key"
)

var (
	// ErrSnapshotNotFound is returned when there is no persisted record
	// for the given document key.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrSnapshotCorrupted is returned when a persisted snapshot field is
	// not in the expected shape. Implementations self-heal by clearing
	// the field before returning this error, so the next read sees a
	// record without a snapshot.
	ErrSnapshotCorrupted = errors.New("snapshot corrupted")
)

// Database is the interface of the snapshot store: one durable record per
// document key, holding the latest full snapshot encoding.
type Database interface {
	// FindSnapshotInfoByKey returns the record of the given key. A
	// corrupted snapshot field is cleared and reported with
	// ErrSnapshotCorrupted alongside the record.
	FindSnapshotInfoByKey(ctx context.Context, docKey key.Key) (*SnapshotInfo, error)

	// UpsertSnapshotInfoByKey replaces the snapshot of the given key and
	// refreshes its timestamp, creating the record when absent.
	UpsertSnapshotInfoByKey(ctx context.Context, docKey key.Key, snapshot []byte) error

	// ClearSnapshotOfKey strips the snapshot field of the given key,
	// leaving a record without content. It is a no-op when the record
	// does not exist.
	ClearSnapshotOfKey(ctx context.Context, docKey key.Key) error

	// Close releases the underlying connection.
	Close() error
}
