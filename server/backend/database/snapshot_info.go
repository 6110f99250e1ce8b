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

package database

import (
	"time"

	"github.com/inkwell-team/inkwell/pkg/document/key"
)

// SnapshotInfo is the persisted record of a document: the latest full
// snapshot encoding plus its last-updated timestamp. The snapshot is
// always a full encoding; writes replace rather than append.
type SnapshotInfo struct {
	// Key is the document key, doubling as the primary key of the record.
	Key key.Key `bson:"-"`

	// Snapshot is the full-state encoding of the document. A record may
	// carry no snapshot at all, e.g. after corruption self-healing.
	Snapshot []byte `bson:"snapshot"`

	// UpdatedAt is the time the snapshot was last replaced.
	UpdatedAt time.Time `bson:"updated_at"`
}

// DeepCopy returns a deep copy of this SnapshotInfo.
func (i *SnapshotInfo) DeepCopy() *SnapshotInfo {
	if i == nil {
		return nil
	}

	copied := &SnapshotInfo{
		Key:       i.Key,
		UpdatedAt: i.UpdatedAt,
	}
	if i.Snapshot != nil {
		copied.Snapshot = make([]byte, len(i.Snapshot))
		copy(copied.Snapshot, i.Snapshot)
	}
	return copied
}
