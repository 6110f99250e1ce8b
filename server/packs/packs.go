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

// Package packs moves document state between the snapshot store and
// in-memory documents. Every write goes through a read-merge-write cycle
// so a stored snapshot is never clobbered by a narrower one.
package packs

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkwell-team/inkwell/pkg/document"
	"github.com/inkwell-team/inkwell/pkg/document/key"
	"github.com/inkwell-team/inkwell/pkg/document/time"
	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/backend/database"
	"github.com/inkwell-team/inkwell/server/logging"
)

// Load builds an in-memory document from the stored snapshot of the
// given key. A missing record, an empty snapshot or a corrupted one all
// yield a fresh empty document; corruption is logged and the stored
// field cleared so the next load starts clean.
func Load(
	ctx context.Context,
	be *backend.Backend,
	docKey key.Key,
) (*document.Document, error) {
	doc := document.New(time.InitialActorID)

	info, err := be.DB.FindSnapshotInfoByKey(ctx, docKey)
	if err != nil {
		if errors.Is(err, database.ErrSnapshotNotFound) {
			return doc, nil
		}
		if errors.Is(err, database.ErrSnapshotCorrupted) {
			logging.From(ctx).Warnf("starting %s from empty state: %v", docKey, err)
			return doc, nil
		}
		return nil, err
	}
	if len(info.Snapshot) == 0 {
		return doc, nil
	}

	if err := doc.ApplyUpdate(info.Snapshot, document.OriginStore); err != nil {
		logging.From(ctx).Warnf(
			"snapshot of %s does not decode, clearing: %v", docKey, err,
		)
		if err := be.DB.ClearSnapshotOfKey(ctx, docKey); err != nil {
			logging.From(ctx).Warnf("clear snapshot of %s: %v", docKey, err)
		}
		return document.New(time.InitialActorID), nil
	}

	return doc, nil
}

// StoreDelta merges the given delta into the stored snapshot of the key
// and writes the merged full state back. The stored snapshot is read
// first and both encodings flow through a scratch document, so deltas
// from different sessions cannot lose each other.
func StoreDelta(
	ctx context.Context,
	be *backend.Backend,
	docKey key.Key,
	delta []byte,
) error {
	if len(delta) == 0 {
		return nil
	}

	scratch, err := Load(ctx, be, docKey)
	if err != nil {
		return err
	}
	if err := scratch.ApplyUpdate(delta, document.OriginStore); err != nil {
		return fmt.Errorf("merge delta of %s: %w", docKey, err)
	}

	return writeSnapshot(ctx, be, docKey, scratch)
}

// WriteFullState writes the full state of the given document, merged
// over whatever the store already holds. An empty encoding is
// suppressed so an untouched document never creates a record.
func WriteFullState(
	ctx context.Context,
	be *backend.Backend,
	docKey key.Key,
	doc *document.Document,
) error {
	encoded, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", docKey, err)
	}
	if len(encoded) == 0 {
		if be.Metrics != nil {
			be.Metrics.AddSnapshotWriteSkipped()
		}
		return nil
	}

	scratch, err := Load(ctx, be, docKey)
	if err != nil {
		return err
	}
	if err := scratch.ApplyUpdate(encoded, document.OriginStore); err != nil {
		return fmt.Errorf("merge full state of %s: %w", docKey, err)
	}

	return writeSnapshot(ctx, be, docKey, scratch)
}

func writeSnapshot(
	ctx context.Context,
	be *backend.Backend,
	docKey key.Key,
	doc *document.Document,
) error {
	encoded, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", docKey, err)
	}
	if len(encoded) == 0 {
		if be.Metrics != nil {
			be.Metrics.AddSnapshotWriteSkipped()
		}
		return nil
	}

	if err := be.DB.UpsertSnapshotInfoByKey(ctx, docKey, encoded); err != nil {
		if be.Metrics != nil {
			be.Metrics.AddSnapshotWriteError()
		}
		return err
	}
	if be.Metrics != nil {
		be.Metrics.AddSnapshotWrite()
	}
	return nil
}
