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

package packs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/pkg/document"
	"github.com/inkwell-team/inkwell/pkg/document/key"
	"github.com/inkwell-team/inkwell/pkg/document/time"
	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/backend/database"
	"github.com/inkwell-team/inkwell/server/packs"
)

func setUpBackend(t *testing.T) *backend.Backend {
	t.Helper()

	be, err := backend.New(&backend.Config{Database: backend.DriverMemory}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, be.Shutdown())
	})
	return be
}

func docKey(t *testing.T, k string) key.Key {
	t.Helper()

	docKey, err := key.FromString(k)
	require.NoError(t, err)
	return docKey
}

func editedDelta(t *testing.T, text string) []byte {
	t.Helper()

	doc := document.New(time.NewActorID())
	require.NoError(t, doc.Update(func(root *document.Root) error {
		return root.Text("content").Edit(0, 0, text)
	}))
	delta, err := doc.Encode()
	require.NoError(t, err)
	require.NotEmpty(t, delta)
	return delta
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("absent record yields fresh document test", func(t *testing.T) {
		be := setUpBackend(t)
		k := docKey(t, "000000000000000000000001")

		doc, err := packs.Load(ctx, be, k)
		require.NoError(t, err)
		assert.Equal(t, 0, doc.Len("content"))
		encoded, err := doc.Encode()
		require.NoError(t, err)
		assert.Empty(t, encoded)
	})

	t.Run("empty stored snapshot yields fresh document test", func(t *testing.T) {
		be := setUpBackend(t)
		k := docKey(t, "000000000000000000000002")
		require.NoError(t, be.DB.UpsertSnapshotInfoByKey(ctx, k, nil))

		doc, err := packs.Load(ctx, be, k)
		require.NoError(t, err)
		assert.Equal(t, 0, doc.Len("content"))
	})

	t.Run("undecodable snapshot is cleared and replaced test", func(t *testing.T) {
		be := setUpBackend(t)
		k := docKey(t, "000000000000000000000003")
		require.NoError(t, be.DB.UpsertSnapshotInfoByKey(ctx, k, []byte("not a snapshot")))

		doc, err := packs.Load(ctx, be, k)
		require.NoError(t, err)
		assert.Equal(t, 0, doc.Len("content"))

		info, err := be.DB.FindSnapshotInfoByKey(ctx, k)
		require.NoError(t, err)
		assert.Empty(t, info.Snapshot)
	})
}

func TestStoreDelta(t *testing.T) {
	ctx := context.Background()

	t.Run("delta round trips through the store test", func(t *testing.T) {
		be := setUpBackend(t)
		k := docKey(t, "00000000000000000000000a")

		require.NoError(t, packs.StoreDelta(ctx, be, k, editedDelta(t, "hello")))

		doc, err := packs.Load(ctx, be, k)
		require.NoError(t, err)
		assert.Equal(t, "hello", doc.TextContent("content"))
	})

	t.Run("deltas from different actors accumulate test", func(t *testing.T) {
		be := setUpBackend(t)
		k := docKey(t, "00000000000000000000000b")

		require.NoError(t, packs.StoreDelta(ctx, be, k, editedDelta(t, "left")))
		require.NoError(t, packs.StoreDelta(ctx, be, k, editedDelta(t, "right")))

		doc, err := packs.Load(ctx, be, k)
		require.NoError(t, err)
		got := doc.TextContent("content")
		assert.Contains(t, got, "left")
		assert.Contains(t, got, "right")
	})

	t.Run("empty delta writes nothing test", func(t *testing.T) {
		be := setUpBackend(t)
		k := docKey(t, "00000000000000000000000c")

		require.NoError(t, packs.StoreDelta(ctx, be, k, nil))

		_, err := packs.Load(ctx, be, k)
		require.NoError(t, err)
		_, err = be.DB.FindSnapshotInfoByKey(ctx, k)
		assert.ErrorIs(t, err, database.ErrSnapshotNotFound)
	})
}

func TestWriteFullState(t *testing.T) {
	ctx := context.Background()

	t.Run("full state persists edited document test", func(t *testing.T) {
		be := setUpBackend(t)
		k := docKey(t, "000000000000000000000010")

		doc := document.New(time.NewActorID())
		require.NoError(t, doc.Update(func(root *document.Root) error {
			return root.Text("content").Edit(0, 0, "persist me")
		}))
		require.NoError(t, packs.WriteFullState(ctx, be, k, doc))

		loaded, err := packs.Load(ctx, be, k)
		require.NoError(t, err)
		assert.Equal(t, "persist me", loaded.TextContent("content"))
	})

	t.Run("empty document creates no record test", func(t *testing.T) {
		be := setUpBackend(t)
		k := docKey(t, "000000000000000000000011")

		require.NoError(t, packs.WriteFullState(ctx, be, k, document.New(time.NewActorID())))

		_, err := be.DB.FindSnapshotInfoByKey(ctx, k)
		assert.ErrorIs(t, err, database.ErrSnapshotNotFound)
	})

	t.Run("full state merges over stored snapshot test", func(t *testing.T) {
		be := setUpBackend(t)
		k := docKey(t, "000000000000000000000012")

		require.NoError(t, packs.StoreDelta(ctx, be, k, editedDelta(t, "stored")))

		doc := document.New(time.NewActorID())
		require.NoError(t, doc.Update(func(root *document.Root) error {
			return root.Text("content").Edit(0, 0, "memory")
		}))
		require.NoError(t, packs.WriteFullState(ctx, be, k, doc))

		loaded, err := packs.Load(ctx, be, k)
		require.NoError(t, err)
		got := loaded.TextContent("content")
		assert.Contains(t, got, "stored")
		assert.Contains(t, got, "memory")
	})
}
