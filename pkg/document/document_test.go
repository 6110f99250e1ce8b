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

package document_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/pkg/document"
	"github.com/inkwell-team/inkwell/pkg/document/time"
)

func newDoc(t *testing.T) *document.Document {
	t.Helper()
	return document.New(time.NewActorID())
}

func edit(t *testing.T, doc *document.Document, container string, pos, deleteLen int, content string) {
	t.Helper()
	require.NoError(t, doc.Update(func(root *document.Root) error {
		return root.Text(container).Edit(pos, deleteLen, content)
	}))
}

func TestDocumentEncode(t *testing.T) {
	t.Run("empty document encodes to zero length test", func(t *testing.T) {
		doc := newDoc(t)
		encoded, err := doc.Encode()
		require.NoError(t, err)
		assert.Len(t, encoded, 0)
	})

	t.Run("round trip test", func(t *testing.T) {
		doc := newDoc(t)
		edit(t, doc, "content", 0, 0, "hello world")
		edit(t, doc, "content", 5, 6, "")
		edit(t, doc, "notes", 0, 0, "side notes")

		encoded, err := doc.Encode()
		require.NoError(t, err)
		require.NotEmpty(t, encoded)

		clone := newDoc(t)
		require.NoError(t, clone.ApplyUpdate(encoded, "remote"))
		assert.Equal(t, "hello", clone.TextContent("content"))
		assert.Equal(t, "side notes", clone.TextContent("notes"))

		reencoded, err := clone.Encode()
		require.NoError(t, err)
		assert.Equal(t, encoded, reencoded)
	})

	t.Run("malformed update test", func(t *testing.T) {
		doc := newDoc(t)
		edit(t, doc, "content", 0, 0, "keep")

		assert.Error(t, doc.ApplyUpdate([]byte{0xff, 0x01, 0x02}, "remote"))
		assert.Equal(t, "keep", doc.TextContent("content"))
	})
}

func TestDocumentMerge(t *testing.T) {
	t.Run("idempotent apply test", func(t *testing.T) {
		source := newDoc(t)
		edit(t, source, "content", 0, 0, "once")
		update, err := source.Encode()
		require.NoError(t, err)

		doc := newDoc(t)
		require.NoError(t, doc.ApplyUpdate(update, "remote"))
		first, err := doc.Encode()
		require.NoError(t, err)

		require.NoError(t, doc.ApplyUpdate(update, "remote"))
		second, err := doc.Encode()
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, "once", doc.TextContent("content"))
	})

	t.Run("merge order convergence test", func(t *testing.T) {
		docA := newDoc(t)
		edit(t, docA, "content", 0, 0, "from-a")
		updateA, err := docA.Encode()
		require.NoError(t, err)

		docB := newDoc(t)
		edit(t, docB, "content", 0, 0, "from-b")
		updateB, err := docB.Encode()
		require.NoError(t, err)

		ab := newDoc(t)
		require.NoError(t, ab.ApplyUpdate(updateA, "remote"))
		require.NoError(t, ab.ApplyUpdate(updateB, "remote"))
		encodedAB, err := ab.Encode()
		require.NoError(t, err)

		ba := newDoc(t)
		require.NoError(t, ba.ApplyUpdate(updateB, "remote"))
		require.NoError(t, ba.ApplyUpdate(updateA, "remote"))
		encodedBA, err := ba.Encode()
		require.NoError(t, err)

		assert.Equal(t, encodedAB, encodedBA)
	})

	t.Run("no clobber on snapshot merge test", func(t *testing.T) {
		persisted := newDoc(t)
		edit(t, persisted, "content", 0, 0, "persisted")
		snapshot, err := persisted.Encode()
		require.NoError(t, err)

		live := newDoc(t)
		edit(t, live, "content", 0, 0, "local")

		require.NoError(t, live.ApplyUpdate(snapshot, document.OriginStore))
		content := live.TextContent("content")
		assert.Contains(t, content, "persisted")
		assert.Contains(t, content, "local")
	})

	t.Run("delta since test", func(t *testing.T) {
		source := newDoc(t)
		edit(t, source, "content", 0, 0, "base")

		peer := newDoc(t)
		base, err := source.Encode()
		require.NoError(t, err)
		require.NoError(t, peer.ApplyUpdate(base, "remote"))

		edit(t, source, "content", 4, 0, "+more")

		delta, err := source.DeltaSince(peer.VersionVector())
		require.NoError(t, err)
		require.NotEmpty(t, delta)

		require.NoError(t, peer.ApplyUpdate(delta, "remote"))
		assert.Equal(t, "base+more", peer.TextContent("content"))

		upToDate, err := source.DeltaSince(peer.VersionVector())
		require.NoError(t, err)
		assert.Len(t, upToDate, 0)
	})
}

func TestDocumentEvents(t *testing.T) {
	t.Run("local edit fires local origin test", func(t *testing.T) {
		doc := newDoc(t)
		var events []document.UpdateEvent
		doc.SubscribeUpdates(func(event document.UpdateEvent) {
			events = append(events, event)
		})

		edit(t, doc, "content", 0, 0, "hi")

		require.Len(t, events, 1)
		assert.Equal(t, document.OriginLocal, events[0].Origin)
		assert.NotEmpty(t, events[0].Delta)

		// the event delta must replay on another replica
		clone := newDoc(t)
		require.NoError(t, clone.ApplyUpdate(events[0].Delta, "remote"))
		assert.Equal(t, "hi", clone.TextContent("content"))
	})

	t.Run("remote apply carries caller origin test", func(t *testing.T) {
		source := newDoc(t)
		edit(t, source, "content", 0, 0, "x")
		update, err := source.Encode()
		require.NoError(t, err)

		doc := newDoc(t)
		var origins []string
		doc.SubscribeUpdates(func(event document.UpdateEvent) {
			origins = append(origins, event.Origin)
		})

		require.NoError(t, doc.ApplyUpdate(update, "session-1"))
		assert.Equal(t, []string{"session-1"}, origins)

		// re-applying a known update fires nothing
		require.NoError(t, doc.ApplyUpdate(update, "session-1"))
		assert.Len(t, origins, 1)
	})
}
