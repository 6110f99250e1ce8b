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

package documents_test

import (
	"context"
	"sync"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/api/protocol"
	"github.com/inkwell-team/inkwell/pkg/document"
	"github.com/inkwell-team/inkwell/pkg/document/key"
	"github.com/inkwell-team/inkwell/pkg/document/time"
	"github.com/inkwell-team/inkwell/pkg/presence"
	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/documents"
	"github.com/inkwell-team/inkwell/server/packs"
)

const waitFor = 3 * gotime.Second
const tick = 10 * gotime.Millisecond

type fakeSession struct {
	id string

	mu   sync.Mutex
	msgs []protocol.Message
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id}
}

func (f *fakeSession) ID() string { return f.id }

func (f *fakeSession) Send(msg protocol.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeSession) messages() []protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Message, len(f.msgs))
	copy(out, f.msgs)
	return out
}

func (f *fakeSession) firstOf(kind protocol.MessageType, sync protocol.SyncType) (protocol.Message, bool) {
	for _, msg := range f.messages() {
		if msg.Type == kind && (kind != protocol.TypeSync || msg.Sync == sync) {
			return msg, true
		}
	}
	return protocol.Message{}, false
}

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
	return delta
}

func waitForGreeting(t *testing.T, s *fakeSession) {
	t.Helper()

	require.Eventually(t, func() bool {
		_, ok := s.firstOf(protocol.TypeSync, protocol.SyncStep1)
		return ok
	}, waitFor, tick)
}

func TestRegistry(t *testing.T) {
	t.Run("attach greets with version vector test", func(t *testing.T) {
		be := setUpBackend(t)
		registry := documents.NewRegistry(be)
		k := docKey(t, "0000000000000000000000a1")

		s := newFakeSession("s1")
		entry := registry.Attach(k, s)
		defer entry.Detach(s)

		waitForGreeting(t, s)
		greeting, _ := s.firstOf(protocol.TypeSync, protocol.SyncStep1)
		vector, err := time.DecodeVersionVectorBytes(greeting.Payload)
		require.NoError(t, err)
		assert.Equal(t, 0, len(vector))
		assert.Equal(t, 1, registry.Len())
	})

	t.Run("greeting reflects stored snapshot test", func(t *testing.T) {
		be := setUpBackend(t)
		registry := documents.NewRegistry(be)
		k := docKey(t, "0000000000000000000000a2")
		require.NoError(t, packs.StoreDelta(context.Background(), be, k, editedDelta(t, "stored")))

		s := newFakeSession("s1")
		entry := registry.Attach(k, s)
		defer entry.Detach(s)
		waitForGreeting(t, s)

		// an empty vector asks for everything
		empty, err := time.NewVersionVector().Encode()
		require.NoError(t, err)
		entry.Handle(s, protocol.NewSyncMessage(protocol.SyncStep1, empty))

		reply, ok := s.firstOf(protocol.TypeSync, protocol.SyncStep2)
		require.True(t, ok)

		doc := document.New(time.NewActorID())
		require.NoError(t, doc.ApplyUpdate(reply.Payload, "server"))
		assert.Equal(t, "stored", doc.TextContent("content"))
	})

	t.Run("update broadcast excludes originator test", func(t *testing.T) {
		be := setUpBackend(t)
		registry := documents.NewRegistry(be)
		k := docKey(t, "0000000000000000000000a3")

		s1 := newFakeSession("s1")
		s2 := newFakeSession("s2")
		entry := registry.Attach(k, s1)
		registry.Attach(k, s2)
		defer entry.Detach(s1)
		defer entry.Detach(s2)
		waitForGreeting(t, s1)
		waitForGreeting(t, s2)

		delta := editedDelta(t, "hello")
		entry.Handle(s1, protocol.NewSyncMessage(protocol.SyncUpdate, delta))

		require.Eventually(t, func() bool {
			_, ok := s2.firstOf(protocol.TypeSync, protocol.SyncUpdate)
			return ok
		}, waitFor, tick)
		forwarded, _ := s2.firstOf(protocol.TypeSync, protocol.SyncUpdate)
		assert.Equal(t, delta, forwarded.Payload)

		_, ok := s1.firstOf(protocol.TypeSync, protocol.SyncUpdate)
		assert.False(t, ok)
	})

	t.Run("last detach flushes and evicts test", func(t *testing.T) {
		be := setUpBackend(t)
		registry := documents.NewRegistry(be)
		k := docKey(t, "0000000000000000000000a4")

		s := newFakeSession("s1")
		entry := registry.Attach(k, s)
		waitForGreeting(t, s)

		entry.Handle(s, protocol.NewSyncMessage(protocol.SyncUpdate, editedDelta(t, "durable")))
		entry.Detach(s)

		assert.Equal(t, 0, registry.Len())

		loaded, err := packs.Load(context.Background(), be, k)
		require.NoError(t, err)
		assert.Equal(t, "durable", loaded.TextContent("content"))
	})

	t.Run("awareness fan out and removal test", func(t *testing.T) {
		be := setUpBackend(t)
		registry := documents.NewRegistry(be)
		k := docKey(t, "0000000000000000000000a5")

		s1 := newFakeSession("s1")
		s2 := newFakeSession("s2")
		entry := registry.Attach(k, s1)
		registry.Attach(k, s2)
		defer entry.Detach(s2)
		waitForGreeting(t, s1)
		waitForGreeting(t, s2)

		actor := time.NewActorID()
		payload, err := presence.Encode([]presence.Update{
			{Actor: actor, Clock: 1, Data: []byte(`{"cursor":3}`)},
		})
		require.NoError(t, err)
		entry.Handle(s1, protocol.NewAwarenessMessage(payload))

		require.Eventually(t, func() bool {
			_, ok := s2.firstOf(protocol.TypeAwareness, 0)
			return ok
		}, waitFor, tick)

		// a late joiner receives the current awareness state
		s3 := newFakeSession("s3")
		registry.Attach(k, s3)
		defer entry.Detach(s3)
		waitForGreeting(t, s3)
		snapshot, ok := s3.firstOf(protocol.TypeAwareness, 0)
		require.True(t, ok)
		updates, err := presence.Decode(snapshot.Payload)
		require.NoError(t, err)
		require.Len(t, updates, 1)
		assert.Equal(t, actor, updates[0].Actor)

		// detaching the announcer broadcasts a removal
		entry.Detach(s1)
		require.Eventually(t, func() bool {
			for _, msg := range s2.messages() {
				if msg.Type != protocol.TypeAwareness {
					continue
				}
				decoded, err := presence.Decode(msg.Payload)
				if err != nil {
					continue
				}
				for _, update := range decoded {
					if update.Actor == actor && len(update.Data) == 0 {
						return true
					}
				}
			}
			return false
		}, waitFor, tick)
	})

	t.Run("close flushes all entries test", func(t *testing.T) {
		be := setUpBackend(t)
		registry := documents.NewRegistry(be)
		k := docKey(t, "0000000000000000000000a6")

		s := newFakeSession("s1")
		entry := registry.Attach(k, s)
		waitForGreeting(t, s)
		entry.Handle(s, protocol.NewSyncMessage(protocol.SyncUpdate, editedDelta(t, "shutdown")))

		registry.Close()
		assert.Equal(t, 0, registry.Len())

		loaded, err := packs.Load(context.Background(), be, k)
		require.NoError(t, err)
		assert.Equal(t, "shutdown", loaded.TextContent("content"))
	})
}
