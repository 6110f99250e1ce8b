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

package documents

import (
	"context"
	"sync"

	"github.com/inkwell-team/inkwell/api/protocol"
	"github.com/inkwell-team/inkwell/pkg/document"
	"github.com/inkwell-team/inkwell/pkg/document/key"
	"github.com/inkwell-team/inkwell/pkg/document/time"
	"github.com/inkwell-team/inkwell/pkg/presence"
	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/logging"
	"github.com/inkwell-team/inkwell/server/packs"
)

type entryState int

const (
	// stateLoading means the stored snapshot is still being read. Incoming
	// messages are queued and replayed once the document is in memory, so
	// an early update can never observe partial state.
	stateLoading entryState = iota
	stateActive
	stateClosed
)

const persistQueueSize = 64

type queuedMessage struct {
	sess Session
	msg  protocol.Message
}

// Entry coordinates the sessions attached to one document: it owns the
// in-memory document, the awareness table and the ordered persist queue.
type Entry struct {
	key      key.Key
	be       *backend.Backend
	registry *Registry

	mu       sync.Mutex
	state    entryState
	doc      *document.Document
	sessions map[string]Session
	actors   map[string]map[time.ActorID]struct{}
	table    *presence.Table
	queued   []queuedMessage

	persistCh chan []byte
	persistWG sync.WaitGroup
}

func newEntry(registry *Registry, be *backend.Backend, docKey key.Key) *Entry {
	e := &Entry{
		key:       docKey,
		be:        be,
		registry:  registry,
		state:     stateLoading,
		sessions:  make(map[string]Session),
		actors:    make(map[string]map[time.ActorID]struct{}),
		table:     presence.NewTable(),
		persistCh: make(chan []byte, persistQueueSize),
	}

	e.persistWG.Add(1)
	go e.persistLoop()
	go e.load()

	return e
}

// load reads the stored snapshot and activates the entry. A load failure
// is logged and the document starts empty; the store is authoritative
// again on the next write.
func (e *Entry) load() {
	ctx := context.Background()
	doc, err := packs.Load(ctx, e.be, e.key)
	if err != nil {
		logging.DefaultLogger().Errorf("load %s: %v", e.key, err)
		doc = document.New(time.InitialActorID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateClosed {
		return
	}

	e.doc = doc
	e.state = stateActive

	for _, s := range e.sessions {
		e.greetLocked(s)
	}

	queued := e.queued
	e.queued = nil
	for _, qm := range queued {
		e.handleLocked(qm.sess, qm.msg)
	}
}

// attach registers the session. It returns false when the entry is
// already closing and the caller must retry against a fresh entry.
func (e *Entry) attach(s Session) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateClosed {
		return false
	}

	e.sessions[s.ID()] = s
	e.actors[s.ID()] = make(map[time.ActorID]struct{})
	if e.be.Metrics != nil {
		e.be.Metrics.AddSession()
	}

	if e.state == stateActive {
		e.greetLocked(s)
	}
	return true
}

// greetLocked opens the sync conversation with a newly visible session:
// the server's version vector, then the current awareness state.
func (e *Entry) greetLocked(s Session) {
	vector, err := e.doc.VersionVector().Encode()
	if err != nil {
		logging.DefaultLogger().Errorf("encode vector of %s: %v", e.key, err)
		return
	}
	s.Send(protocol.NewSyncMessage(protocol.SyncStep1, vector))

	if e.table.Len() == 0 {
		return
	}
	payload, err := presence.Encode(e.table.Snapshot())
	if err != nil {
		logging.DefaultLogger().Errorf("encode presence of %s: %v", e.key, err)
		return
	}
	s.Send(protocol.NewAwarenessMessage(payload))
}

// Handle processes one decoded message from the given session. During
// loading the message is queued; it is replayed in arrival order when
// the entry activates.
func (e *Entry) Handle(s Session, msg protocol.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case stateClosed:
		return
	case stateLoading:
		e.queued = append(e.queued, queuedMessage{sess: s, msg: msg})
		return
	}

	e.handleLocked(s, msg)
}

func (e *Entry) handleLocked(s Session, msg protocol.Message) {
	// A session may detach while its message sits in the loading queue.
	// Document updates still apply; messages that only concern the gone
	// session (sync requests, presence) are dropped.
	_, attached := e.sessions[s.ID()]

	switch msg.Type {
	case protocol.TypeSync:
		if msg.Sync == protocol.SyncStep1 && !attached {
			return
		}
		e.handleSyncLocked(s, msg)
	case protocol.TypeAwareness:
		if !attached {
			return
		}
		e.handleAwarenessLocked(s, msg)
	}
}

func (e *Entry) handleSyncLocked(s Session, msg protocol.Message) {
	switch msg.Sync {
	case protocol.SyncStep1:
		vector, err := time.DecodeVersionVectorBytes(msg.Payload)
		if err != nil {
			logging.DefaultLogger().Warnf("vector from %s: %v", s.ID(), err)
			return
		}
		delta, err := e.doc.DeltaSince(vector)
		if err != nil {
			logging.DefaultLogger().Errorf("delta of %s: %v", e.key, err)
			return
		}
		s.Send(protocol.NewSyncMessage(protocol.SyncStep2, delta))
		if e.be.Metrics != nil {
			e.be.Metrics.AddSentUpdateBytes(len(delta))
		}

	case protocol.SyncStep2, protocol.SyncUpdate:
		if len(msg.Payload) == 0 {
			return
		}
		if e.be.Metrics != nil {
			e.be.Metrics.AddReceivedUpdateBytes(len(msg.Payload))
		}
		if err := e.doc.ApplyUpdate(msg.Payload, s.ID()); err != nil {
			logging.DefaultLogger().Warnf("update from %s: %v", s.ID(), err)
			return
		}

		e.broadcastLocked(s, protocol.NewSyncMessage(protocol.SyncUpdate, msg.Payload))
		e.persistCh <- msg.Payload
	}
}

func (e *Entry) handleAwarenessLocked(s Session, msg protocol.Message) {
	updates, err := presence.Decode(msg.Payload)
	if err != nil {
		logging.DefaultLogger().Warnf("presence from %s: %v", s.ID(), err)
		return
	}

	announced := e.actors[s.ID()]
	for _, update := range updates {
		if len(update.Data) == 0 {
			delete(announced, update.Actor)
		} else {
			announced[update.Actor] = struct{}{}
		}
	}

	accepted := e.table.Apply(updates)
	if len(accepted) == 0 {
		return
	}
	payload, err := presence.Encode(accepted)
	if err != nil {
		logging.DefaultLogger().Errorf("encode presence of %s: %v", e.key, err)
		return
	}
	e.broadcastLocked(s, protocol.NewAwarenessMessage(payload))
}

// broadcastLocked fans the message out to every session except the
// originator.
func (e *Entry) broadcastLocked(origin Session, msg protocol.Message) {
	for id, s := range e.sessions {
		if origin != nil && id == origin.ID() {
			continue
		}
		s.Send(msg)
		if e.be.Metrics != nil && msg.Type == protocol.TypeSync {
			e.be.Metrics.AddSentUpdateBytes(len(msg.Payload))
		}
	}
	if e.be.Metrics != nil {
		e.be.Metrics.AddBroadcast()
	}
}

// Detach removes the session. The last detach flushes the document to
// the store and evicts the entry from the registry.
func (e *Entry) Detach(s Session) {
	e.mu.Lock()
	if _, ok := e.sessions[s.ID()]; !ok {
		e.mu.Unlock()
		return
	}

	delete(e.sessions, s.ID())
	if e.be.Metrics != nil {
		e.be.Metrics.RemoveSession()
	}

	announced := e.actors[s.ID()]
	delete(e.actors, s.ID())
	if len(announced) > 0 {
		actors := make([]time.ActorID, 0, len(announced))
		for actor := range announced {
			actors = append(actors, actor)
		}
		if removals := e.table.Removal(actors); len(removals) > 0 {
			if payload, err := presence.Encode(removals); err == nil {
				e.broadcastLocked(s, protocol.NewAwarenessMessage(payload))
			}
		}
	}

	last := len(e.sessions) == 0 && e.state != stateClosed
	if last {
		e.state = stateClosed
	}
	e.mu.Unlock()

	// Flush before eviction: a client re-attaching right away must not
	// load the store before the final state landed there.
	if last {
		e.flush()
		e.registry.remove(e.key, e)
	}
}

// flush drains the persist queue and writes the final full state. The
// caller must have moved the entry to stateClosed first.
func (e *Entry) flush() {
	close(e.persistCh)
	e.persistWG.Wait()

	e.mu.Lock()
	doc := e.doc
	e.mu.Unlock()
	if doc == nil {
		return
	}

	if err := packs.WriteFullState(context.Background(), e.be, e.key, doc); err != nil {
		logging.DefaultLogger().Errorf("flush %s: %v", e.key, err)
	}
}

// persistLoop writes accepted deltas to the store in arrival order, so
// persistence can never reorder what sessions produced.
func (e *Entry) persistLoop() {
	defer e.persistWG.Done()

	ctx := context.Background()
	for delta := range e.persistCh {
		if err := packs.StoreDelta(ctx, e.be, e.key, delta); err != nil {
			logging.DefaultLogger().Errorf("persist %s: %v", e.key, err)
		}
	}
}

// shutdown closes the entry regardless of attached sessions, used when
// the server stops.
func (e *Entry) shutdown() {
	e.mu.Lock()
	if e.state == stateClosed {
		e.mu.Unlock()
		return
	}
	e.state = stateClosed
	e.mu.Unlock()

	e.flush()
}
