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

// Package documents keeps the set of documents that currently have
// attached sessions and routes messages between those sessions, the
// in-memory documents and the snapshot store.
package documents

import (
	"sync"
	"time"

	"github.com/inkwell-team/inkwell/api/protocol"
	"github.com/inkwell-team/inkwell/pkg/document/key"
	"github.com/inkwell-team/inkwell/server/backend"
)

// retryInterval bounds the attach retry spin while a closing entry
// finishes its final flush.
const retryInterval = 5 * time.Millisecond

// Session is one subscriber attached to a document, usually a WebSocket
// connection. Send must not block; implementations buffer and drop the
// connection when the buffer overflows.
type Session interface {
	ID() string
	Send(msg protocol.Message)
}

// Registry maps document keys to live entries. An entry exists exactly
// while at least one session is attached to its document.
type Registry struct {
	be *backend.Backend

	mu      sync.Mutex
	entries map[key.Key]*Entry
}

// NewRegistry creates a Registry backed by the given backend.
func NewRegistry(be *backend.Backend) *Registry {
	return &Registry{
		be:      be,
		entries: make(map[key.Key]*Entry),
	}
}

// Attach binds the session to the entry of the given key, creating the
// entry when the document is not loaded yet. The entry greets the
// session with the server's version vector once the document is ready.
func (r *Registry) Attach(docKey key.Key, s Session) *Entry {
	for {
		r.mu.Lock()
		entry, ok := r.entries[docKey]
		if !ok {
			entry = newEntry(r, r.be, docKey)
			r.entries[docKey] = entry
			if r.be.Metrics != nil {
				r.be.Metrics.AddDocument()
			}
		}
		r.mu.Unlock()

		// attach fails when the entry closed between lookup and attach; a
		// closed entry leaves the map once its final flush lands, so back
		// off briefly before retrying.
		if entry.attach(s) {
			return entry
		}
		time.Sleep(retryInterval)
	}
}

// Len returns the number of loaded documents.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close flushes and evicts every entry. It is called once, when the
// server shuts down after the RPC listener stopped accepting work.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.entries = make(map[key.Key]*Entry)
	r.mu.Unlock()

	for _, entry := range entries {
		entry.shutdown()
		if r.be.Metrics != nil {
			r.be.Metrics.RemoveDocument()
		}
	}
}

// remove evicts the entry if it is still the one registered for the key.
func (r *Registry) remove(docKey key.Key, entry *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.entries[docKey]; ok && current == entry {
		delete(r.entries, docKey)
		if r.be.Metrics != nil {
			r.be.Metrics.RemoveDocument()
		}
	}
}
