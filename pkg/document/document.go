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

// Package document provides the mergeable document replica: a registry of
// named shared text containers on top of the CRDT engine, the binary
// update codec, and update events for synchronization.
package document

import (
	"fmt"
	"sort"

	"github.com/inkwell-team/inkwell/pkg/document/crdt"
	"github.com/inkwell-team/inkwell/pkg/document/time"
)

// OriginLocal tags update events produced by local mutations through
// Update. Events from ApplyUpdate carry the origin the caller passed in,
// typically a session ID or OriginStore.
const OriginLocal = "local"

// OriginStore tags update events produced by merging a persisted snapshot
// into a live document.
const OriginStore = "store"

// OriginRemote tags update events produced by applying an update received
// from another replica over the wire.
const OriginRemote = "remote"

// UpdateEvent is fired once per successful local or remote mutation. Delta
// holds exactly the newly integrated operations, encoded.
type UpdateEvent struct {
	Delta  []byte
	Origin string
}

// logEntry binds an operation to the container it belongs to. The
// per-actor logs are the document's append-only operation history.
type logEntry struct {
	container string
	op        crdt.Op
}

// Document is one replica of a shared document. Every replica is equally
// authoritative; merging any two replicas' operation logs yields the same
// state regardless of order.
//
// A Document is not safe for concurrent use; callers serialize access
// (the server does so per document entry).
type Document struct {
	actor   time.ActorID
	seq     uint64
	vector  time.VersionVector
	texts   map[string]*crdt.Text
	logs    map[time.ActorID][]logEntry
	pending []logEntry
	subs    []func(UpdateEvent)
}

// New creates an empty Document replica owned by the given actor.
func New(actor time.ActorID) *Document {
	return &Document{
		actor:  actor,
		vector: time.NewVersionVector(),
		texts:  make(map[string]*crdt.Text),
		logs:   make(map[time.ActorID][]logEntry),
	}
}

// ActorID returns the identity of this replica.
func (d *Document) ActorID() time.ActorID {
	return d.actor
}

// SubscribeUpdates registers a callback fired once per mutation, in
// application order.
func (d *Document) SubscribeUpdates(fn func(UpdateEvent)) {
	d.subs = append(d.subs, fn)
}

// Update executes the given updater against the document root. All
// operations it produces are committed as one update event with
// OriginLocal. Operations produced before an updater error are still
// committed; the error is returned to the caller.
func (d *Document) Update(updater func(root *Root) error) error {
	root := &Root{doc: d}
	err := updater(root)

	if len(root.produced) > 0 {
		d.vector.Set(d.actor, d.seq)
		for _, entry := range root.produced {
			d.logs[d.actor] = append(d.logs[d.actor], entry)
		}

		delta, encErr := encodeUpdate(root.produced)
		if encErr != nil {
			return encErr
		}
		d.publish(UpdateEvent{Delta: delta, Origin: OriginLocal})
	}

	return err
}

// ApplyUpdate decodes the given update and integrates its operations,
// idempotently and commutatively. When at least one new operation was
// integrated, one update event carrying the applied operations and the
// given origin is fired. Malformed bytes return an error and change
// nothing.
func (d *Document) ApplyUpdate(data []byte, origin string) error {
	entries, err := decodeUpdate(data)
	if err != nil {
		return fmt.Errorf("apply update: %w", err)
	}

	applied := d.integrate(entries)
	if len(applied) == 0 {
		return nil
	}

	delta, err := encodeUpdate(applied)
	if err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	d.publish(UpdateEvent{Delta: delta, Origin: origin})
	return nil
}

// Encode returns the canonical full-state encoding: all operations needed
// to reconstruct this document from empty. An empty document encodes to a
// zero-length slice.
func (d *Document) Encode() ([]byte, error) {
	return d.DeltaSince(time.NewVersionVector())
}

// DeltaSince returns an update carrying only the operations the peer with
// the given version vector is missing. Returns a zero-length slice when
// the peer is up to date.
func (d *Document) DeltaSince(peer time.VersionVector) ([]byte, error) {
	var entries []logEntry
	for _, actor := range d.sortedLogActors() {
		covered := peer.Get(actor)
		for _, entry := range d.logs[actor] {
			if entry.op.EndSeq() > covered {
				entries = append(entries, entry)
			}
		}
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return encodeUpdate(entries)
}

// VersionVector returns a copy of this replica's version vector.
func (d *Document) VersionVector() time.VersionVector {
	return d.vector.Copy()
}

// ContainerNames returns the names of all shared containers, sorted.
func (d *Document) ContainerNames() []string {
	names := make([]string, 0, len(d.texts))
	for name := range d.texts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TextContent returns the visible content of the named container, or ""
// when it does not exist.
func (d *Document) TextContent(name string) string {
	text, ok := d.texts[name]
	if !ok {
		return ""
	}
	return text.String()
}

// Len returns the number of visible runes of the named container.
func (d *Document) Len(name string) int {
	text, ok := d.texts[name]
	if !ok {
		return 0
	}
	return text.Len()
}

// integrate applies the given entries plus any previously parked ones.
// Operations whose causal dependencies are still missing are parked again.
// The version vector only advances contiguously: once an actor's entry
// stalls, its later entries stall with it.
func (d *Document) integrate(entries []logEntry) []logEntry {
	work := make([]logEntry, 0, len(d.pending)+len(entries))
	work = append(work, d.pending...)
	work = append(work, entries...)
	d.pending = nil

	var applied []logEntry
	for {
		progress := false
		var stalled []logEntry
		stalledActors := make(map[time.ActorID]bool)

		for _, entry := range work {
			actor := entry.op.ID.Actor
			if stalledActors[actor] {
				stalled = append(stalled, entry)
				continue
			}
			if d.vector.Includes(actor, entry.op.EndSeq()) {
				continue
			}
			if entry.op.ID.Seq > d.vector.Get(actor)+1 {
				stalledActors[actor] = true
				stalled = append(stalled, entry)
				continue
			}

			text := d.getOrCreateText(entry.container)
			if _, missing := text.Apply(entry.op); missing {
				stalledActors[actor] = true
				stalled = append(stalled, entry)
				continue
			}

			d.vector.Set(actor, entry.op.EndSeq())
			d.logs[actor] = append(d.logs[actor], entry)
			applied = append(applied, entry)
			progress = true
		}

		work = stalled
		if !progress || len(work) == 0 {
			break
		}
	}

	d.pending = work
	return applied
}

func (d *Document) getOrCreateText(name string) *crdt.Text {
	if text, ok := d.texts[name]; ok {
		return text
	}
	text := crdt.NewText()
	d.texts[name] = text
	return text
}

func (d *Document) alloc(n uint64) uint64 {
	d.seq += n
	return d.seq - n + 1
}

func (d *Document) publish(event UpdateEvent) {
	for _, fn := range d.subs {
		fn(event)
	}
}

func (d *Document) sortedLogActors() []time.ActorID {
	actors := make([]time.ActorID, 0, len(d.logs))
	for actor := range d.logs {
		actors = append(actors, actor)
	}
	sort.Slice(actors, func(i, j int) bool {
		return actors[i].Compare(actors[j]) < 0
	})
	return actors
}

// Root is the handle local mutations go through; it collects the produced
// operations of one Update call.
type Root struct {
	doc      *Document
	produced []logEntry
}

// Text returns a reference to the named shared text container, creating
// it lazily.
func (r *Root) Text(name string) *TextRef {
	return &TextRef{root: r, name: name}
}

// TextRef is a local-editing handle to one named text container.
type TextRef struct {
	root *Root
	name string
}

// Edit deletes deleteLen visible runes at pos, then inserts content there.
func (t *TextRef) Edit(pos, deleteLen int, content string) error {
	doc := t.root.doc
	text := doc.getOrCreateText(t.name)

	ops, err := text.EditAt(pos, deleteLen, content, doc.actor, doc.alloc)
	if err != nil {
		return fmt.Errorf("edit %q: %w", t.name, err)
	}
	for _, op := range ops {
		t.root.produced = append(t.root.produced, logEntry{container: t.name, op: op})
	}
	return nil
}

// String returns the visible content of this container.
func (t *TextRef) String() string {
	return t.root.doc.TextContent(t.name)
}

// Len returns the number of visible runes of this container.
func (t *TextRef) Len() int {
	return t.root.doc.Len(t.name)
}
