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

// Package presence carries ephemeral awareness metadata (cursor position,
// user identity) between replicas. Awareness is exchanged alongside
// document updates but never persisted.
package presence

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/inkwell-team/inkwell/pkg/binary"
	"github.com/inkwell-team/inkwell/pkg/document/time"
)

// Update announces one actor's awareness state. A nil Data removes the
// actor from the table (the actor went offline). Clock resolves races:
// only updates with a higher clock than the known one are accepted.
type Update struct {
	Actor time.ActorID
	Clock uint64
	Data  []byte
}

type state struct {
	clock uint64
	data  []byte
}

// Table tracks the latest awareness state per actor for one document. It
// is not safe for concurrent use; callers serialize access.
type Table struct {
	states map[time.ActorID]state
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{states: make(map[time.ActorID]state)}
}

// Apply merges the given updates and returns the ones that were newer
// than the known state. Stale updates are dropped.
func (t *Table) Apply(updates []Update) []Update {
	var accepted []Update
	for _, update := range updates {
		known, ok := t.states[update.Actor]
		if ok && update.Clock <= known.clock {
			continue
		}

		if len(update.Data) == 0 {
			delete(t.states, update.Actor)
		} else {
			t.states[update.Actor] = state{clock: update.Clock, data: update.Data}
		}
		accepted = append(accepted, update)
	}
	return accepted
}

// Removal builds and applies the removal batch for the given actors, used
// when a session disconnects.
func (t *Table) Removal(actors []time.ActorID) []Update {
	var updates []Update
	for _, actor := range actors {
		known, ok := t.states[actor]
		if !ok {
			continue
		}
		delete(t.states, actor)
		updates = append(updates, Update{Actor: actor, Clock: known.clock + 1})
	}
	return updates
}

// Snapshot returns the full table as an update batch, ordered by actor,
// suitable for bringing a newly attached replica up to date.
func (t *Table) Snapshot() []Update {
	actors := make([]time.ActorID, 0, len(t.states))
	for actor := range t.states {
		actors = append(actors, actor)
	}
	sort.Slice(actors, func(i, j int) bool {
		return actors[i].Compare(actors[j]) < 0
	})

	updates := make([]Update, 0, len(actors))
	for _, actor := range actors {
		s := t.states[actor]
		updates = append(updates, Update{Actor: actor, Clock: s.clock, Data: s.data})
	}
	return updates
}

// States returns a copy of the current awareness data per actor.
func (t *Table) States() map[time.ActorID][]byte {
	out := make(map[time.ActorID][]byte, len(t.states))
	for actor, s := range t.states {
		out[actor] = s.data
	}
	return out
}

// Len returns the number of online actors.
func (t *Table) Len() int {
	return len(t.states)
}

// Encode writes the given updates as a binary awareness batch.
func Encode(updates []Update) ([]byte, error) {
	buffer := &bytes.Buffer{}
	if err := binary.WriteUvarint(buffer, uint64(len(updates))); err != nil {
		return nil, err
	}
	for _, update := range updates {
		if err := binary.WriteFixedBytes(buffer, update.Actor.Bytes()); err != nil {
			return nil, err
		}
		if err := binary.WriteUvarint(buffer, update.Clock); err != nil {
			return nil, err
		}
		if err := binary.WriteBytes(buffer, update.Data); err != nil {
			return nil, err
		}
	}
	return buffer.Bytes(), nil
}

// Decode reads a binary awareness batch.
func Decode(data []byte) ([]Update, error) {
	reader := bytes.NewReader(data)
	count, err := binary.ReadUvarint(reader)
	if err != nil {
		return nil, fmt.Errorf("decode presence: %w", err)
	}
	if count > uint64(reader.Len()) {
		return nil, fmt.Errorf("decode presence: count larger than input")
	}

	updates := make([]Update, 0, count)
	for i := uint64(0); i < count; i++ {
		raw, err := binary.ReadFixedBytes(reader, time.ActorIDSize)
		if err != nil {
			return nil, fmt.Errorf("decode presence: %w", err)
		}
		actor, err := time.ActorIDFromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decode presence: %w", err)
		}
		clock, err := binary.ReadUvarint(reader)
		if err != nil {
			return nil, fmt.Errorf("decode presence: %w", err)
		}
		payload, err := binary.ReadBytes(reader)
		if err != nil {
			return nil, fmt.Errorf("decode presence: %w", err)
		}
		if len(payload) == 0 {
			payload = nil
		}
		updates = append(updates, Update{Actor: actor, Clock: clock, Data: payload})
	}

	if reader.Len() != 0 {
		return nil, fmt.Errorf("decode presence: %d trailing bytes", reader.Len())
	}
	return updates, nil
}
