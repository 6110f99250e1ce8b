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

package crdt

import (
	"fmt"
	"unicode/utf8"

	"github.com/inkwell-team/inkwell/pkg/document/time"
)

// ID identifies a single rune (or a delete operation) by the replica that
// produced it and a per-replica sequence. Sequences start at 1; the zero
// ID is the synthetic start-of-container origin.
type ID struct {
	Actor time.ActorID
	Seq   uint64
}

// InitialID is the synthetic origin that anchors insertions at the start
// of a container.
var InitialID = ID{}

// IsInitial returns whether this is the start-of-container ID.
func (id ID) IsInitial() bool {
	return id.Seq == 0
}

// String returns a human-readable form for logging.
func (id ID) String() string {
	return fmt.Sprintf("%s:%d", id.Actor.String(), id.Seq)
}

// OpType discriminates the operation kinds of the log.
type OpType byte

const (
	// OpInsert inserts a run of runes after an origin rune.
	OpInsert OpType = iota
	// OpDelete tombstones a contiguous ID range of one actor's runes.
	OpDelete
)

// Op is one entry of the append-only operation log. An insert consumes
// one sequence per rune of Value; the runes chain their origins so that a
// typed run stays a single subtree. A delete consumes one sequence and
// tombstones the target range [Target.Seq, SpanTo] of Target.Actor.
type Op struct {
	Type OpType
	ID   ID

	// insert fields
	Origin  ID
	Lamport uint64
	Value   string

	// delete fields
	Target ID
	SpanTo uint64
}

// EndSeq returns the last sequence this operation consumes of its actor.
func (op Op) EndSeq() uint64 {
	if op.Type == OpInsert {
		count := uint64(utf8.RuneCountInString(op.Value))
		if count == 0 {
			return op.ID.Seq
		}
		return op.ID.Seq + count - 1
	}
	return op.ID.Seq
}
