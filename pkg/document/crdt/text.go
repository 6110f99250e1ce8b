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

// Package crdt provides the conflict-free replicated text type documents
// are built on. Concurrent, independently applied operations merge
// deterministically regardless of delivery order or timing.
package crdt

import (
	"fmt"
	"unicode/utf8"

	"github.com/inkwell-team/inkwell/pkg/document/time"
)

// Text is a causal-tree sequence of runes. Every rune is a node whose
// parent is the rune to its left at insertion time; siblings are ordered
// by (lamport, actor) descending, so the document order is the pre-order
// walk of the tree. Deleted runes stay as tombstones to keep anchors for
// concurrent insertions.
type Text struct {
	root    *node
	nodes   map[ID]*node
	lamport uint64

	// cache holds visible nodes in document order. Invalidated on every
	// structural change.
	cache []*node
}

type node struct {
	id       ID
	lamport  uint64
	value    rune
	deleted  bool
	children []*node
}

// NewText creates an empty Text.
func NewText() *Text {
	return &Text{
		root:  &node{},
		nodes: make(map[ID]*node),
	}
}

// Apply integrates the given remote or local operation into this text.
// It is idempotent: runes whose IDs are already present are skipped. When
// the operation references a rune this text has not seen yet, it returns
// missing=true and integrates nothing; the caller parks the operation and
// retries once its dependencies arrive.
func (t *Text) Apply(op Op) (applied bool, missing bool) {
	switch op.Type {
	case OpInsert:
		return t.applyInsert(op)
	case OpDelete:
		return t.applyDelete(op)
	}
	return false, false
}

func (t *Text) applyInsert(op Op) (bool, bool) {
	count := uint64(utf8.RuneCountInString(op.Value))
	if count == 0 {
		return false, false
	}

	lastID := ID{Actor: op.ID.Actor, Seq: op.ID.Seq + count - 1}
	if _, ok := t.nodes[lastID]; ok {
		return false, false
	}

	parent := t.root
	if !op.Origin.IsInitial() {
		origin, ok := t.nodes[op.Origin]
		if !ok {
			return false, true
		}
		parent = origin
	}

	var offset uint64
	for _, value := range op.Value {
		id := ID{Actor: op.ID.Actor, Seq: op.ID.Seq + offset}
		if existing, ok := t.nodes[id]; ok {
			// partially replayed operation
			parent = existing
			offset++
			continue
		}

		inserted := &node{
			id:      id,
			lamport: op.Lamport + offset,
			value:   value,
		}
		t.integrate(parent, inserted)
		t.nodes[id] = inserted
		parent = inserted
		offset++
	}

	if last := op.Lamport + count - 1; t.lamport < last {
		t.lamport = last
	}
	t.cache = nil
	return true, false
}

func (t *Text) applyDelete(op Op) (bool, bool) {
	for seq := op.Target.Seq; seq <= op.SpanTo; seq++ {
		if _, ok := t.nodes[ID{Actor: op.Target.Actor, Seq: seq}]; !ok {
			return false, true
		}
	}

	for seq := op.Target.Seq; seq <= op.SpanTo; seq++ {
		target := t.nodes[ID{Actor: op.Target.Actor, Seq: seq}]
		if !target.deleted {
			target.deleted = true
		}
	}
	t.cache = nil
	return true, false
}

// integrate places the inserted node among the parent's children. Siblings
// are kept in (lamport, actor) descending order; a contiguous typed run
// forms a chain of single children, so concurrent runs never interleave
// at the rune level.
func (t *Text) integrate(parent, inserted *node) {
	idx := len(parent.children)
	for i, sibling := range parent.children {
		if sibling.precedes(inserted) {
			idx = i
			break
		}
	}

	parent.children = append(parent.children, nil)
	copy(parent.children[idx+1:], parent.children[idx:])
	parent.children[idx] = inserted
}

// precedes reports whether n orders after other, i.e. other wins the
// closer-to-origin slot.
func (n *node) precedes(other *node) bool {
	if n.lamport != other.lamport {
		return n.lamport < other.lamport
	}
	return n.id.Actor.Compare(other.id.Actor) < 0
}

// EditAt performs a local splice: it deletes deleteLen visible runes at
// pos, then inserts content there. alloc hands out blocks of operation
// sequences for the local actor. The produced operations are already
// applied to this text.
func (t *Text) EditAt(
	pos int,
	deleteLen int,
	content string,
	actor time.ActorID,
	alloc func(n uint64) uint64,
) ([]Op, error) {
	visible := t.visible()
	if pos < 0 || deleteLen < 0 || pos+deleteLen > len(visible) {
		return nil, fmt.Errorf("edit at %d..%d: out of bounds (len %d)", pos, pos+deleteLen, len(visible))
	}

	var ops []Op

	// One delete operation per run of runes with consecutive IDs.
	i := pos
	for i < pos+deleteLen {
		start := visible[i]
		end := start
		j := i + 1
		for j < pos+deleteLen &&
			visible[j].id.Actor == start.id.Actor &&
			visible[j].id.Seq == end.id.Seq+1 {
			end = visible[j]
			j++
		}

		op := Op{
			Type:   OpDelete,
			ID:     ID{Actor: actor, Seq: alloc(1)},
			Target: start.id,
			SpanTo: end.id.Seq,
		}
		if _, missing := t.Apply(op); missing {
			return nil, fmt.Errorf("delete at %d: target not found", i)
		}
		ops = append(ops, op)
		i = j
	}

	if content != "" {
		origin := InitialID
		if pos > 0 {
			origin = visible[pos-1].id
		}

		count := uint64(utf8.RuneCountInString(content))
		op := Op{
			Type:    OpInsert,
			ID:      ID{Actor: actor, Seq: alloc(count)},
			Origin:  origin,
			Lamport: t.lamport + 1,
			Value:   content,
		}
		if _, missing := t.Apply(op); missing {
			return nil, fmt.Errorf("insert at %d: origin not found", pos)
		}
		ops = append(ops, op)
	}

	return ops, nil
}

// String returns the visible runes in document order.
func (t *Text) String() string {
	visible := t.visible()
	runes := make([]rune, len(visible))
	for i, n := range visible {
		runes[i] = n.value
	}
	return string(runes)
}

// Len returns the number of visible runes.
func (t *Text) Len() int {
	return len(t.visible())
}

func (t *Text) visible() []*node {
	if t.cache != nil {
		return t.cache
	}

	out := make([]*node, 0, len(t.nodes))
	stack := make([]*node, 0, len(t.nodes))
	pushChildren := func(n *node) {
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}

	pushChildren(t.root)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !n.deleted {
			out = append(out, n)
		}
		pushChildren(n)
	}

	t.cache = out
	return out
}
