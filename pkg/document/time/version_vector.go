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

package time

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/inkwell-team/inkwell/pkg/binary"
)

// VersionVector summarizes, per actor, the highest contiguous operation
// sequence a replica has integrated. It is exchanged during the sync
// handshake to compute the minimal delta a peer is missing.
type VersionVector map[ActorID]uint64

// NewVersionVector creates an empty VersionVector.
func NewVersionVector() VersionVector {
	return make(VersionVector)
}

// Get returns the highest sequence seen for the given actor.
func (v VersionVector) Get(id ActorID) uint64 {
	return v[id]
}

// Set sets the given actor's sequence.
func (v VersionVector) Set(id ActorID, seq uint64) {
	v[id] = seq
}

// Includes returns whether the operation (id, seq) is already covered.
func (v VersionVector) Includes(id ActorID, seq uint64) bool {
	return seq <= v[id]
}

// Sync merges the other vector into this one by taking the pointwise
// maximum.
func (v VersionVector) Sync(other VersionVector) {
	for id, seq := range other {
		if v[id] < seq {
			v[id] = seq
		}
	}
}

// Copy returns a deep copy of this vector.
func (v VersionVector) Copy() VersionVector {
	copied := make(VersionVector, len(v))
	for id, seq := range v {
		copied[id] = seq
	}
	return copied
}

// Marshal returns a deterministic string representation for logging.
func (v VersionVector) Marshal() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, id := range v.sortedActors() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s:%d", id.String(), v[id]))
	}
	sb.WriteString("}")
	return sb.String()
}

// EncodeTo writes this vector to the buffer in its canonical binary form,
// entries sorted by actor bytes.
func (v VersionVector) EncodeTo(buffer *bytes.Buffer) error {
	if err := binary.WriteUvarint(buffer, uint64(len(v))); err != nil {
		return err
	}
	for _, id := range v.sortedActors() {
		if err := binary.WriteFixedBytes(buffer, id.Bytes()); err != nil {
			return err
		}
		if err := binary.WriteUvarint(buffer, v[id]); err != nil {
			return err
		}
	}
	return nil
}

// Encode returns the canonical binary form of this vector.
func (v VersionVector) Encode() ([]byte, error) {
	buffer := &bytes.Buffer{}
	if err := v.EncodeTo(buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// DecodeVersionVector reads a vector from the reader.
func DecodeVersionVector(reader *bytes.Reader) (VersionVector, error) {
	count, err := binary.ReadUvarint(reader)
	if err != nil {
		return nil, fmt.Errorf("decode version vector: %w", err)
	}

	vector := NewVersionVector()
	for i := uint64(0); i < count; i++ {
		raw, err := binary.ReadFixedBytes(reader, ActorIDSize)
		if err != nil {
			return nil, fmt.Errorf("decode version vector: %w", err)
		}
		id, err := ActorIDFromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decode version vector: %w", err)
		}
		seq, err := binary.ReadUvarint(reader)
		if err != nil {
			return nil, fmt.Errorf("decode version vector: %w", err)
		}
		vector[id] = seq
	}
	return vector, nil
}

// DecodeVersionVectorBytes reads a vector from the given bytes.
func DecodeVersionVectorBytes(data []byte) (VersionVector, error) {
	return DecodeVersionVector(bytes.NewReader(data))
}

func (v VersionVector) sortedActors() []ActorID {
	actors := make([]ActorID, 0, len(v))
	for id := range v {
		actors = append(actors, id)
	}
	sort.Slice(actors, func(i, j int) bool {
		return actors[i].Compare(actors[j]) < 0
	})
	return actors
}
