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

// Package time provides replica identity and logical time for documents.
package time

import (
	"bytes"
	"encoding/hex"
	"errors"

	"github.com/rs/xid"
)

// ActorIDSize is the size of an ActorID in bytes.
const ActorIDSize = 12

var (
	// ErrInvalidHexString is returned when the given value is not a valid
	// hex-encoded ActorID.
	ErrInvalidHexString = errors.New("invalid hex string")

	// ErrInvalidActorID is returned when the given bytes cannot form an
	// ActorID.
	ErrInvalidActorID = errors.New("invalid actor id")
)

// ActorID is the unique identity of a replica. Operations produced by the
// same replica carry the same ActorID.
type ActorID [ActorIDSize]byte

// InitialActorID is the zero actor used for documents owned by the server
// itself, such as scratch documents built while merging snapshots.
var InitialActorID = ActorID{}

// NewActorID creates a fresh globally unique ActorID.
func NewActorID() ActorID {
	return ActorID(xid.New())
}

// ActorIDFromHex creates an ActorID from the given hex-encoded string.
func ActorIDFromHex(str string) (ActorID, error) {
	decoded, err := hex.DecodeString(str)
	if err != nil {
		return InitialActorID, ErrInvalidHexString
	}
	return ActorIDFromBytes(decoded)
}

// ActorIDFromBytes creates an ActorID from the given bytes.
func ActorIDFromBytes(data []byte) (ActorID, error) {
	if len(data) != ActorIDSize {
		return InitialActorID, ErrInvalidActorID
	}

	var id ActorID
	copy(id[:], data)
	return id, nil
}

// String returns the hex encoding of this ActorID.
func (id ActorID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw bytes of this ActorID.
func (id ActorID) Bytes() []byte {
	return id[:]
}

// Compare returns an integer comparing two ActorIDs lexicographically.
func (id ActorID) Compare(other ActorID) int {
	return bytes.Compare(id[:], other[:])
}
