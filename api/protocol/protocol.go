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

// Package protocol defines the binary message protocol between the sync
// server and its clients. One WebSocket connection carries one document;
// every frame is a single message.
package protocol

import (
	"bytes"
	"fmt"

	"github.com/inkwell-team/inkwell/pkg/binary"
)

// MessageType discriminates the top-level message kinds.
type MessageType byte

const (
	// TypeSync carries document synchronization payloads.
	TypeSync MessageType = 0
	// TypeAwareness carries ephemeral presence payloads.
	TypeAwareness MessageType = 1
)

// SyncType discriminates the sync sub-kinds.
type SyncType byte

const (
	// SyncStep1 carries the sender's version vector; the receiver answers
	// with a SyncStep2 holding the operations the sender is missing.
	SyncStep1 SyncType = 0
	// SyncStep2 carries the update answering a SyncStep1.
	SyncStep2 SyncType = 1
	// SyncUpdate carries an incremental update broadcast.
	SyncUpdate SyncType = 2
)

// Abnormal-closure codes. The reason string accompanying the code is
// machine-readable.
const (
	// CloseInvalidKey rejects a connection whose document key cannot map
	// onto the store's primary-key type.
	CloseInvalidKey = 4400
	// CloseUnauthorized rejects a connection with a missing or invalid
	// auth token.
	CloseUnauthorized = 4401
)

// Close reasons matching the codes above.
const (
	ReasonInvalidKey   = "invalid-document-key"
	ReasonUnauthorized = "unauthorized"
)

// Message is one decoded protocol frame. Payload holds a version vector
// (SyncStep1), an update (SyncStep2, SyncUpdate) or an awareness batch
// (TypeAwareness).
type Message struct {
	Type    MessageType
	Sync    SyncType
	Payload []byte
}

// NewSyncMessage builds a sync message of the given sub-kind.
func NewSyncMessage(sync SyncType, payload []byte) Message {
	return Message{Type: TypeSync, Sync: sync, Payload: payload}
}

// NewAwarenessMessage builds an awareness message.
func NewAwarenessMessage(payload []byte) Message {
	return Message{Type: TypeAwareness, Payload: payload}
}

// Encode returns the wire form of this message.
func (m Message) Encode() ([]byte, error) {
	buffer := &bytes.Buffer{}
	if err := buffer.WriteByte(byte(m.Type)); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	switch m.Type {
	case TypeSync:
		if m.Sync > SyncUpdate {
			return nil, fmt.Errorf("encode message: unknown sync type %d", m.Sync)
		}
		if err := buffer.WriteByte(byte(m.Sync)); err != nil {
			return nil, fmt.Errorf("encode message: %w", err)
		}
	case TypeAwareness:
	default:
		return nil, fmt.Errorf("encode message: unknown message type %d", m.Type)
	}

	if err := binary.WriteBytes(buffer, m.Payload); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Decode parses one frame. Malformed frames return an error; callers log
// and drop them without tearing the connection down.
func Decode(data []byte) (Message, error) {
	reader := bytes.NewReader(data)

	kind, err := reader.ReadByte()
	if err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}

	message := Message{Type: MessageType(kind)}
	switch message.Type {
	case TypeSync:
		sub, err := reader.ReadByte()
		if err != nil {
			return Message{}, fmt.Errorf("decode message: %w", err)
		}
		if SyncType(sub) > SyncUpdate {
			return Message{}, fmt.Errorf("decode message: unknown sync type %d", sub)
		}
		message.Sync = SyncType(sub)
	case TypeAwareness:
	default:
		return Message{}, fmt.Errorf("decode message: unknown message type %d", kind)
	}

	if message.Payload, err = binary.ReadBytes(reader); err != nil {
		return Message{}, err
	}
	if reader.Len() != 0 {
		return Message{}, fmt.Errorf("decode message: %d trailing bytes", reader.Len())
	}
	return message, nil
}
