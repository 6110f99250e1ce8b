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

package document

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/inkwell-team/inkwell/pkg/binary"
	"github.com/inkwell-team/inkwell/pkg/document/crdt"
	"github.com/inkwell-team/inkwell/pkg/document/time"
)

// Update wire format:
//
//	actorCount uvarint, then actorCount raw 12-byte actor IDs
//	entryCount uvarint, then per entry:
//	  actorIdx uvarint, opType byte, seq uvarint, container string
//	  insert: lamport uvarint,
//	          origin flag byte (0 = container start,
//	                            1 = actorIdx uvarint + seq uvarint),
//	          value string
//	  delete: targetActorIdx uvarint, targetSeq uvarint, spanTo uvarint
//
// Encoding the same operation set always yields the same bytes given the
// same entry order; canonical full-state encodings order entries by
// (actor bytes, seq).

func encodeUpdate(entries []logEntry) ([]byte, error) {
	actorSet := make(map[time.ActorID]bool)
	for _, entry := range entries {
		actorSet[entry.op.ID.Actor] = true
		switch entry.op.Type {
		case crdt.OpInsert:
			if !entry.op.Origin.IsInitial() {
				actorSet[entry.op.Origin.Actor] = true
			}
		case crdt.OpDelete:
			actorSet[entry.op.Target.Actor] = true
		}
	}

	actors := make([]time.ActorID, 0, len(actorSet))
	for actor := range actorSet {
		actors = append(actors, actor)
	}
	sort.Slice(actors, func(i, j int) bool {
		return actors[i].Compare(actors[j]) < 0
	})
	actorIdx := make(map[time.ActorID]uint64, len(actors))
	for i, actor := range actors {
		actorIdx[actor] = uint64(i)
	}

	buffer := &bytes.Buffer{}
	if err := binary.WriteUvarint(buffer, uint64(len(actors))); err != nil {
		return nil, err
	}
	for _, actor := range actors {
		if err := binary.WriteFixedBytes(buffer, actor.Bytes()); err != nil {
			return nil, err
		}
	}

	if err := binary.WriteUvarint(buffer, uint64(len(entries))); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		op := entry.op
		if err := binary.WriteUvarint(buffer, actorIdx[op.ID.Actor]); err != nil {
			return nil, err
		}
		if err := buffer.WriteByte(byte(op.Type)); err != nil {
			return nil, fmt.Errorf("encode update: %w", err)
		}
		if err := binary.WriteUvarint(buffer, op.ID.Seq); err != nil {
			return nil, err
		}
		if err := binary.WriteString(buffer, entry.container); err != nil {
			return nil, err
		}

		switch op.Type {
		case crdt.OpInsert:
			if err := binary.WriteUvarint(buffer, op.Lamport); err != nil {
				return nil, err
			}
			if op.Origin.IsInitial() {
				if err := buffer.WriteByte(0); err != nil {
					return nil, fmt.Errorf("encode update: %w", err)
				}
			} else {
				if err := buffer.WriteByte(1); err != nil {
					return nil, fmt.Errorf("encode update: %w", err)
				}
				if err := binary.WriteUvarint(buffer, actorIdx[op.Origin.Actor]); err != nil {
					return nil, err
				}
				if err := binary.WriteUvarint(buffer, op.Origin.Seq); err != nil {
					return nil, err
				}
			}
			if err := binary.WriteString(buffer, op.Value); err != nil {
				return nil, err
			}
		case crdt.OpDelete:
			if err := binary.WriteUvarint(buffer, actorIdx[op.Target.Actor]); err != nil {
				return nil, err
			}
			if err := binary.WriteUvarint(buffer, op.Target.Seq); err != nil {
				return nil, err
			}
			if err := binary.WriteUvarint(buffer, op.SpanTo); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("encode update: unknown op type %d", op.Type)
		}
	}

	return buffer.Bytes(), nil
}

func decodeUpdate(data []byte) ([]logEntry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	reader := bytes.NewReader(data)

	actorCount, err := binary.ReadUvarint(reader)
	if err != nil {
		return nil, err
	}
	if actorCount > uint64(reader.Len())/time.ActorIDSize {
		return nil, fmt.Errorf("decode update: actor table larger than input")
	}
	actors := make([]time.ActorID, actorCount)
	for i := range actors {
		raw, err := binary.ReadFixedBytes(reader, time.ActorIDSize)
		if err != nil {
			return nil, err
		}
		if actors[i], err = time.ActorIDFromBytes(raw); err != nil {
			return nil, err
		}
	}

	readActor := func() (time.ActorID, error) {
		idx, err := binary.ReadUvarint(reader)
		if err != nil {
			return time.InitialActorID, err
		}
		if idx >= actorCount {
			return time.InitialActorID, fmt.Errorf("decode update: actor index %d out of range", idx)
		}
		return actors[idx], nil
	}

	entryCount, err := binary.ReadUvarint(reader)
	if err != nil {
		return nil, err
	}
	if entryCount > uint64(reader.Len()) {
		return nil, fmt.Errorf("decode update: entry count larger than input")
	}

	entries := make([]logEntry, 0, entryCount)
	for i := uint64(0); i < entryCount; i++ {
		actor, err := readActor()
		if err != nil {
			return nil, err
		}
		opType, err := reader.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("decode update: %w", err)
		}
		seq, err := binary.ReadUvarint(reader)
		if err != nil {
			return nil, err
		}
		if seq == 0 {
			return nil, fmt.Errorf("decode update: zero sequence")
		}
		container, err := binary.ReadString(reader)
		if err != nil {
			return nil, err
		}

		op := crdt.Op{
			Type: crdt.OpType(opType),
			ID:   crdt.ID{Actor: actor, Seq: seq},
		}
		switch op.Type {
		case crdt.OpInsert:
			if op.Lamport, err = binary.ReadUvarint(reader); err != nil {
				return nil, err
			}
			flag, err := reader.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("decode update: %w", err)
			}
			switch flag {
			case 0:
				op.Origin = crdt.InitialID
			case 1:
				originActor, err := readActor()
				if err != nil {
					return nil, err
				}
				originSeq, err := binary.ReadUvarint(reader)
				if err != nil {
					return nil, err
				}
				if originSeq == 0 {
					return nil, fmt.Errorf("decode update: zero origin sequence")
				}
				op.Origin = crdt.ID{Actor: originActor, Seq: originSeq}
			default:
				return nil, fmt.Errorf("decode update: invalid origin flag %d", flag)
			}
			if op.Value, err = binary.ReadString(reader); err != nil {
				return nil, err
			}
			if len(op.Value) == 0 {
				return nil, fmt.Errorf("decode update: empty insert value")
			}
		case crdt.OpDelete:
			targetActor, err := readActor()
			if err != nil {
				return nil, err
			}
			targetSeq, err := binary.ReadUvarint(reader)
			if err != nil {
				return nil, err
			}
			if op.SpanTo, err = binary.ReadUvarint(reader); err != nil {
				return nil, err
			}
			if targetSeq == 0 || op.SpanTo < targetSeq {
				return nil, fmt.Errorf("decode update: invalid delete span %d..%d", targetSeq, op.SpanTo)
			}
			op.Target = crdt.ID{Actor: targetActor, Seq: targetSeq}
		default:
			return nil, fmt.Errorf("decode update: unknown op type %d", opType)
		}

		entries = append(entries, logEntry{container: container, op: op})
	}

	if reader.Len() != 0 {
		return nil, fmt.Errorf("decode update: %d trailing bytes", reader.Len())
	}
	return entries, nil
}
