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

// Package binary provides functions to read and write binary data in the
// wire format shared by updates, state vectors and protocol messages.
// It avoids reflection and uses unsigned varints for better density than
// encoding/binary's fixed-width encodings.
package binary

import (
	"bytes"
	"fmt"
)

// maxVarintLen is the maximum number of bytes of a varint-encoded uint64.
const maxVarintLen = 10

// maxBytesLen caps length-prefixed fields so that a corrupted prefix cannot
// trigger a huge allocation.
const maxBytesLen = 64 << 20

// WriteUvarint writes a uint64 value to the buffer as an unsigned LEB128
// varint.
func WriteUvarint(buffer *bytes.Buffer, value uint64) error {
	for value >= 0x80 {
		if err := buffer.WriteByte(byte(value) | 0x80); err != nil {
			return fmt.Errorf("write uvarint: %w", err)
		}
		value >>= 7
	}
	if err := buffer.WriteByte(byte(value)); err != nil {
		return fmt.Errorf("write uvarint: %w", err)
	}
	return nil
}

// ReadUvarint reads an unsigned LEB128 varint from the reader.
func ReadUvarint(reader *bytes.Reader) (uint64, error) {
	var value uint64
	var shift uint
	for i := 0; i < maxVarintLen; i++ {
		b, err := reader.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("read uvarint: %w", err)
		}
		if b < 0x80 {
			if i == maxVarintLen-1 && b > 1 {
				return 0, fmt.Errorf("read uvarint: overflow")
			}
			return value | uint64(b)<<shift, nil
		}
		value |= uint64(b&0x7f) << shift
		shift += 7
	}
	return 0, fmt.Errorf("read uvarint: overflow")
}

// WriteBytes writes a length-prefixed byte slice to the buffer.
func WriteBytes(buffer *bytes.Buffer, data []byte) error {
	if err := WriteUvarint(buffer, uint64(len(data))); err != nil {
		return err
	}
	if _, err := buffer.Write(data); err != nil {
		return fmt.Errorf("write bytes: %w", err)
	}
	return nil
}

// ReadBytes reads a length-prefixed byte slice from the reader.
func ReadBytes(reader *bytes.Reader) ([]byte, error) {
	length, err := ReadUvarint(reader)
	if err != nil {
		return nil, err
	}
	if length > maxBytesLen || length > uint64(reader.Len()) {
		return nil, fmt.Errorf("read bytes: length %d exceeds remaining input", length)
	}

	data := make([]byte, length)
	if length == 0 {
		return data, nil
	}
	if _, err := reader.Read(data); err != nil {
		return nil, fmt.Errorf("read bytes: %w", err)
	}
	return data, nil
}

// WriteString writes a length-prefixed UTF-8 string to the buffer.
func WriteString(buffer *bytes.Buffer, value string) error {
	return WriteBytes(buffer, []byte(value))
}

// ReadString reads a length-prefixed UTF-8 string from the reader.
func ReadString(reader *bytes.Reader) (string, error) {
	data, err := ReadBytes(reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFixedBytes writes the given bytes without a length prefix. It is used
// for fields whose size is fixed by the format, such as actor IDs.
func WriteFixedBytes(buffer *bytes.Buffer, data []byte) error {
	if _, err := buffer.Write(data); err != nil {
		return fmt.Errorf("write fixed bytes: %w", err)
	}
	return nil
}

// ReadFixedBytes reads exactly size bytes from the reader.
func ReadFixedBytes(reader *bytes.Reader, size int) ([]byte, error) {
	data := make([]byte, size)
	if n, err := reader.Read(data); err != nil || n != size {
		return nil, fmt.Errorf("read fixed bytes: truncated input")
	}
	return data, nil
}

// WriteUint32 writes a uint32 value to the buffer in big-endian format.
func WriteUint32(buffer *bytes.Buffer, value uint32) error {
	data := []byte{
		byte(value >> 24),
		byte(value >> 16),
		byte(value >> 8),
		byte(value),
	}
	if _, err := buffer.Write(data); err != nil {
		return fmt.Errorf("write uint32: %w", err)
	}
	return nil
}

// ReadUint32 reads a uint32 value from the buffer in big-endian format.
func ReadUint32(reader *bytes.Reader) (uint32, error) {
	data, err := ReadFixedBytes(reader, 4)
	if err != nil {
		return 0, fmt.Errorf("read uint32: %w", err)
	}
	return uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]), nil
}
