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

package binary_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/pkg/binary"
)

func TestUvarint(t *testing.T) {
	t.Run("round trip test", func(t *testing.T) {
		values := []uint64{0, 1, 0x7f, 0x80, 300, 1<<32 - 1, 1<<63 - 1, 1<<64 - 1}

		for _, value := range values {
			buf := &bytes.Buffer{}
			require.NoError(t, binary.WriteUvarint(buf, value))

			decoded, err := binary.ReadUvarint(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, value, decoded)
		}
	})

	t.Run("truncated input test", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.NoError(t, binary.WriteUvarint(buf, 1<<40))

		_, err := binary.ReadUvarint(bytes.NewReader(buf.Bytes()[:2]))
		assert.Error(t, err)
	})

	t.Run("overlong input test", func(t *testing.T) {
		data := bytes.Repeat([]byte{0xff}, 11)
		_, err := binary.ReadUvarint(bytes.NewReader(data))
		assert.Error(t, err)
	})
}

func TestBytes(t *testing.T) {
	t.Run("round trip test", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.NoError(t, binary.WriteBytes(buf, []byte("hello")))
		require.NoError(t, binary.WriteString(buf, "world"))
		require.NoError(t, binary.WriteBytes(buf, nil))

		reader := bytes.NewReader(buf.Bytes())
		data, err := binary.ReadBytes(reader)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)

		str, err := binary.ReadString(reader)
		require.NoError(t, err)
		assert.Equal(t, "world", str)

		data, err = binary.ReadBytes(reader)
		require.NoError(t, err)
		assert.Len(t, data, 0)
	})

	t.Run("corrupted length prefix test", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.NoError(t, binary.WriteUvarint(buf, 1<<30))
		buf.WriteString("short")

		_, err := binary.ReadBytes(bytes.NewReader(buf.Bytes()))
		assert.Error(t, err)
	})
}

func TestUint32(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, binary.WriteUint32(buf, 0xdeadbeef))

	value, err := binary.ReadUint32(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), value)

	_, err = binary.ReadUint32(bytes.NewReader(buf.Bytes()[:3]))
	assert.Error(t, err)
}
