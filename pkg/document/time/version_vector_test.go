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

package time_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/pkg/document/time"
)

func TestVersionVector(t *testing.T) {
	actorA := time.NewActorID()
	actorB := time.NewActorID()

	t.Run("set and includes test", func(t *testing.T) {
		vector := time.NewVersionVector()
		assert.Equal(t, uint64(0), vector.Get(actorA))
		assert.False(t, vector.Includes(actorA, 1))

		vector.Set(actorA, 3)
		assert.True(t, vector.Includes(actorA, 3))
		assert.True(t, vector.Includes(actorA, 1))
		assert.False(t, vector.Includes(actorA, 4))
		assert.False(t, vector.Includes(actorB, 1))
	})

	t.Run("sync takes pointwise max test", func(t *testing.T) {
		vector := time.NewVersionVector()
		vector.Set(actorA, 5)
		vector.Set(actorB, 1)

		other := time.NewVersionVector()
		other.Set(actorA, 2)
		other.Set(actorB, 7)

		vector.Sync(other)
		assert.Equal(t, uint64(5), vector.Get(actorA))
		assert.Equal(t, uint64(7), vector.Get(actorB))
	})

	t.Run("encode round trip test", func(t *testing.T) {
		vector := time.NewVersionVector()
		vector.Set(actorA, 42)
		vector.Set(actorB, 7)

		encoded, err := vector.Encode()
		require.NoError(t, err)

		decoded, err := time.DecodeVersionVectorBytes(encoded)
		require.NoError(t, err)
		assert.Equal(t, vector, decoded)
	})

	t.Run("encoding is canonical test", func(t *testing.T) {
		forward := time.NewVersionVector()
		forward.Set(actorA, 1)
		forward.Set(actorB, 2)

		backward := time.NewVersionVector()
		backward.Set(actorB, 2)
		backward.Set(actorA, 1)

		encodedForward, err := forward.Encode()
		require.NoError(t, err)
		encodedBackward, err := backward.Encode()
		require.NoError(t, err)
		assert.Equal(t, encodedForward, encodedBackward)
	})

	t.Run("empty vector encodes and decodes test", func(t *testing.T) {
		encoded, err := time.NewVersionVector().Encode()
		require.NoError(t, err)

		decoded, err := time.DecodeVersionVectorBytes(encoded)
		require.NoError(t, err)
		assert.Equal(t, 0, len(decoded))
	})
}

func TestActorID(t *testing.T) {
	t.Run("hex round trip test", func(t *testing.T) {
		actor := time.NewActorID()

		parsed, err := time.ActorIDFromHex(actor.String())
		require.NoError(t, err)
		assert.Equal(t, actor, parsed)
	})

	t.Run("invalid hex test", func(t *testing.T) {
		_, err := time.ActorIDFromHex("not-hex")
		assert.Error(t, err)

		_, err = time.ActorIDFromHex("abcd")
		assert.Error(t, err)
	})

	t.Run("compare orders by bytes test", func(t *testing.T) {
		smaller, err := time.ActorIDFromHex("000000000000000000000001")
		require.NoError(t, err)
		bigger, err := time.ActorIDFromHex("000000000000000000000002")
		require.NoError(t, err)

		assert.Equal(t, -1, smaller.Compare(bigger))
		assert.Equal(t, 1, bigger.Compare(smaller))
		assert.Equal(t, 0, smaller.Compare(smaller))
	})
}
