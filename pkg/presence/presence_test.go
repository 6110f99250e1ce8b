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

package presence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/pkg/document/time"
	"github.com/inkwell-team/inkwell/pkg/presence"
)

func TestTable(t *testing.T) {
	actorA := time.NewActorID()
	actorB := time.NewActorID()

	t.Run("apply and supersede test", func(t *testing.T) {
		table := presence.NewTable()

		accepted := table.Apply([]presence.Update{
			{Actor: actorA, Clock: 1, Data: []byte(`{"cursor":1}`)},
			{Actor: actorB, Clock: 1, Data: []byte(`{"cursor":9}`)},
		})
		assert.Len(t, accepted, 2)
		assert.Equal(t, 2, table.Len())

		// stale clock is dropped
		accepted = table.Apply([]presence.Update{
			{Actor: actorA, Clock: 1, Data: []byte(`{"cursor":2}`)},
		})
		assert.Len(t, accepted, 0)
		assert.Equal(t, []byte(`{"cursor":1}`), table.States()[actorA])

		accepted = table.Apply([]presence.Update{
			{Actor: actorA, Clock: 2, Data: []byte(`{"cursor":2}`)},
		})
		assert.Len(t, accepted, 1)
		assert.Equal(t, []byte(`{"cursor":2}`), table.States()[actorA])
	})

	t.Run("snapshot test", func(t *testing.T) {
		table := presence.NewTable()
		table.Apply([]presence.Update{
			{Actor: actorA, Clock: 5, Data: []byte(`{"cursor":1}`)},
			{Actor: actorB, Clock: 2, Data: []byte(`{"cursor":9}`)},
		})

		snapshot := table.Snapshot()
		require.Len(t, snapshot, 2)
		assert.True(t, snapshot[0].Actor.Compare(snapshot[1].Actor) < 0)
		for _, update := range snapshot {
			assert.NotNil(t, update.Data)
		}
	})

	t.Run("removal test", func(t *testing.T) {
		table := presence.NewTable()
		table.Apply([]presence.Update{{Actor: actorA, Clock: 3, Data: []byte(`{}`)}})

		updates := table.Removal([]time.ActorID{actorA, actorB})
		require.Len(t, updates, 1)
		assert.Equal(t, actorA, updates[0].Actor)
		assert.Equal(t, uint64(4), updates[0].Clock)
		assert.Nil(t, updates[0].Data)
		assert.Equal(t, 0, table.Len())
	})
}

func TestCodec(t *testing.T) {
	actorA := time.NewActorID()

	t.Run("round trip test", func(t *testing.T) {
		in := []presence.Update{
			{Actor: actorA, Clock: 7, Data: []byte(`{"name":"a"}`)},
			{Actor: actorA, Clock: 8},
		}

		encoded, err := presence.Encode(in)
		require.NoError(t, err)

		out, err := presence.Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("malformed input test", func(t *testing.T) {
		_, err := presence.Decode([]byte{0x09, 0x01})
		assert.Error(t, err)
	})
}
