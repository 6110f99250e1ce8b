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

package server_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-team/inkwell/server"
)

func TestConfig(t *testing.T) {
	t.Run("defaults test", func(t *testing.T) {
		conf, err := server.NewConfigFromEnv()
		require.NoError(t, err)

		assert.Equal(t, server.DefaultRPCAddr, conf.RPC.Addr)
		assert.Equal(t, server.DefaultProfilingAddr, conf.Profiling.Addr)
		assert.Equal(t, "mongo", conf.Backend.Database)
		assert.Equal(t, server.DefaultMongoConnectionURI, conf.Mongo.ConnectionURI)
		assert.Equal(t, server.DefaultMongoDatabase, conf.Mongo.Database)
		assert.Equal(t, server.DefaultMongoCollection, conf.Mongo.Collection)
		assert.Equal(t, server.DefaultLogLevel, conf.LogLevel)
		assert.Empty(t, conf.RPC.AuthSecret)
	})

	t.Run("environment overrides test", func(t *testing.T) {
		t.Setenv("INKWELL_RPC_ADDR", ":9999")
		t.Setenv("INKWELL_DB", "memory")
		t.Setenv("INKWELL_AUTH_SECRET", "s3cret")
		t.Setenv("INKWELL_LOG_LEVEL", "debug")

		conf, err := server.NewConfigFromEnv()
		require.NoError(t, err)

		assert.Equal(t, ":9999", conf.RPC.Addr)
		assert.Equal(t, "memory", conf.Backend.Database)
		assert.Equal(t, "s3cret", conf.RPC.AuthSecret)
		assert.Equal(t, "debug", conf.LogLevel)
	})

	t.Run("invalid database driver test", func(t *testing.T) {
		t.Setenv("INKWELL_DB", "cassandra")

		_, err := server.NewConfigFromEnv()
		assert.Error(t, err)
	})

	t.Run("invalid mongo timeout test", func(t *testing.T) {
		t.Setenv("INKWELL_MONGO_CONNECTION_TIMEOUT", "soon")

		_, err := server.NewConfigFromEnv()
		assert.Error(t, err)
	})
}
