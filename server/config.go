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

package server

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/inkwell-team/inkwell/internal/validation"
	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/backend/database/mongo"
	"github.com/inkwell-team/inkwell/server/profiling"
	"github.com/inkwell-team/inkwell/server/rpc"
)

// Environment variables are read with this prefix, INKWELL_RPC_ADDR and
// so on.
const envPrefix = "INKWELL"

// Defaults for local development; production deployments override them
// through the environment.
const (
	DefaultRPCAddr       = ":8119"
	DefaultProfilingAddr = ":8121"

	DefaultMongoConnectionURI     = "mongodb://localhost:27017"
	DefaultMongoConnectionTimeout = "5s"
	DefaultMongoPingTimeout       = "3s"
	DefaultMongoDatabase          = "inkwell"
	DefaultMongoCollection        = "snapshots"

	DefaultLogLevel = "info"
)

// Config is the configuration for creating a Server instance.
type Config struct {
	RPC       *rpc.Config
	Profiling *profiling.Config
	Backend   *backend.Config
	Mongo     *mongo.Config

	LogLevel string `validate:"required,oneof=debug info warn error"`
}

// NewConfig returns a Config populated with defaults only.
func NewConfig() *Config {
	return newConfig(newViper())
}

// NewConfigFromEnv builds a Config from the environment on top of the
// defaults and validates it.
func NewConfigFromEnv() (*Config, error) {
	conf := newConfig(newViper())
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate returns an error if the config is invalid.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for _, sub := range []interface{}{c.RPC, c.Profiling, c.Backend, c.Mongo} {
		if err := validation.ValidateStruct(sub); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return c.Mongo.Validate()
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("rpc_addr", DefaultRPCAddr)
	v.SetDefault("auth_secret", "")
	v.SetDefault("profiling_addr", DefaultProfilingAddr)
	v.SetDefault("enable_pprof", false)
	v.SetDefault("db", backend.DriverMongo)
	v.SetDefault("mongo_connection_uri", DefaultMongoConnectionURI)
	v.SetDefault("mongo_connection_timeout", DefaultMongoConnectionTimeout)
	v.SetDefault("mongo_ping_timeout", DefaultMongoPingTimeout)
	v.SetDefault("mongo_database", DefaultMongoDatabase)
	v.SetDefault("mongo_collection", DefaultMongoCollection)
	v.SetDefault("log_level", DefaultLogLevel)

	return v
}

func newConfig(v *viper.Viper) *Config {
	return &Config{
		RPC: &rpc.Config{
			Addr:       v.GetString("rpc_addr"),
			AuthSecret: v.GetString("auth_secret"),
		},
		Profiling: &profiling.Config{
			Addr:        v.GetString("profiling_addr"),
			EnablePprof: v.GetBool("enable_pprof"),
		},
		Backend: &backend.Config{
			Database: v.GetString("db"),
		},
		Mongo: &mongo.Config{
			ConnectionURI:     v.GetString("mongo_connection_uri"),
			ConnectionTimeout: v.GetString("mongo_connection_timeout"),
			PingTimeout:       v.GetString("mongo_ping_timeout"),
			Database:          v.GetString("mongo_database"),
			Collection:        v.GetString("mongo_collection"),
		},
		LogLevel: v.GetString("log_level"),
	}
}
