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

// Package server assembles the sync server: the WebSocket transport, the
// document registry, the snapshot backend and the profiling endpoint.
package server

import (
	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/documents"
	"github.com/inkwell-team/inkwell/server/logging"
	"github.com/inkwell-team/inkwell/server/profiling"
	"github.com/inkwell-team/inkwell/server/profiling/prometheus"
	"github.com/inkwell-team/inkwell/server/rpc"
)

// Inkwell is a server of Inkwell. It receives document updates from
// clients over WebSocket, merges them, broadcasts them to the other
// clients of the same document and persists merged snapshots.
type Inkwell struct {
	conf *Config

	backend         *backend.Backend
	registry        *documents.Registry
	rpcServer       *rpc.Server
	profilingServer *profiling.Server
}

// New creates a new instance of Inkwell.
func New(conf *Config) (*Inkwell, error) {
	if err := logging.SetLogLevel(conf.LogLevel); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	be, err := backend.New(conf.Backend, conf.Mongo, metrics)
	if err != nil {
		return nil, err
	}

	registry := documents.NewRegistry(be)

	return &Inkwell{
		conf:            conf,
		backend:         be,
		registry:        registry,
		rpcServer:       rpc.NewServer(conf.RPC, be, registry),
		profilingServer: profiling.NewServer(conf.Profiling, metrics),
	}, nil
}

// Start starts the server by opening the RPC and profiling ports.
func (r *Inkwell) Start() error {
	if err := r.profilingServer.Start(); err != nil {
		return err
	}
	return r.rpcServer.Start()
}

// Shutdown shuts the server down in two phases: stop accepting work,
// then flush every open document before closing the database.
func (r *Inkwell) Shutdown(graceful bool) error {
	logging.DefaultLogger().Info("shutdown: closing listeners")
	r.rpcServer.Shutdown(graceful)
	r.profilingServer.Shutdown(graceful)

	logging.DefaultLogger().Info("shutdown: flushing open documents")
	r.registry.Close()

	logging.DefaultLogger().Info("shutdown: closing backend")
	return r.backend.Shutdown()
}

// Registry exposes the document registry, used by tests.
func (r *Inkwell) Registry() *documents.Registry {
	return r.registry
}

// RPCServer exposes the RPC server, used by in-process tests.
func (r *Inkwell) RPCServer() *rpc.Server {
	return r.rpcServer
}
