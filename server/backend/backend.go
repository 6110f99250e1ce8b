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

// Package backend bundles the dependencies that the session layer needs:
// the snapshot database and the metrics sink.
package backend

import (
	"fmt"

	"github.com/inkwell-team/inkwell/server/backend/database"
	"github.com/inkwell-team/inkwell/server/backend/database/memory"
	"github.com/inkwell-team/inkwell/server/backend/database/mongo"
	"github.com/inkwell-team/inkwell/server/logging"
	"github.com/inkwell-team/inkwell/server/profiling/prometheus"
)

// Database driver names accepted by Config.Database.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config is the configuration for creating a Backend instance.
type Config struct {
	// Database selects the snapshot store driver, "mongo" or "memory".
	Database string `validate:"required,oneof=mongo memory"`
}

// Backend manages Inkwell's remaining resources. In addition to the
// snapshot database, it keeps the metrics collectors shared by the
// session and sync layers.
type Backend struct {
	Config  *Config
	DB      database.Database
	Metrics *prometheus.Metrics
}

// New creates a new instance of Backend.
func New(
	conf *Config,
	mongoConf *mongo.Config,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	var db database.Database
	var err error

	switch conf.Database {
	case DriverMongo:
		db, err = mongo.Dial(mongoConf)
		if err != nil {
			return nil, err
		}
	case DriverMemory:
		db, err = memory.New()
		if err != nil {
			return nil, err
		}
		logging.DefaultLogger().Warn(
			"using in-memory database; snapshots are lost on restart",
		)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", conf.Database)
	}

	return &Backend{
		Config:  conf,
		DB:      db,
		Metrics: metrics,
	}, nil
}

// Shutdown closes all resources of this backend.
func (b *Backend) Shutdown() error {
	return b.DB.Close()
}
