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

package mongo

import (
	"fmt"
	"time"
)

// Config is the configuration for the MongoDB connection.
type Config struct {
	ConnectionTimeout string `validate:"required"`
	ConnectionURI     string `validate:"required"`
	PingTimeout       string `validate:"required"`
	Database          string `validate:"required"`
	Collection        string `validate:"required"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.ConnectionTimeout); err != nil {
		return fmt.Errorf(
			"invalid connection timeout %q: %w",
			c.ConnectionTimeout,
			err,
		)
	}
	if _, err := time.ParseDuration(c.PingTimeout); err != nil {
		return fmt.Errorf("invalid ping timeout %q: %w", c.PingTimeout, err)
	}
	return nil
}

// ParseConnectionTimeout returns the connection timeout duration.
func (c *Config) ParseConnectionTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.ConnectionTimeout)
	if err != nil {
		panic(err)
	}
	return timeout
}

// ParsePingTimeout returns the ping timeout duration.
func (c *Config) ParsePingTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.PingTimeout)
	if err != nil {
		panic(err)
	}
	return timeout
}
