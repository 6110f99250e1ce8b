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

package client

import (
	"github.com/inkwell-team/inkwell/server/logging"
)

// Options configures how we set up the client.
type Options struct {
	token  string
	logger logging.Logger
}

// Option configures Options.
type Option func(*Options)

func newOptions(opts ...Option) *Options {
	options := &Options{
		logger: logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithToken configures the auth token sent when attaching.
func WithToken(token string) Option {
	return func(o *Options) { o.token = token }
}

// WithLogger configures the logger of the client.
func WithLogger(logger logging.Logger) Option {
	return func(o *Options) { o.logger = logger }
}
