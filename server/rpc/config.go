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

package rpc

// Config is the configuration for the RPC server.
type Config struct {
	// Addr is the address the WebSocket listener binds to.
	Addr string `validate:"required"`

	// AuthSecret is the HMAC secret used to verify connection tokens.
	// Empty disables authentication; local development runs without it.
	AuthSecret string
}
