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

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned when a connection token is missing or does
// not verify against the configured secret.
var ErrUnauthorized = errors.New("unauthorized")

// verifyToken checks the connection token once, at attach time. With no
// secret configured every connection is accepted.
func verifyToken(secret, token string) error {
	if secret == "" {
		return nil
	}
	if token == "" {
		return ErrUnauthorized
	}

	if _, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"})); err != nil {
		return fmt.Errorf("%w: %s", ErrUnauthorized, err)
	}
	return nil
}
