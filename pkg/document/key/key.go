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

// Package key provides the document identifier. Keys double as the
// persistence primary key, so they are constrained to values every
// backing store can represent natively.
package key

import (
	"errors"
	"fmt"
)

// Size is the length of a document key in characters.
const Size = 24

// ErrInvalidKey is returned when the given string cannot be a document
// key. Connections presenting such keys are rejected before any store
// access.
var ErrInvalidKey = errors.New("invalid document key")

// Key is the opaque identifier of a document: a 24-character lowercase
// hex string, convertible to the store's native primary-key type.
type Key string

// FromString validates the given string and returns it as a Key.
func FromString(str string) (Key, error) {
	if len(str) != Size {
		return "", fmt.Errorf("%q: %w", str, ErrInvalidKey)
	}
	for _, c := range str {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("%q: %w", str, ErrInvalidKey)
		}
	}
	return Key(str), nil
}

// String returns the string form of this key.
func (k Key) String() string {
	return string(k)
}
