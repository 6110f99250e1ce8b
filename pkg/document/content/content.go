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

// Package content recovers a best-effort plain-text rendition of a
// document by walking its named shared containers. It is diagnostic only:
// the output is used for logging and empty-state checks, never for merge
// logic or as a persisted snapshot.
package content

import (
	"strings"

	"github.com/inkwell-team/inkwell/pkg/document"
)

// preferredContainers are conventional primary-content names, tried in
// order before falling back to concatenating everything.
var preferredContainers = []string{"content", "default", "prosemirror", "quill"}

// Extract returns the plain-text content of the document. It tries the
// conventional primary container names first and falls back to the
// concatenation of every text-bearing container in name order. A document
// without any container yields "". It never fails.
func Extract(doc *document.Document) string {
	if doc == nil {
		return ""
	}

	for _, name := range preferredContainers {
		if text := doc.TextContent(name); text != "" {
			return text
		}
	}

	var sb strings.Builder
	for _, name := range doc.ContainerNames() {
		sb.WriteString(doc.TextContent(name))
	}
	return sb.String()
}

// IsEmpty reports whether the document has no visible text in any
// container.
func IsEmpty(doc *document.Document) bool {
	return Extract(doc) == ""
}
