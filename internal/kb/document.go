// Copyright 2025 Soporte AVI Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kb turns heterogeneous knowledge sources (per-client configuration
// records and general troubleshooting guides) into normalized text documents
// and builds the per-client searchable indices the retrieval engine depends on.
package kb

// Document origin values.
const (
	SourceClient  = "client"
	SourceGeneral = "general"
)

// Document is a normalized text rendering of one knowledge source plus its
// provenance metadata.
type Document struct {
	Content  string
	Metadata map[string]string
}

// NewClientDocument builds a Document for a client configuration record.
func NewClientDocument(client, content string) Document {
	return Document{
		Content: content,
		Metadata: map[string]string{
			"source": SourceClient,
			"client": client,
			"type":   "configuration",
		},
	}
}

// NewGuideDocument builds a Document for a general troubleshooting guide.
func NewGuideDocument(category, file, content string) Document {
	return Document{
		Content: content,
		Metadata: map[string]string{
			"source":   SourceGeneral,
			"category": category,
			"file":     file,
		},
	}
}
