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

// Package chunker splits documents into bounded, overlapping chunks suitable
// for embedding and retrieval. Splits prefer paragraph boundaries, then
// sentence boundaries, then whitespace, before falling back to a hard cut.
package chunker

import (
	"strings"
)

const (
	// DefaultChunkSize is the maximum chunk length in bytes.
	DefaultChunkSize = 1500
	// DefaultOverlap is how many bytes consecutive chunks share.
	DefaultOverlap = 300
)

// Split breaks text into chunks of at most chunkSize bytes where consecutive
// chunks overlap by roughly overlap bytes. Splitting is deterministic:
// identical input yields identical chunk boundaries.
func Split(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}

		cut := findBreak(text[start:end])
		if cut <= 0 {
			cut = chunkSize
		}
		end = start + cut

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		// Back up so the next chunk overlaps the tail of this one; always
		// advance past the previous start to guarantee termination.
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// findBreak returns the best split offset within window: the last paragraph
// break, else the last sentence ender, else the last whitespace. A break in
// the first half of the window is ignored so chunks stay reasonably full.
func findBreak(window string) int {
	half := len(window) / 2

	if idx := strings.LastIndex(window, "\n\n"); idx > half {
		return idx + 2
	}

	if idx := findSentenceBreak(window); idx > half {
		return idx
	}

	if idx := strings.LastIndexAny(window, " \n\t"); idx > half {
		return idx + 1
	}

	return 0
}

// findSentenceBreak finds the offset just past the last sentence boundary.
func findSentenceBreak(text string) int {
	sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

	last := -1
	for _, ender := range sentenceEnders {
		if idx := strings.LastIndex(text, ender); idx >= 0 && idx+len(ender) > last {
			last = idx + len(ender)
		}
	}

	if last > 0 {
		return last
	}
	return 0
}
