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

// Package sentiment decides whether a free-text Spanish message is an
// affirmation or a negation. The rules are fixed word lists, kept on the
// classifier struct so they stay independently testable.
package sentiment

import (
	"strings"
	"unicode"
)

// NegationWindow is how many tokens before an affirmation word are inspected
// for a negation marker that suppresses the match.
const NegationWindow = 3

// Classifier holds the ordered affirmation words, the negation markers that
// suppress them, and the negative substrings.
type Classifier struct {
	affirmations []string
	negations    []string
	negatives    []string
}

// NewClassifier creates a classifier with the default Spanish word sets.
func NewClassifier() *Classifier {
	return &Classifier{
		affirmations: []string{
			"sí", "si", "ok", "gracias", "funciona", "arreglado",
			"resuelto", "perfecto", "listo",
		},
		negations: []string{
			"no", "no,", "no.", "nunca", "sin", "no se", "no me",
		},
		negatives: []string{
			"no", "sigue sin funcionar", "no funciona", "nada",
			"no puedo", "no puedo acceder", "fallando",
		},
	}
}

// IsAffirmative reports whether text contains an affirmation word as a whole
// word. The first matching affirmation (in declaration order) is checked
// against the preceding NegationWindow tokens; if any of them contains a
// negation marker the match is suppressed.
func (c *Classifier) IsAffirmative(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return false
	}

	tokens := tokenize(text)

	for _, word := range c.affirmations {
		if !containsWord(tokens, word) {
			continue
		}

		for i, token := range tokens {
			if token != normalizeAccents(word) && token != word {
				continue
			}

			start := i - NegationWindow
			if start < 0 {
				start = 0
			}
			window := strings.Join(tokens[start:i], " ")

			for _, neg := range c.negations {
				if strings.Contains(window, strings.TrimSpace(neg)) {
					return false
				}
			}
			return true
		}
	}

	return false
}

// IsNegative reports whether text contains any of the negative substrings.
// There is no negation-window logic here; the caller decides precedence.
func (c *Classifier) IsNegative(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return false
	}

	for _, pattern := range c.negatives {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}

// tokenize splits text into word tokens, treating anything that is not a
// letter or digit as a separator. Accented vowels are normalized so "sí"
// and "si" compare equal, matching the original word lists.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, len(fields))
	for i, f := range fields {
		tokens[i] = normalizeAccents(f)
	}
	return tokens
}

func containsWord(tokens []string, word string) bool {
	want := normalizeAccents(word)
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
)

func normalizeAccents(s string) string {
	return accentReplacer.Replace(s)
}
