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

// Package troubleshoot holds the fixed diagnostic decision tree: ordered step
// sequences per problem category, prompt rendering enriched with client facts,
// and classification of a user's reply into success/failure/unclear.
package troubleshoot

import (
	"fmt"
	"strings"

	"github.com/your-org/soporte-avi/internal/clientfacts"
)

// StepPrompt is the rendered view of one step: the prompt to show the user,
// plus the transition data the controller needs.
type StepPrompt struct {
	Prompt    string
	OnFailure string
	Ordinal   int
}

// Outcome classifies a reply during troubleshooting.
type Outcome int

const (
	// OutcomeUnclear means the reply matched neither phrase set.
	OutcomeUnclear Outcome = iota
	// OutcomeSuccess means the user reported the step worked.
	OutcomeSuccess
	// OutcomeFailure means the user reported the step did not help.
	OutcomeFailure
)

// Interpreter renders steps and classifies replies against the fixed phrase sets.
type Interpreter struct {
	steps          map[Category][]Step
	facts          *clientfacts.Store
	successPhrases []string
	failurePhrases []string
}

// NewInterpreter creates an interpreter over the default step tables.
// facts may be nil; prompts are then returned without fact blocks.
func NewInterpreter(facts *clientfacts.Store) *Interpreter {
	return &Interpreter{
		steps: defaultSteps,
		facts: facts,
		successPhrases: []string{
			"funcionó", "funciona", "ya conectó", "conectó", "ya imprime",
			"resuelto", "listo", "ya está", "ya funciona",
		},
		failurePhrases: []string{
			"no conecta", "sigue sin", "no funciona", "no imprime",
			"sigue igual", "no tengo", "no está",
		},
	}
}

// GetStep returns the rendered step for (category, ordinal), or false when the
// category is unknown or the ordinal is out of range. When the step asks for
// client facts and the store has a record for client, a facts block is
// appended; missing facts are not an error.
func (in *Interpreter) GetStep(category Category, ordinal int, client string) (StepPrompt, bool) {
	steps, ok := in.steps[category]
	if !ok {
		return StepPrompt{}, false
	}
	if ordinal < 1 || ordinal > len(steps) {
		return StepPrompt{}, false
	}

	step := steps[ordinal-1]
	prompt := step.Prompt

	if step.NeedsClientFacts && in.facts != nil && client != "" {
		if facts, ok := in.facts.Get(client); ok {
			prompt += renderFactsBlock(category, facts)
		}
	}

	return StepPrompt{
		Prompt:    prompt,
		OnFailure: step.OnFailure,
		Ordinal:   step.Ordinal,
	}, true
}

// StepCount returns the number of steps for a category, or 0 if unknown.
func (in *Interpreter) StepCount(category Category) int {
	return len(in.steps[category])
}

// ClassifyReply matches a reply against the success and failure phrase sets.
// Success wins when both match, mirroring the order the phrases are checked in.
func (in *Interpreter) ClassifyReply(message string) Outcome {
	message = strings.ToLower(message)

	for _, phrase := range in.successPhrases {
		if strings.Contains(message, phrase) {
			return OutcomeSuccess
		}
	}
	for _, phrase := range in.failurePhrases {
		if strings.Contains(message, phrase) {
			return OutcomeFailure
		}
	}
	return OutcomeUnclear
}

// renderFactsBlock formats the facts relevant to the category. Unknown
// categories and missing fact groups render nothing.
func renderFactsBlock(category Category, facts *clientfacts.Facts) string {
	var b strings.Builder

	switch category {
	case CategoryPrinter:
		if len(facts.Printers) == 0 {
			return ""
		}
		b.WriteString("\n\n📌 **Tu impresora:**")
		for _, p := range facts.Printers {
			fmt.Fprintf(&b, "\n- %s: `%s`", p.Name, p.IP)
		}

	case CategoryVPN:
		if facts.VPN == nil {
			return ""
		}
		b.WriteString("\n\n📌 **Tu configuración VPN:**")
		fmt.Fprintf(&b, "\n- Servidor: `%s`", facts.VPN.Server)
		fmt.Fprintf(&b, "\n- Puerto: `%s`", facts.VPN.Port)

	case CategoryWiFi:
		if facts.WiFi == nil {
			return ""
		}
		b.WriteString("\n\n📌 **Tu red WiFi:**")
		fmt.Fprintf(&b, "\n- SSID: `%s`", facts.WiFi.SSID)
		fmt.Fprintf(&b, "\n- Contraseña: `%s`", facts.WiFi.Password)
	}

	return b.String()
}
