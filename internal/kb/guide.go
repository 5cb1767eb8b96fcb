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

package kb

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Guide is a general troubleshooting guide file.
type Guide struct {
	Category    string                  `json:"categoria"`
	Title       string                  `json:"titulo"`
	LastUpdated string                  `json:"ultima_actualizacion"`
	Description string                  `json:"descripcion"`
	Diagnosis   []GuideStep             `json:"diagnostico_rapido"`
	Problems    map[string]GuideProblem `json:"problemas_comunes"`
	Escalation  string                  `json:"escalamiento"`
}

// GuideStep is one entry in a guide's quick-diagnosis sequence.
type GuideStep struct {
	Number      int    `json:"paso"`
	Title       string `json:"titulo"`
	Description string `json:"descripcion"`
}

// GuideProblem maps a named common problem to its solution list.
type GuideProblem struct {
	Symptom  string   `json:"sintoma"`
	Solution []string `json:"solucion"`
}

// ParseGuide decodes a guide file. Category defaults to "general" and the
// title defaults to the uppercased category, matching the source layout.
func ParseGuide(data []byte) (*Guide, error) {
	var guide Guide
	if err := json.Unmarshal(data, &guide); err != nil {
		return nil, fmt.Errorf("failed to parse guide: %w", err)
	}

	if guide.Category == "" {
		guide.Category = "general"
	}
	if guide.Title == "" {
		guide.Title = strings.ToUpper(guide.Category)
	}
	return &guide, nil
}

// Render produces the guide's fixed text layout: title, last-updated stamp,
// description, numbered quick diagnosis, common problems with solutions, and
// an optional escalation note. Problems render in sorted name order so the
// output is deterministic.
func (g *Guide) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "GUÍA DE SOLUCIÓN - %s\n", g.Title)
	lastUpdated := g.LastUpdated
	if lastUpdated == "" {
		lastUpdated = "N/A"
	}
	fmt.Fprintf(&b, "Última actualización: %s\n\n", lastUpdated)

	if g.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", g.Description)
	}

	if len(g.Diagnosis) > 0 {
		b.WriteString("PASOS DE DIAGNÓSTICO RÁPIDO:\n\n")
		for _, step := range g.Diagnosis {
			fmt.Fprintf(&b, "%d. **%s**\n", step.Number, step.Title)
			fmt.Fprintf(&b, "   %s\n\n", step.Description)
		}
	}

	if len(g.Problems) > 0 {
		b.WriteString("\nPROBLEMAS COMUNES Y SOLUCIONES:\n\n")

		names := make([]string, 0, len(g.Problems))
		for name := range g.Problems {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			problem := g.Problems[name]
			symptom := problem.Symptom
			if symptom == "" {
				symptom = name
			}
			fmt.Fprintf(&b, "• **%s**\n", symptom)
			b.WriteString("  Solución:\n")
			for _, sol := range problem.Solution {
				fmt.Fprintf(&b, "  - %s\n", sol)
			}
			b.WriteString("\n")
		}
	}

	if g.Escalation != "" {
		fmt.Fprintf(&b, "\nESCALAMIENTO:\n%s\n", g.Escalation)
	}

	return b.String()
}
