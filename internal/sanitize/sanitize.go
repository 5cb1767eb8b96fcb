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

// Package sanitize normalizes generated answer text (encoding artifacts,
// template separators) and injects concrete client facts when an answer
// mentions a topic but omits the specifics on file.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/your-org/soporte-avi/internal/clientfacts"
)

// replacements maps mis-encoded sequences that leak from templated source
// documents to their intended characters.
var replacements = [][2]string{
	{"\x00", "0"},
	{"ï¬‚", "fl"},
	{"oï¬", "of"},
	{"ï¬", "fi"},
	{"Ã¡", "á"},
	{"Ã©", "é"},
	{"Ã­", "í"},
	{"Ã³", "ó"},
	{"Ãº", "ú"},
	{"Ã±", "ñ"},
}

var (
	separatorRuns   = regexp.MustCompile(`={40,}`)
	sectionMarkers  = regexp.MustCompile(`===\s*\w+\s*===`)
	excessNewlines  = regexp.MustCompile(`\n{3,}`)
	ipShapedPattern = regexp.MustCompile(`\d+\.\d+\.\d+\.\d+`)
)

// Clean applies the replacement table, strips artifact separator lines, and
// collapses runs of three or more newlines to exactly two.
func Clean(text string) string {
	for _, pair := range replacements {
		text = strings.ReplaceAll(text, pair[0], pair[1])
	}

	text = separatorRuns.ReplaceAllString(text, "")
	text = sectionMarkers.ReplaceAllString(text, "")
	text = excessNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// Enrich appends concrete client facts when text mentions a topic without
// stating its specifics: a printer mention without an IP-shaped value, a VPN
// mention without the word "servidor", a WiFi mention without a password word.
// A nil facts record returns text unchanged.
func Enrich(text string, facts *clientfacts.Facts) string {
	if facts == nil {
		return text
	}

	lower := strings.ToLower(text)

	if strings.Contains(lower, "impresora") && len(facts.Printers) > 0 {
		if !ipShapedPattern.MatchString(text) {
			var b strings.Builder
			fmt.Fprintf(&b, "\n\n**📌 Impresoras de %s:**\n", titleCase(facts.Client))
			for _, p := range facts.Printers {
				fmt.Fprintf(&b, "\n• **%s**", p.Name)
				fmt.Fprintf(&b, "\n  IP: `%s`", p.IP)
				fmt.Fprintf(&b, "\n  Ubicación: %s\n", p.Location)
			}
			text += b.String()
			lower = strings.ToLower(text)
		}
	}

	if strings.Contains(lower, "vpn") && facts.VPN != nil {
		if !strings.Contains(lower, "servidor") {
			var b strings.Builder
			b.WriteString("\n\n**📡 Configuración VPN:**")
			fmt.Fprintf(&b, "\n- Servidor: `%s`", facts.VPN.Server)
			fmt.Fprintf(&b, "\n- Puerto: `%s`", facts.VPN.Port)
			fmt.Fprintf(&b, "\n- Cliente: %s\n", facts.VPN.Name)
			text += b.String()
			lower = strings.ToLower(text)
		}
	}

	if strings.Contains(lower, "wifi") && facts.WiFi != nil {
		if !strings.Contains(lower, "contraseña") && !strings.Contains(lower, "password") {
			var b strings.Builder
			b.WriteString("\n\n**📶 Red WiFi:**")
			fmt.Fprintf(&b, "\n- SSID: `%s`", facts.WiFi.SSID)
			fmt.Fprintf(&b, "\n- Contraseña: `%s`\n", facts.WiFi.Password)
			text += b.String()
		}
	}

	return text
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
