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

package sanitize

import (
	"strings"
	"testing"

	"github.com/your-org/soporte-avi/internal/clientfacts"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain text untouched", "Reinicia el router.", "Reinicia el router."},
		{"nul becomes zero", "puerto 8\x0080", "puerto 8080"},
		{"ligature artifacts", "conï¬guraciÃ³n oï¬cial", "configuración oficial"},
		{"accent artifacts", "Ã¡Ã©Ã­Ã³ÃºÃ±", "áéíóúñ"},
		{
			"separator run stripped",
			"antes\n" + strings.Repeat("=", 50) + "\ndespués",
			"antes\n\ndespués",
		},
		{"short equals run kept", "a == b", "a == b"},
		{"section marker stripped", "texto === VPN === texto", "texto  texto"},
		{"newline runs collapsed", "uno\n\n\n\n\ndos", "uno\n\ndos"},
		{"surrounding whitespace trimmed", "  hola  \n", "hola"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func testFacts() *clientfacts.Facts {
	return &clientfacts.Facts{
		Client: "ventura",
		VPN: &clientfacts.VPN{
			Name:   "FortiClient",
			Server: "vpn.ventura.co",
			Port:   "443",
		},
		WiFi: &clientfacts.WiFi{
			SSID:     "Ventura-Corp",
			Password: "V3ntura2025",
		},
		Printers: []clientfacts.Printer{
			{Name: "HP LaserJet Recepción", IP: "192.168.10.21", Location: "Recepción"},
		},
	}
}

func TestEnrich_NilFacts(t *testing.T) {
	text := "Revisa tu impresora."
	if got := Enrich(text, nil); got != text {
		t.Errorf("expected unchanged text, got %q", got)
	}
}

func TestEnrich_PrinterWithoutIP(t *testing.T) {
	got := Enrich("Verifica que tu impresora esté encendida.", testFacts())
	if !strings.Contains(got, "192.168.10.21") {
		t.Errorf("expected printer IP appended, got:\n%s", got)
	}
	if !strings.Contains(got, "Impresoras de Ventura") {
		t.Errorf("expected client header, got:\n%s", got)
	}
	if !strings.Contains(got, "Recepción") {
		t.Errorf("expected printer location, got:\n%s", got)
	}
}

func TestEnrich_PrinterWithIPUntouched(t *testing.T) {
	text := "Tu impresora está en 192.168.10.21."
	if got := Enrich(text, testFacts()); got != text {
		t.Errorf("expected unchanged text, got:\n%s", got)
	}
}

func TestEnrich_VPNWithoutServer(t *testing.T) {
	got := Enrich("Abre el cliente VPN e intenta de nuevo.", testFacts())
	if !strings.Contains(got, "vpn.ventura.co") {
		t.Errorf("expected VPN server appended, got:\n%s", got)
	}
	if !strings.Contains(got, "443") {
		t.Errorf("expected VPN port appended, got:\n%s", got)
	}
}

func TestEnrich_VPNMentionsServerUntouched(t *testing.T) {
	text := "Conéctate al servidor VPN habitual."
	if got := Enrich(text, testFacts()); got != text {
		t.Errorf("expected unchanged text, got:\n%s", got)
	}
}

func TestEnrich_WiFiWithoutPassword(t *testing.T) {
	got := Enrich("Olvida la red wifi y vuelve a unirte.", testFacts())
	if !strings.Contains(got, "Ventura-Corp") {
		t.Errorf("expected SSID appended, got:\n%s", got)
	}
	if !strings.Contains(got, "V3ntura2025") {
		t.Errorf("expected password appended, got:\n%s", got)
	}
}

func TestEnrich_WiFiMentionsPasswordUntouched(t *testing.T) {
	text := "Escribe la contraseña del wifi con cuidado."
	if got := Enrich(text, testFacts()); got != text {
		t.Errorf("expected unchanged text, got:\n%s", got)
	}
}

func TestEnrich_MissingFactGroups(t *testing.T) {
	facts := &clientfacts.Facts{Client: "axia"}
	text := "Tu impresora, la vpn y el wifi fallan a la vez."
	if got := Enrich(text, facts); got != text {
		t.Errorf("expected unchanged text with no fact groups, got:\n%s", got)
	}
}

func TestEnrich_UnrelatedTopicUntouched(t *testing.T) {
	text := "Reinicia el equipo y prueba de nuevo."
	if got := Enrich(text, testFacts()); got != text {
		t.Errorf("expected unchanged text, got:\n%s", got)
	}
}
