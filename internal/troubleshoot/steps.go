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

package troubleshoot

// Category identifies a troubleshooting topic with a fixed step sequence.
type Category string

const (
	CategoryVPN      Category = "vpn"
	CategoryPrinter  Category = "printer"
	CategorySlowness Category = "slowness"
	// CategoryWiFi has no step sequence of its own but is recognized for
	// client-fact rendering.
	CategoryWiFi Category = "wifi"
)

// Escalate is the terminal OnFailure target: the next failed reply opens a ticket.
const Escalate = "escalate"

// Step is one diagnostic step in a category's sequence. Ordinals within a
// category are contiguous starting at 1, and the last step's OnFailure is
// always Escalate.
type Step struct {
	Category         Category
	Ordinal          int
	Prompt           string
	NeedsClientFacts bool
	OnFailure        string
}

// defaultSteps is the static troubleshooting tree.
var defaultSteps = map[Category][]Step{
	CategoryVPN: {
		{
			Category: CategoryVPN,
			Ordinal:  1,
			Prompt: "¿Tienes **conexión a internet** activa?\n\n" +
				"👉 Responde: **tengo internet** / **no tengo internet**",
			OnFailure: "2",
		},
		{
			Category: CategoryVPN,
			Ordinal:  2,
			Prompt: "Verifica la configuración y intenta conectar:\n" +
				"• Servidor correcto\n" +
				"• Usuario y contraseña de red\n\n" +
				"👉 Responde: **ya conectó** / **no conecta**",
			NeedsClientFacts: true,
			OnFailure:        "3",
		},
		{
			Category: CategoryVPN,
			Ordinal:  3,
			Prompt: "Último intento:\n" +
				"1. Cierra el cliente VPN\n" +
				"2. Reinicia tu equipo\n" +
				"3. Vuelve a conectar\n\n" +
				"👉 Responde: **funcionó** / **no funcionar**",
			OnFailure: Escalate,
		},
	},

	CategoryPrinter: {
		{
			Category: CategoryPrinter,
			Ordinal:  1,
			Prompt: "¿La impresora está **encendida** y tiene **papel**?\n\n" +
				"👉 Responde: **sí está** / **no está**",
			OnFailure: "2",
		},
		{
			Category: CategoryPrinter,
			Ordinal:  2,
			Prompt: "Verifica la conexión:\n" +
				"• Si es USB: desconecta y reconecta\n" +
				"• Si es red: verifica que esté en la misma red\n\n" +
				"👉 Responde: **ya imprime** / **sigue sin imprimir**",
			NeedsClientFacts: true,
			OnFailure:        "3",
		},
		{
			Category: CategoryPrinter,
			Ordinal:  3,
			Prompt: "Cancela trabajos pendientes:\n" +
				"1. Panel de Control > Impresoras\n" +
				"2. Cancelar todos los documentos\n\n" +
				"👉 Responde: **ya funciona** / **no funciona**",
			OnFailure: "4",
		},
		{
			Category: CategoryPrinter,
			Ordinal:  4,
			Prompt: "Reinicia el servicio:\n" +
				"1. Busca 'Servicios'\n" +
				"2. 'Cola de impresión' > Reiniciar\n\n" +
				"👉 Responde: **resuelto** / **sigue igual**",
			OnFailure: Escalate,
		},
	},

	CategorySlowness: {
		{
			Category: CategorySlowness,
			Ordinal:  1,
			Prompt: "¿Has cerrado todas las aplicaciones y pestañas innecesarias del navegador?\n\n" +
				"👉 Responde: **ya cerré todo** / **no he cerrado**",
			OnFailure: "2",
		},
		{
			Category: CategorySlowness,
			Ordinal:  2,
			Prompt: "Reinicia tu equipo ahora:\n" +
				"1. Guarda tu trabajo\n" +
				"2. Reinicia completamente\n\n" +
				"👉 Responde: **ya reinicié** / **no puedo reiniciar**",
			OnFailure: "3",
		},
		{
			Category: CategorySlowness,
			Ordinal:  3,
			Prompt: "Verifica tu conexión VPN o WiFi:\n" +
				"La lentitud suele venir por conexión inestable.\n\n" +
				"👉 Responde: **conexión buena** / **conexión mala**",
			NeedsClientFacts: true,
			OnFailure:        "4",
		},
		{
			Category: CategorySlowness,
			Ordinal:  4,
			Prompt: "Limpia espacio en disco:\n" +
				"1. Busca 'Liberador de espacio en disco'\n" +
				"2. Selecciona unidad C: y limpia archivos temporales\n\n" +
				"👉 Responde: **ya limpié** / **no mejoró**",
			OnFailure: "5",
		},
		{
			Category: CategorySlowness,
			Ordinal:  5,
			Prompt: "Último intento:\n" +
				"1. Cierra sesión de Windows\n" +
				"2. Vuelve a iniciar sesión\n\n" +
				"👉 Responde: **mejoró** / **sigue lento**",
			OnFailure: Escalate,
		},
	},
}

// Categories returns the categories that have a step sequence.
func Categories() []Category {
	return []Category{CategoryVPN, CategoryPrinter, CategorySlowness}
}
