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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// object is a JSON object with its member order preserved, so rendering a
// record is deterministic and follows the source file's layout.
type object []member

type member struct {
	key   string
	value interface{}
}

func (o object) get(key string) (interface{}, bool) {
	for _, m := range o {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

func (o object) getString(key string) string {
	if v, ok := o.get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// decodeOrdered parses JSON keeping object member order. Scalars decode to
// string/float64/bool/nil like encoding/json's interface{} decoding.
func decodeOrdered(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var obj object
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key token %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj = append(obj, member{key: key, value: val})
			}
			if _, err := dec.Token(); err != nil { // closing brace
				return nil, err
			}
			return obj, nil
		case '[':
			var arr []interface{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil { // closing bracket
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	default:
		return tok, nil
	}
}

// RenderClientRecord renders a client configuration record as normalized text:
// a fixed header, top-level keys as section headings, nested keys as bold
// inline fields, with specialized rendering for step-shaped and device-shaped
// list entries.
func RenderClientRecord(client string, data []byte) (string, error) {
	decoded, err := decodeOrdered(data)
	if err != nil {
		return "", fmt.Errorf("failed to parse client record: %w", err)
	}

	root, ok := decoded.(object)
	if !ok {
		return "", fmt.Errorf("client record is not a JSON object")
	}

	title := strings.ToUpper(client)
	if meta, ok := root.get("metadata"); ok {
		if metaObj, ok := meta.(object); ok {
			if full := metaObj.getString("nombre_completo"); full != "" {
				title = full
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CONFIGURACIÓN TÉCNICA - %s\n", title)
	renderValue(&b, root, 0)
	return b.String(), nil
}

// internalKey reports whether an object key denotes internal metadata and
// should be skipped when rendering.
func internalKey(key string) bool {
	return strings.HasPrefix(key, "_") || key == "metadata"
}

func renderValue(b *strings.Builder, v interface{}, level int) {
	indent := strings.Repeat("  ", level)

	switch val := v.(type) {
	case object:
		for _, m := range val {
			if internalKey(m.key) {
				continue
			}

			title := titleCase(strings.ReplaceAll(m.key, "_", " "))
			if level == 0 {
				fmt.Fprintf(b, "\n## %s\n\n", strings.ToUpper(title))
			} else {
				fmt.Fprintf(b, "\n%s**%s:** ", indent, title)
			}

			switch m.value.(type) {
			case object, []interface{}:
				b.WriteString("\n")
				renderValue(b, m.value, level+1)
			default:
				if level > 0 {
					fmt.Fprintf(b, "%s\n", scalarString(m.value))
				} else {
					fmt.Fprintf(b, "%s%s\n", indent, scalarString(m.value))
				}
			}
		}

	case []interface{}:
		for i, item := range val {
			obj, isObj := item.(object)
			switch {
			case isObj && hasKey(obj, "paso"):
				fmt.Fprintf(b, "\n%s%s. **%s**\n", indent, scalarString(mustGet(obj, "paso")), obj.getString("titulo"))
				fmt.Fprintf(b, "%s   %s\n", indent, obj.getString("descripcion"))
			case isObj && hasKey(obj, "nombre") && hasKey(obj, "ip"):
				fmt.Fprintf(b, "\n%s• **%s**\n", indent, obj.getString("nombre"))
				fmt.Fprintf(b, "%s  - IP: %s\n", indent, obj.getString("ip"))
				if loc := obj.getString("ubicacion"); loc != "" {
					fmt.Fprintf(b, "%s  - Ubicación: %s\n", indent, loc)
				}
			case isObj:
				fmt.Fprintf(b, "\n%sItem %d:\n", indent, i+1)
				renderValue(b, obj, level+1)
			default:
				fmt.Fprintf(b, "%s- %s\n", indent, scalarString(item))
			}
		}
	}
}

func hasKey(o object, key string) bool {
	_, ok := o.get(key)
	return ok
}

func mustGet(o object, key string) interface{} {
	v, _ := o.get(key)
	return v
}

func scalarString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// titleCase uppercases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
