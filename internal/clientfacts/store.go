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

// Package clientfacts loads and serves per-client technical configuration
// records (VPN, WiFi, printers). Records are loaded once at startup from
// kb_<client>.json files and are immutable afterwards, so lookups need no
// locking.
package clientfacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// VPN holds the VPN connection facts for a client.
type VPN struct {
	Name     string `json:"nombre"`
	Server   string `json:"servidor"`
	Port     string `json:"puerto"`
	Protocol string `json:"protocolo,omitempty"`
}

// WiFi holds the wireless network facts for a client.
type WiFi struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// Printer describes one networked printer.
type Printer struct {
	Name     string `json:"nombre"`
	IP       string `json:"ip"`
	Location string `json:"ubicacion,omitempty"`
}

// Facts is the full static record for one client.
type Facts struct {
	Client   string    `json:"-"`
	VPN      *VPN      `json:"vpn,omitempty"`
	WiFi     *WiFi     `json:"wifi,omitempty"`
	Printers []Printer `json:"impresoras,omitempty"`

	// Raw keeps the decoded JSON document so the knowledge base builder can
	// render the complete record, including groups this struct does not model.
	Raw map[string]interface{} `json:"-"`
}

// Store is a read-only collection of client facts keyed by lowercase client name.
type Store struct {
	clients map[string]*Facts
	logger  *zap.Logger
}

// Load reads every kb_*.json file in dir. A file that fails to parse is
// skipped with a warning; it does not abort the load.
func Load(dir string, logger *zap.Logger) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read clients directory: %w", err)
	}

	store := &Store{
		clients: make(map[string]*Facts),
		logger:  logger,
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "kb_") || !strings.HasSuffix(name, ".json") {
			continue
		}

		client := strings.TrimSuffix(strings.TrimPrefix(name, "kb_"), ".json")

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("Skipping unreadable client record",
				zap.String("file", name),
				zap.Error(err))
			continue
		}

		facts, err := parseFacts(client, data)
		if err != nil {
			logger.Warn("Skipping malformed client record",
				zap.String("file", name),
				zap.Error(err))
			continue
		}

		store.clients[strings.ToLower(client)] = facts
		logger.Info("Loaded client facts",
			zap.String("client", client),
			zap.Int("printers", len(facts.Printers)),
			zap.Bool("vpn", facts.VPN != nil),
			zap.Bool("wifi", facts.WiFi != nil))
	}

	return store, nil
}

func parseFacts(client string, data []byte) (*Facts, error) {
	var facts Facts
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("failed to decode facts: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode raw record: %w", err)
	}

	facts.Client = client
	facts.Raw = raw
	return &facts, nil
}

// Get returns the facts for a client, matched case-insensitively.
func (s *Store) Get(client string) (*Facts, bool) {
	facts, ok := s.clients[strings.ToLower(client)]
	return facts, ok
}

// Known returns the loaded client names in sorted order.
func (s *Store) Known() []string {
	names := make([]string, 0, len(s.clients))
	for name := range s.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of loaded clients.
func (s *Store) Len() int {
	return len(s.clients)
}

// NewStatic builds a store from in-memory facts. Intended for tests.
func NewStatic(facts ...*Facts) *Store {
	store := &Store{
		clients: make(map[string]*Facts, len(facts)),
		logger:  zap.NewNop(),
	}
	for _, f := range facts {
		store.clients[strings.ToLower(f.Client)] = f
	}
	return store
}
