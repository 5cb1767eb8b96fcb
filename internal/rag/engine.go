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

// Package rag answers free-form queries by grounding a chat completion in the
// nearest chunks of a per-client index, falling back to the general index
// when a client has no index of its own.
package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/your-org/soporte-avi/internal/kb"
	"github.com/your-org/soporte-avi/internal/vectorstore"
	"go.uber.org/zap"
)

const (
	// DefaultTopK is how many chunks ground an answer.
	DefaultTopK = 5
	// DefaultQueryTimeout bounds one retrieval round trip.
	DefaultQueryTimeout = 15 * time.Second
)

// Embedder turns a query into its vector representation.
type Embedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Completer generates a natural-language answer from prompts.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Searcher resolves and queries named indices.
type Searcher interface {
	HasIndex(ctx context.Context, name string) (bool, error)
	Search(ctx context.Context, name string, vector []float32, topK int) ([]vectorstore.ScoredRecord, error)
}

// Engine is the retrieval answer engine. The per-client index resolution is
// cached after first use and never invalidated during the process lifetime; a
// rebuilt index takes effect after a restart.
type Engine struct {
	searcher Searcher
	embedder Embedder
	complete Completer
	logger   *zap.Logger
	topK     int
	timeout  time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	cache map[string]string

	ready atomic.Bool
}

// NewEngine creates an Engine. topK and timeout fall back to the defaults
// when zero.
func NewEngine(searcher Searcher, embedder Embedder, completer Completer, topK int, timeout time.Duration, logger *zap.Logger) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Engine{
		searcher: searcher,
		embedder: embedder,
		complete: completer,
		logger:   logger,
		topK:     topK,
		timeout:  timeout,
		locks:    make(map[string]*sync.Mutex),
		cache:    make(map[string]string),
	}
}

// Warmup verifies the general index exists and flips the readiness flag. A
// process that cannot serve the general index has no conversational capability.
func (e *Engine) Warmup(ctx context.Context) error {
	ok, err := e.searcher.HasIndex(ctx, kb.GeneralIndex)
	if err != nil {
		return fmt.Errorf("failed to check general index: %w", err)
	}
	if !ok {
		return fmt.Errorf("general index is empty; run the knowledge base builder first")
	}

	e.ready.Store(true)
	e.logger.Info("Retrieval engine ready")
	return nil
}

// Ready reports whether the engine can answer queries.
func (e *Engine) Ready() bool {
	return e.ready.Load()
}

// Answer resolves the client's index and produces a generated answer for
// query. An empty client targets the general index directly.
func (e *Engine) Answer(ctx context.Context, client, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	index, err := e.resolveIndex(ctx, client)
	if err != nil {
		return "", err
	}

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := e.searcher.Search(ctx, index, vector, e.topK)
	if err != nil {
		return "", fmt.Errorf("failed to search index %s: %w", index, err)
	}

	chunks := make([]string, len(results))
	for i, r := range results {
		chunks[i] = r.Content
	}

	answer, err := e.complete.Complete(ctx, systemPrompt, buildUserPrompt(query, chunks))
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	e.logger.Debug("Answered query",
		zap.String("index", index),
		zap.Int("chunks", len(chunks)))
	return answer, nil
}

// resolveIndex maps a client name to the index that will serve it, falling
// back to the general index when the client has none. The resolution is
// guarded by a per-name lock so concurrent first requests for the same client
// collapse into one lookup while unrelated clients never serialize.
func (e *Engine) resolveIndex(ctx context.Context, client string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(client))
	if name == "" {
		name = kb.GeneralIndex
	}

	e.mu.Lock()
	if resolved, ok := e.cache[name]; ok {
		e.mu.Unlock()
		return resolved, nil
	}
	lock, ok := e.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[name] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	e.mu.Lock()
	if resolved, ok := e.cache[name]; ok {
		e.mu.Unlock()
		return resolved, nil
	}
	e.mu.Unlock()

	resolved := name
	exists, err := e.searcher.HasIndex(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to resolve index %s: %w", name, err)
	}
	if !exists {
		// Degraded service, not an error: generic guidance still applies.
		e.logger.Warn("No index for client, falling back to general",
			zap.String("client", name))
		resolved = kb.GeneralIndex
	}

	e.mu.Lock()
	e.cache[name] = resolved
	e.mu.Unlock()

	return resolved, nil
}

const systemPrompt = `Eres Soporte-AVI, el asistente de soporte técnico.
Responde en español, de forma clara y breve, usando únicamente la información
del contexto proporcionado. Si el contexto no contiene la respuesta, dilo
claramente y sugiere abrir un ticket de soporte.`

// buildUserPrompt joins the retrieved chunks and the user's query into the
// completion prompt.
func buildUserPrompt(query string, chunks []string) string {
	var b strings.Builder

	if len(chunks) > 0 {
		b.WriteString("--- Contexto ---\n")
		for i, chunk := range chunks {
			fmt.Fprintf(&b, "Fragmento %d:\n%s\n\n", i+1, chunk)
		}
	}

	fmt.Fprintf(&b, "Consulta: %s\n", query)
	return b.String()
}
