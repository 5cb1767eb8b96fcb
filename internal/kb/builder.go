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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/your-org/soporte-avi/internal/chunker"
	"github.com/your-org/soporte-avi/internal/vectorstore"
	"go.uber.org/zap"
)

// GeneralIndex is the name of the index holding only general guide content.
const GeneralIndex = "general"

// Embedder generates vector representations for chunk texts.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Builder runs the offline pipeline: load knowledge sources, render them to
// documents, chunk, embed, and persist one index per client plus the general
// index. Each client index carries all general chunks so client queries always
// have access to generic guidance.
type Builder struct {
	clientsDir string
	guidesDir  string
	chunkSize  int
	overlap    int
	embedder   Embedder
	store      *vectorstore.Store
	logger     *zap.Logger
}

// Summary reports what a pipeline run produced and what it skipped.
type Summary struct {
	GuideDocs      int
	ClientDocs     int
	IndicesBuilt   int
	TotalChunks    int
	SkippedGuides  []string
	SkippedClients []string
}

// NewBuilder creates a Builder. chunkSize and overlap fall back to the
// chunker defaults when zero.
func NewBuilder(clientsDir, guidesDir string, chunkSize, overlap int, embedder Embedder, store *vectorstore.Store, logger *zap.Logger) *Builder {
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultChunkSize
	}
	if overlap <= 0 {
		overlap = chunker.DefaultOverlap
	}
	return &Builder{
		clientsDir: clientsDir,
		guidesDir:  guidesDir,
		chunkSize:  chunkSize,
		overlap:    overlap,
		embedder:   embedder,
		store:      store,
		logger:     logger,
	}
}

// Build runs the full pipeline. Malformed source files are skipped and
// reported in the summary; only embedding or persistence failures abort the
// run. Rerunning with unchanged inputs reproduces the same chunk set and
// overwrites prior indices.
func (b *Builder) Build(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	generalDocs := b.loadGuides(summary)
	clientDocs := b.loadClientRecords(summary)

	summary.GuideDocs = len(generalDocs)
	summary.ClientDocs = len(clientDocs)

	generalRecords, err := b.embedDocuments(ctx, GeneralIndex, generalDocs)
	if err != nil {
		return nil, err
	}

	if len(generalRecords) > 0 {
		if err := b.store.Save(GeneralIndex, generalRecords); err != nil {
			return nil, fmt.Errorf("failed to persist general index: %w", err)
		}
		summary.IndicesBuilt++
		summary.TotalChunks += len(generalRecords)
	}

	clients := make([]string, 0, len(clientDocs))
	for client := range clientDocs {
		clients = append(clients, client)
	}
	sort.Strings(clients)

	for _, client := range clients {
		records, err := b.embedDocuments(ctx, client, []Document{clientDocs[client]})
		if err != nil {
			return nil, err
		}

		combined := append(records, generalRecords...)
		if err := b.store.Save(client, combined); err != nil {
			return nil, fmt.Errorf("failed to persist index for %s: %w", client, err)
		}

		summary.IndicesBuilt++
		summary.TotalChunks += len(combined)
		b.logger.Info("Built client index",
			zap.String("client", client),
			zap.Int("client_chunks", len(records)),
			zap.Int("general_chunks", len(generalRecords)))
	}

	b.logger.Info("Knowledge base build complete",
		zap.Int("guide_docs", summary.GuideDocs),
		zap.Int("client_docs", summary.ClientDocs),
		zap.Int("indices", summary.IndicesBuilt),
		zap.Int("chunks", summary.TotalChunks),
		zap.Strings("skipped_guides", summary.SkippedGuides),
		zap.Strings("skipped_clients", summary.SkippedClients))

	return summary, nil
}

// loadGuides renders every guide file in the guides directory. A malformed
// file is skipped with a warning.
func (b *Builder) loadGuides(summary *Summary) []Document {
	entries, err := os.ReadDir(b.guidesDir)
	if err != nil {
		b.logger.Warn("Guides directory unavailable",
			zap.String("dir", b.guidesDir),
			zap.Error(err))
		return nil
	}

	var docs []Document
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(b.guidesDir, name))
		if err != nil {
			b.logger.Warn("Skipping unreadable guide", zap.String("file", name), zap.Error(err))
			summary.SkippedGuides = append(summary.SkippedGuides, name)
			continue
		}

		guide, err := ParseGuide(data)
		if err != nil {
			b.logger.Warn("Skipping malformed guide", zap.String("file", name), zap.Error(err))
			summary.SkippedGuides = append(summary.SkippedGuides, name)
			continue
		}

		docs = append(docs, NewGuideDocument(guide.Category, name, guide.Render()))
		b.logger.Debug("Loaded guide", zap.String("file", name), zap.String("category", guide.Category))
	}
	return docs
}

// loadClientRecords renders every kb_*.json client record. A parse failure
// aborts only that client's document.
func (b *Builder) loadClientRecords(summary *Summary) map[string]Document {
	docs := make(map[string]Document)

	entries, err := os.ReadDir(b.clientsDir)
	if err != nil {
		b.logger.Warn("Clients directory unavailable",
			zap.String("dir", b.clientsDir),
			zap.Error(err))
		return docs
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "kb_") || !strings.HasSuffix(name, ".json") {
			continue
		}

		client := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(name, "kb_"), ".json"))

		data, err := os.ReadFile(filepath.Join(b.clientsDir, name))
		if err != nil {
			b.logger.Warn("Skipping unreadable client record", zap.String("file", name), zap.Error(err))
			summary.SkippedClients = append(summary.SkippedClients, client)
			continue
		}

		content, err := RenderClientRecord(client, data)
		if err != nil {
			b.logger.Warn("Skipping malformed client record", zap.String("file", name), zap.Error(err))
			summary.SkippedClients = append(summary.SkippedClients, client)
			continue
		}

		docs[client] = NewClientDocument(client, content)
		b.logger.Debug("Loaded client record", zap.String("client", client))
	}
	return docs
}

// embedDocuments chunks the documents and embeds every chunk. Chunk IDs are
// derived from the index name and position, so a rebuild with unchanged input
// produces identical records.
func (b *Builder) embedDocuments(ctx context.Context, name string, docs []Document) ([]vectorstore.Record, error) {
	var (
		texts []string
		metas []map[string]string
	)
	for d, doc := range docs {
		for _, chunk := range chunker.Split(doc.Content, b.chunkSize, b.overlap) {
			texts = append(texts, chunk)
			meta := make(map[string]string, len(doc.Metadata)+1)
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			meta["doc"] = fmt.Sprintf("%s-%d", name, d)
			metas = append(metas, meta)
		}
	}

	if len(texts) == 0 {
		return nil, nil
	}

	embeddings, err := b.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks for %s: %w", name, err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch for %s: %d texts, %d vectors", name, len(texts), len(embeddings))
	}

	records := make([]vectorstore.Record, len(texts))
	for i := range texts {
		records[i] = vectorstore.Record{
			ID:        fmt.Sprintf("%s-%04d", name, i),
			Content:   texts[i],
			Metadata:  metas[i],
			Embedding: embeddings[i],
		}
	}
	return records, nil
}
