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

// Package vectorstore persists named chunk indices in SQLite and serves
// brute-force cosine similarity search over them. An index is written once by
// the knowledge base builder and read many times by the retrieval engine;
// saving an index again replaces it atomically within a transaction.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Record is one chunk stored in an index.
type Record struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// ScoredRecord is a Record with its cosine similarity to a query vector.
type ScoredRecord struct {
	Record
	Score float32
}

// Store handles all named indices in a single SQLite database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the index database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	store := &Store{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS chunks (
			index_name TEXT NOT NULL,
			id         TEXT NOT NULL,
			content    TEXT NOT NULL,
			metadata   TEXT,
			embedding  BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (index_name, id)
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_index_name ON chunks (index_name);
	`

	_, err := s.db.Exec(query)
	return err
}

// Save replaces the named index with the given records. The delete and the
// inserts share one transaction, so a rebuild is idempotent and a reader never
// observes a half-written index.
func (s *Store) Save(indexName string, records []Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin save transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM chunks WHERE index_name = ?`, indexName); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear index %s: %w", indexName, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO chunks (index_name, id, content, metadata, embedding)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to marshal metadata for %s: %w", r.ID, err)
		}
		if _, err := stmt.Exec(indexName, r.ID, r.Content, string(meta), encodeFloat32s(r.Embedding)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert chunk %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index %s: %w", indexName, err)
	}

	s.logger.Info("Saved index",
		zap.String("index", indexName),
		zap.Int("chunks", len(records)))
	return nil
}

// HasIndex reports whether the named index holds at least one chunk.
func (s *Store) HasIndex(ctx context.Context, indexName string) (bool, error) {
	count, err := s.Count(ctx, indexName)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count returns the number of chunks stored in the named index.
func (s *Store) Count(ctx context.Context, indexName string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE index_name = ?`, indexName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count index %s: %w", indexName, err)
	}
	return count, nil
}

// ListIndexes returns the names of all stored indices in sorted order.
func (s *Store) ListIndexes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT index_name FROM chunks ORDER BY index_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list indices: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Search scans every chunk of the named index and returns the topK most
// similar records by cosine similarity.
func (s *Store) Search(ctx context.Context, indexName string, vector []float32, topK int) ([]ScoredRecord, error) {
	if topK <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata, embedding FROM chunks WHERE index_name = ?`, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to query index %s: %w", indexName, err)
	}
	defer rows.Close()

	var scored []ScoredRecord
	for rows.Next() {
		var (
			rec  Record
			meta sql.NullString
			blob []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Content, &meta, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}

		rec.Embedding = decodeFloat32s(blob)
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &rec.Metadata); err != nil {
				s.logger.Warn("Dropping unreadable chunk metadata",
					zap.String("index", indexName),
					zap.String("chunk", rec.ID))
			}
		}

		scored = append(scored, ScoredRecord{
			Record: rec,
			Score:  cosineSimilarity(vector, rec.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is empty, zero, or the lengths differ.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// encodeFloat32s packs a float32 slice as little-endian bytes.
func encodeFloat32s(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeFloat32s unpacks little-endian bytes into a float32 slice.
func decodeFloat32s(buf []byte) []float32 {
	values := make([]float32, len(buf)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return values
}
