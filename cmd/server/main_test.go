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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/soporte-avi/internal/clientfacts"
	"github.com/your-org/soporte-avi/internal/dialogue"
	"github.com/your-org/soporte-avi/internal/rag"
	"github.com/your-org/soporte-avi/internal/sentiment"
	"github.com/your-org/soporte-avi/internal/ticket"
	"github.com/your-org/soporte-avi/internal/troubleshoot"
	"github.com/your-org/soporte-avi/internal/vectorstore"
	"go.uber.org/zap"
)

type stubSearcher struct {
	indices map[string][]vectorstore.ScoredRecord
}

func (s *stubSearcher) HasIndex(_ context.Context, name string) (bool, error) {
	_, ok := s.indices[name]
	return ok, nil
}

func (s *stubSearcher) Search(_ context.Context, name string, _ []float32, topK int) ([]vectorstore.ScoredRecord, error) {
	records := s.indices[name]
	if len(records) > topK {
		records = records[:topK]
	}
	return records, nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type stubCompleter struct{}

func (stubCompleter) Complete(context.Context, string, string) (string, error) {
	return "respuesta de prueba", nil
}

type stubTickets struct{}

func (stubTickets) Create(context.Context, ticket.Request) (*ticket.Result, error) {
	return &ticket.Result{ID: 1, Message: "Ticket creado exitosamente"}, nil
}

func newTestServer(warm bool) *Server {
	logger := zap.NewNop()

	indices := map[string][]vectorstore.ScoredRecord{}
	if warm {
		indices["general"] = []vectorstore.ScoredRecord{
			{Record: vectorstore.Record{ID: "g-0001", Content: "guía general"}, Score: 1},
		}
	}

	engine := rag.NewEngine(&stubSearcher{indices: indices}, stubEmbedder{}, stubCompleter{}, 5, 0, logger)
	if warm {
		_ = engine.Warmup(context.Background())
	}

	facts := clientfacts.NewStatic()
	controller := dialogue.NewController(
		troubleshoot.NewInterpreter(facts),
		sentiment.NewClassifier(),
		engine,
		stubTickets{},
		facts,
		logger,
	)

	return &Server{
		controller: controller,
		engine:     engine,
		sessions:   newSessionRegistry(),
		logger:     logger,
	}
}

func newTestRouter(s *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/chat", s.handleChat)
	return router
}

func postChat(t *testing.T, router *gin.Engine, req ChatRequest) (int, ChatResponse) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	httpReq := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, httpReq)

	var resp ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestChat_NotReady(t *testing.T) {
	router := newTestRouter(newTestServer(false))

	code, resp := postChat(t, router, ChatRequest{Message: "hola"})

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Base de conocimiento no disponible", resp.Response)
}

func TestChat_MissingMessage(t *testing.T) {
	router := newTestRouter(newTestServer(true))

	code, resp := postChat(t, router, ChatRequest{})

	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, resp.Error)
}

func TestChat_ConversationKeepsSession(t *testing.T) {
	router := newTestRouter(newTestServer(true))

	// First message detects a problem and asks for the company.
	code, first := postChat(t, router, ChatRequest{Message: "mi impresora no imprime"})
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, first.SessionID, "server must hand out a session id")
	assert.Contains(t, first.Response, "empresa")

	// The follow-up on the same session starts troubleshooting.
	code, second := postChat(t, router, ChatRequest{Message: "ventura", SessionID: first.SessionID})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Contains(t, second.Response, "impresora")
}

func TestChat_SessionsAreIsolated(t *testing.T) {
	router := newTestRouter(newTestServer(true))

	_, first := postChat(t, router, ChatRequest{Message: "mi impresora no imprime"})
	_, other := postChat(t, router, ChatRequest{Message: "hola, una consulta"})

	assert.NotEqual(t, first.SessionID, other.SessionID)
	assert.Contains(t, other.Response, "¿Algo más en lo que te ayude?")
}
