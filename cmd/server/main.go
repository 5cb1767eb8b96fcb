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

// Package main runs the Soporte-AVI chat service: a small HTTP surface over
// the dialogue controller, with per-conversation session state held in memory
// and keyed by a session id the client echoes back.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/soporte-avi/internal/clientfacts"
	"github.com/your-org/soporte-avi/internal/config"
	"github.com/your-org/soporte-avi/internal/dialogue"
	"github.com/your-org/soporte-avi/internal/health"
	"github.com/your-org/soporte-avi/internal/openai"
	"github.com/your-org/soporte-avi/internal/rag"
	"github.com/your-org/soporte-avi/internal/sentiment"
	"github.com/your-org/soporte-avi/internal/ticket"
	"github.com/your-org/soporte-avi/internal/troubleshoot"
	"github.com/your-org/soporte-avi/internal/vectorstore"
	"go.uber.org/zap"
)

// ChatRequest is an incoming chat message.
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Error     string `json:"error,omitempty"`
}

// sessionRegistry keeps conversation state between requests. Messages for one
// session are serialized here; unrelated sessions never block each other.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu    sync.Mutex
	state dialogue.Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*sessionEntry)}
}

func (r *sessionRegistry) entry(id string) *sessionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		e = &sessionEntry{state: dialogue.NewSession()}
		r.sessions[id] = e
	}
	return e
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(buf)
}

// Server wires the dialogue controller to the HTTP surface.
type Server struct {
	controller    *dialogue.Controller
	engine        *rag.Engine
	sessions      *sessionRegistry
	healthManager *health.Manager
	logger        *zap.Logger
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	client, err := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Endpoint, cfg.OpenAI.ChatModel, logger)
	if err != nil {
		logger.Fatal("Failed to create OpenAI client", zap.Error(err))
	}

	store, err := vectorstore.Open(cfg.Knowledge.DBPath, logger)
	if err != nil {
		logger.Fatal("Failed to open index store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	engine := rag.NewEngine(store, client, client,
		cfg.Retrieval.TopK,
		time.Duration(cfg.Retrieval.TimeoutSeconds)*time.Second,
		logger)

	// A missing general index is not fatal at startup: the process runs, the
	// readiness check fails, and /chat reports unavailability until the
	// builder has produced the indices.
	if err := engine.Warmup(context.Background()); err != nil {
		logger.Warn("Retrieval engine not ready", zap.Error(err))
	}

	facts, err := clientfacts.Load(cfg.Knowledge.ClientsDir, logger)
	if err != nil {
		logger.Warn("Failed to load client facts, continuing without them",
			zap.String("dir", cfg.Knowledge.ClientsDir),
			zap.Error(err))
		facts = clientfacts.NewStatic()
	}

	glpi := ticket.NewClient(cfg.GLPI.APIURL, cfg.GLPI.AppToken, cfg.GLPI.Username, cfg.GLPI.Password, logger)

	controller := dialogue.NewController(
		troubleshoot.NewInterpreter(facts),
		sentiment.NewClassifier(),
		engine,
		glpi,
		facts,
		logger,
	)

	healthManager := health.NewManager("soporte-avi", "1.0.0", logger)
	healthManager.AddChecker("indices", health.DatabaseHealthChecker("indices", store.Ping))
	healthManager.AddChecker("retrieval", health.ReadinessChecker(engine.Ready))

	server := &Server{
		controller:    controller,
		engine:        engine,
		sessions:      newSessionRegistry(),
		healthManager: healthManager,
		logger:        logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/chat", server.handleChat)
	router.GET("/health", gin.WrapF(healthManager.HTTPHandler()))

	logger.Info("Starting Soporte-AVI server",
		zap.String("addr", cfg.Server.ListenAddr),
		zap.Int("clients", facts.Len()))

	if err := router.Run(cfg.Server.ListenAddr); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// handleChat processes one conversation turn.
func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ChatResponse{Error: "Invalid request format"})
		return
	}

	if !s.engine.Ready() {
		c.JSON(http.StatusInternalServerError, ChatResponse{
			Response: "Base de conocimiento no disponible",
		})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = newSessionID()
	}

	entry := s.sessions.entry(sessionID)

	// One message at a time per session; the controller relies on this.
	entry.mu.Lock()
	defer entry.mu.Unlock()

	response, next := s.controller.ProcessMessage(c.Request.Context(), entry.state, req.Message)
	entry.state = next

	c.JSON(http.StatusOK, ChatResponse{
		Response:  response,
		SessionID: sessionID,
	})
}
