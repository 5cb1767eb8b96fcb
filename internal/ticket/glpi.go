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

// Package ticket creates escalation tickets in a GLPI instance over its REST
// API: init a session, post the ticket, kill the session. Failures are split
// into authentication, connectivity, and unexpected-response errors so the
// dialogue layer can phrase each one differently.
package ticket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds each GLPI round trip.
const DefaultTimeout = 10 * time.Second

// maxTitleLen caps the problem excerpt used in the ticket title.
const maxTitleLen = 60

// Request carries everything needed to open a ticket.
type Request struct {
	Name    string
	Email   string
	Phone   string
	Client  string
	Problem string
	Context string
	Date    string
}

// Result is a successfully created ticket.
type Result struct {
	ID      int
	Message string
}

// AuthError means GLPI rejected the session credentials.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("Error de autenticación: %d", e.StatusCode)
}

// ConnectivityError means GLPI could not be reached at all.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return "No se pudo conectar al sistema de tickets. Verifica que el servicio esté disponible."
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// UnexpectedError means GLPI answered but the ticket was not created.
type UnexpectedError struct {
	StatusCode int
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("No se pudo crear el ticket (código %d)", e.StatusCode)
}

// Client talks to one GLPI instance.
type Client struct {
	apiBase  string
	appToken string
	username string
	password string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient creates a GLPI client. apiBase is the apirest.php root, e.g.
// "https://glpi.example.com/glpi/apirest.php".
func NewClient(apiBase, appToken, username, password string, logger *zap.Logger) *Client {
	return &Client{
		apiBase:  apiBase,
		appToken: appToken,
		username: username,
		password: password,
		http:     &http.Client{Timeout: DefaultTimeout},
		logger:   logger,
	}
}

// Create opens a ticket in GLPI. The session is closed best-effort after the
// ticket request, whatever its outcome.
func (c *Client) Create(ctx context.Context, req Request) (*Result, error) {
	token, err := c.initSession(ctx)
	if err != nil {
		return nil, err
	}
	defer c.killSession(token)

	payload := map[string]interface{}{
		"input": map[string]interface{}{
			"name":            buildTitle(req),
			"content":         buildDescription(req),
			"entities_id":     0,
			"type":            1,
			"urgency":         3,
			"impact":          3,
			"priority":        3,
			"requesttypes_id": 1,
			"status":          1,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/Ticket", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build ticket request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("App-Token", c.appToken)
	httpReq.Header.Set("Session-Token", token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &ConnectivityError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("GLPI rejected ticket",
			zap.Int("status", resp.StatusCode))
		return nil, &UnexpectedError{StatusCode: resp.StatusCode}
	}

	var created struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || created.ID == 0 {
		return nil, &UnexpectedError{StatusCode: resp.StatusCode}
	}

	c.logger.Info("Created GLPI ticket",
		zap.Int("ticket_id", created.ID),
		zap.String("client", req.Client))

	return &Result{ID: created.ID, Message: "Ticket creado exitosamente"}, nil
}

// initSession authenticates and returns a session token.
func (c *Client) initSession(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/initSession", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build session request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("App-Token", c.appToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &ConnectivityError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{StatusCode: resp.StatusCode}
	}

	var session struct {
		SessionToken string `json:"session_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", &UnexpectedError{StatusCode: resp.StatusCode}
	}
	if session.SessionToken == "" {
		return "", &AuthError{StatusCode: resp.StatusCode}
	}
	return session.SessionToken, nil
}

// killSession closes the GLPI session. Failures are logged and ignored; the
// ticket outcome is already decided by the time this runs.
func (c *Client) killSession(token string) {
	req, err := http.NewRequest(http.MethodGet, c.apiBase+"/killSession", nil)
	if err != nil {
		return
	}
	req.Header.Set("App-Token", c.appToken)
	req.Header.Set("Session-Token", token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("Failed to close GLPI session", zap.Error(err))
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func buildTitle(req Request) string {
	problem := req.Problem
	if problem == "" {
		problem = "Problema técnico"
	}
	runes := []rune(problem)
	if len(runes) > maxTitleLen {
		problem = string(runes[:maxTitleLen])
	}
	return fmt.Sprintf("[%s] %s", req.Client, problem)
}

func buildDescription(req Request) string {
	problem := req.Problem
	if problem == "" {
		problem = "No especificado"
	}
	return fmt.Sprintf(`🤖 TICKET GENERADO POR SOPORTE-AVI
════════════════════════════════════════

👤 Usuario: %s
📧 Correo: %s
📞 Teléfono: %s
🏢 Empresa: %s

❌ Problema:
%s

📝 Contexto: %s
⏰ Fecha: %s
════════════════════════════════════════
`, orNA(req.Name), orNA(req.Email), orNA(req.Phone), req.Client, problem, orNA(req.Context), orNA(req.Date))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
