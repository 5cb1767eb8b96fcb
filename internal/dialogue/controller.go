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

// Package dialogue is the conversation state machine: it detects technical
// problems, identifies the company, walks the troubleshooting tree, answers
// free-form questions through retrieval, and escalates to a ticket when the
// steps run out.
package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/soporte-avi/internal/clientfacts"
	"github.com/your-org/soporte-avi/internal/sanitize"
	"github.com/your-org/soporte-avi/internal/sentiment"
	"github.com/your-org/soporte-avi/internal/ticket"
	"github.com/your-org/soporte-avi/internal/troubleshoot"
	"go.uber.org/zap"
)

// Answerer produces a retrieval-grounded answer for a client's query.
type Answerer interface {
	Answer(ctx context.Context, client, query string) (string, error)
}

// TicketCreator opens an escalation ticket.
type TicketCreator interface {
	Create(ctx context.Context, req ticket.Request) (*ticket.Result, error)
}

// problemKeywords trigger the company question when no client is set.
var problemKeywords = []string{
	"vpn", "wifi", "impresora", "imprime", "office", "siigo", "autocad",
	"contabilidad", "licencia", "configuración", "acceso", "lento", "lentitud",
}

// knownClients are the companies the assistant serves. Matching is a
// case-insensitive substring check over the user's reply.
var knownClients = []string{"Ventura", "Axia", "Setri"}

// categoryRule maps problem keywords to a troubleshooting category. Rules are
// checked in order; the first match wins.
type categoryRule struct {
	keywords []string
	category troubleshoot.Category
}

var categoryRules = []categoryRule{
	{[]string{"impresora", "imprimir", "imprime"}, troubleshoot.CategoryPrinter},
	{[]string{"vpn", "conexión remota", "remoto"}, troubleshoot.CategoryVPN},
	{[]string{"wifi", "red", "internet"}, troubleshoot.CategoryWiFi},
	{[]string{"lento", "lentitud"}, troubleshoot.CategorySlowness},
}

const (
	msgAskCompany = "Entendido, te ayudo con eso.\n\n¿A qué empresa perteneces?\n\n" +
		"Opciones: **Ventura**, **Axia**, **Setri**"
	msgRepeatCompany = "Por favor escribe: **Ventura**, **Axia** o **Setri**"
	msgStepResolved  = "¡Perfecto! 🎉 Me alegra que funcionara.\n\n✨ *Conversación cerrada*"
	msgStepUnclear   = "⚠️ No entendí.\n\nPor favor responde:\n" +
		"• Si funcionó: **ya funciona** / **resuelto**\n" +
		"• Si no: **no funciona** / **sigue sin funcionar**"
	msgResolved = "¡Genial! Me alegra haber ayudado.\nQue tengas un excelente día ✨\n" +
		"*Conversación cerrada*"
	msgAskName     = "📋 **1.** ¿Nombre completo?"
	msgAskPhone    = "📞 **3.** ¿Tu número de teléfono?"
	msgBadEmail    = "⚠️ Por favor ingresa un correo válido (con @)"
	msgDegraded    = "⚠️ En este momento no puedo consultar la base de conocimiento. Intenta de nuevo en unos minutos."
	msgMoreHelp    = "\n\n¿Algo más en lo que te ayude?"
	msgEscalating  = "Entendido. Crearemos un ticket.\n\n" + msgAskName
	msgSorryTicket = "Lo siento. Vamos a crear un ticket.\n\n" + msgAskName
)

// Controller drives one conversation turn at a time. It is stateless apart
// from its collaborators; all conversation state travels in the Session value.
type Controller struct {
	interp    *troubleshoot.Interpreter
	sentiment *sentiment.Classifier
	answerer  Answerer
	tickets   TicketCreator
	facts     *clientfacts.Store
	logger    *zap.Logger
	now       func() time.Time
}

// NewController wires the controller's collaborators.
func NewController(interp *troubleshoot.Interpreter, classifier *sentiment.Classifier, answerer Answerer, tickets TicketCreator, facts *clientfacts.Store, logger *zap.Logger) *Controller {
	return &Controller{
		interp:    interp,
		sentiment: classifier,
		answerer:  answerer,
		tickets:   tickets,
		facts:     facts,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessMessage advances the conversation one turn. The input session is
// never mutated; the returned session is the state to carry forward. When an
// external call fails, the response is a degraded-service message and the
// returned session equals the input, so the same turn can be retried.
func (c *Controller) ProcessMessage(ctx context.Context, sess Session, message string) (string, Session) {
	message = strings.TrimSpace(message)
	lower := strings.ToLower(message)

	if sess.State == "" {
		sess.State = StateStart
	}

	// A technical problem with no company on record: ask for the company.
	if sess.Client == "" && containsAny(lower, problemKeywords) {
		next := sess
		next.OriginalProblem = message
		next.State = StateAwaitingClient
		return msgAskCompany, next
	}

	switch sess.State {
	case StateAwaitingClient:
		return c.handleClientReply(ctx, sess, lower)
	case StateTroubleshooting:
		return c.handleTroubleshooting(sess, lower)
	case StateResolving:
		if c.sentiment.IsAffirmative(lower) {
			return msgResolved, NewSession()
		}
		if c.sentiment.IsNegative(lower) {
			next := sess
			next.State = StateTicketName
			return msgSorryTicket, next
		}
		// Neither yes nor no: treat as a fresh question.
	case StateTicketName:
		next := sess
		next.TicketDraft.Name = message
		next.State = StateTicketEmail
		return fmt.Sprintf("Gracias %s.\n\n📧 **2.** ¿Cuál es tu correo electrónico?", message), next
	case StateTicketEmail:
		if !strings.Contains(message, "@") {
			return msgBadEmail, sess
		}
		next := sess
		next.TicketDraft.Email = message
		next.State = StateTicketPhone
		return msgAskPhone, next
	case StateTicketPhone:
		return c.submitTicket(ctx, sess, message)
	}

	return c.genericAnswer(ctx, sess, message)
}

// handleClientReply recognizes the company and either starts the
// troubleshooting tree or produces a direct retrieval answer.
func (c *Controller) handleClientReply(ctx context.Context, sess Session, lower string) (string, Session) {
	client := matchClient(lower)
	if client == "" {
		return msgRepeatCompany, sess
	}

	next := sess
	next.Client = client

	category := matchCategory(strings.ToLower(sess.OriginalProblem))
	if category != "" && c.interp.StepCount(category) > 0 {
		next.State = StateTroubleshooting
		next.Category = category
		next.CurrentStep = 1

		step, ok := c.interp.GetStep(category, 1, client)
		if !ok {
			return msgRepeatCompany, sess
		}
		return step.Prompt, next
	}

	// No tree for this problem: answer it directly and ask whether it helped.
	next.State = StateResolving
	prompt := fmt.Sprintf("Eres Soporte-AVI de %s.\nUsuario reporta: %q\n"+
		"Respuesta clara con pasos numerados.\n"+
		"Al final: ¿Se solucionó tu problema? (sí/no)", client, sess.OriginalProblem)

	answer, err := c.answerer.Answer(ctx, client, prompt)
	if err != nil {
		c.logger.Warn("Retrieval answer failed",
			zap.String("client", client),
			zap.Error(err))
		return msgDegraded, sess
	}

	answer = sanitize.Clean(answer)
	if facts, ok := c.facts.Get(client); ok {
		answer = sanitize.Enrich(answer, facts)
	}
	return answer, next
}

// handleTroubleshooting classifies the reply and advances the tree.
func (c *Controller) handleTroubleshooting(sess Session, lower string) (string, Session) {
	switch c.interp.ClassifyReply(lower) {
	case troubleshoot.OutcomeSuccess:
		return msgStepResolved, NewSession()

	case troubleshoot.OutcomeFailure:
		step, ok := c.interp.GetStep(sess.Category, sess.CurrentStep, sess.Client)
		if ok && step.OnFailure == troubleshoot.Escalate {
			next := sess
			next.State = StateTicketName
			return msgEscalating, next
		}

		next := sess
		next.CurrentStep++
		nextStep, ok := c.interp.GetStep(sess.Category, next.CurrentStep, sess.Client)
		if !ok {
			next.State = StateTicketName
			return msgEscalating, next
		}
		return nextStep.Prompt, next

	default:
		return msgStepUnclear, sess
	}
}

// submitTicket finalizes the draft and opens the ticket. The session is
// cleared whatever the outcome; only the response text differs.
func (c *Controller) submitTicket(ctx context.Context, sess Session, message string) (string, Session) {
	draft := sess.TicketDraft
	draft.Phone = strings.TrimSpace(message)

	problem := sess.OriginalProblem
	if problem == "" {
		problem = "No especificado"
	}
	category := string(sess.Category)
	if category == "" {
		category = "N/A"
	}
	stepReached := "N/A"
	if sess.CurrentStep > 0 {
		stepReached = fmt.Sprintf("%d", sess.CurrentStep)
	}

	req := ticket.Request{
		Name:    draft.Name,
		Email:   draft.Email,
		Phone:   draft.Phone,
		Client:  sess.Client,
		Problem: problem,
		Context: fmt.Sprintf("Categoría: %s | Paso alcanzado: %s", category, stepReached),
		Date:    c.now().Format("2006-01-02 15:04:05"),
	}

	result, err := c.tickets.Create(ctx, req)
	if err != nil {
		c.logger.Error("Ticket creation failed",
			zap.String("client", sess.Client),
			zap.Error(err))
		return fmt.Sprintf("⚠️ **Hubo un problema al crear el ticket:**\n\n%s\n\n"+
			"Por favor contacta directamente a soporte.\n\n*Conversación cerrada*", err.Error()), NewSession()
	}

	return fmt.Sprintf("✅ **¡Ticket creado exitosamente!**\n\n"+
		"🎫 Ticket #%d\n👤 %s\n📧 %s\n\n"+
		"Nuestro equipo se pondrá en contacto pronto.\n\n*Conversación cerrada*",
		result.ID, draft.Name, draft.Email), NewSession()
}

// genericAnswer is the catch-all: answer against the general index, cleaned
// but not enriched, with an invitation for more questions.
func (c *Controller) genericAnswer(ctx context.Context, sess Session, message string) (string, Session) {
	answer, err := c.answerer.Answer(ctx, "", message)
	if err != nil {
		c.logger.Warn("Generic answer failed", zap.Error(err))
		return msgDegraded, sess
	}
	return sanitize.Clean(answer) + msgMoreHelp, sess
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func matchClient(lower string) string {
	for _, name := range knownClients {
		if strings.Contains(lower, strings.ToLower(name)) {
			return name
		}
	}
	return ""
}

func matchCategory(problem string) troubleshoot.Category {
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(problem, kw) {
				return rule.category
			}
		}
	}
	return ""
}
