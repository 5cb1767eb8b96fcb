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

package dialogue

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/soporte-avi/internal/clientfacts"
	"github.com/your-org/soporte-avi/internal/sentiment"
	"github.com/your-org/soporte-avi/internal/ticket"
	"github.com/your-org/soporte-avi/internal/troubleshoot"
	"go.uber.org/zap"
)

type fakeAnswerer struct {
	answer     string
	err        error
	lastClient string
	lastQuery  string
	calls      int
}

func (f *fakeAnswerer) Answer(_ context.Context, client, query string) (string, error) {
	f.calls++
	f.lastClient = client
	f.lastQuery = query
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeTickets struct {
	result  *ticket.Result
	err     error
	lastReq ticket.Request
	calls   int
}

func (f *fakeTickets) Create(_ context.Context, req ticket.Request) (*ticket.Result, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func venturaFacts() *clientfacts.Facts {
	return &clientfacts.Facts{
		Client: "ventura",
		VPN:    &clientfacts.VPN{Name: "FortiClient", Server: "vpn.ventura.co", Port: "443"},
		Printers: []clientfacts.Printer{
			{Name: "HP LaserJet Recepción", IP: "192.168.10.21", Location: "Recepción"},
		},
	}
}

func newTestController(answerer *fakeAnswerer, tickets *fakeTickets) *Controller {
	facts := clientfacts.NewStatic(venturaFacts())
	ctrl := NewController(
		troubleshoot.NewInterpreter(facts),
		sentiment.NewClassifier(),
		answerer,
		tickets,
		facts,
		zap.NewNop(),
	)
	ctrl.now = func() time.Time {
		return time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	}
	return ctrl
}

func TestProblemDetectionAsksForCompany(t *testing.T) {
	ctrl := newTestController(&fakeAnswerer{}, &fakeTickets{})

	resp, sess := ctrl.ProcessMessage(context.Background(), NewSession(), "mi impresora no imprime")

	assert.Equal(t, StateAwaitingClient, sess.State)
	assert.Equal(t, "mi impresora no imprime", sess.OriginalProblem)
	for _, name := range []string{"Ventura", "Axia", "Setri"} {
		assert.Contains(t, resp, name)
	}
}

func TestUnknownCompanyReprompts(t *testing.T) {
	ctrl := newTestController(&fakeAnswerer{}, &fakeTickets{})
	sess := Session{State: StateAwaitingClient, OriginalProblem: "mi impresora no imprime"}

	resp, next := ctrl.ProcessMessage(context.Background(), sess, "globex")

	assert.Equal(t, StateAwaitingClient, next.State)
	assert.Empty(t, next.Client)
	assert.Contains(t, resp, "Ventura")
}

func TestCompanyReplyStartsPrinterTroubleshooting(t *testing.T) {
	ctrl := newTestController(&fakeAnswerer{}, &fakeTickets{})
	sess := Session{State: StateAwaitingClient, OriginalProblem: "mi impresora no imprime"}

	resp, next := ctrl.ProcessMessage(context.Background(), sess, "ventura")

	assert.Equal(t, StateTroubleshooting, next.State)
	assert.Equal(t, "Ventura", next.Client)
	assert.Equal(t, troubleshoot.CategoryPrinter, next.Category)
	assert.Equal(t, 1, next.CurrentStep)
	assert.Contains(t, resp, "encendida")
}

func TestCompanyReplyWithoutCategoryAnswersDirectly(t *testing.T) {
	answerer := &fakeAnswerer{answer: "Reinstala la licencia de Office."}
	ctrl := newTestController(answerer, &fakeTickets{})
	sess := Session{State: StateAwaitingClient, OriginalProblem: "no me activa la licencia de office"}

	resp, next := ctrl.ProcessMessage(context.Background(), sess, "setri")

	assert.Equal(t, StateResolving, next.State)
	assert.Equal(t, "Setri", next.Client)
	assert.Equal(t, "Setri", answerer.lastClient)
	assert.Contains(t, answerer.lastQuery, "no me activa la licencia de office")
	assert.Contains(t, answerer.lastQuery, "¿Se solucionó tu problema?")
	assert.Contains(t, resp, "Reinstala la licencia")
}

func TestDirectAnswerIsEnrichedWithFacts(t *testing.T) {
	// Mentions the VPN without its server: enrichment must add the facts.
	answerer := &fakeAnswerer{answer: "Abre el cliente VPN e inicia sesión de nuevo."}
	ctrl := newTestController(answerer, &fakeTickets{})
	sess := Session{State: StateAwaitingClient, OriginalProblem: "problema de acceso"}

	resp, _ := ctrl.ProcessMessage(context.Background(), sess, "soy de ventura")

	assert.Contains(t, resp, "vpn.ventura.co")
}

func TestDirectAnswerFailureLeavesStateUnchanged(t *testing.T) {
	answerer := &fakeAnswerer{err: fmt.Errorf("timeout")}
	ctrl := newTestController(answerer, &fakeTickets{})
	sess := Session{State: StateAwaitingClient, OriginalProblem: "problema de acceso"}

	resp, next := ctrl.ProcessMessage(context.Background(), sess, "ventura")

	assert.Equal(t, sess, next, "failed turn must not advance the session")
	assert.Contains(t, resp, "⚠️")
}

func TestTroubleshootingSuccessClearsSession(t *testing.T) {
	ctrl := newTestController(&fakeAnswerer{}, &fakeTickets{})
	sess := Session{
		State: StateTroubleshooting, Client: "Ventura",
		Category: troubleshoot.CategoryPrinter, CurrentStep: 2,
		OriginalProblem: "mi impresora no imprime",
	}

	resp, next := ctrl.ProcessMessage(context.Background(), sess, "ya imprime, gracias")

	assert.Equal(t, NewSession(), next)
	assert.Contains(t, resp, "Conversación cerrada")
}

func TestTroubleshootingFailureAdvances(t *testing.T) {
	ctrl := newTestController(&fakeAnswerer{}, &fakeTickets{})
	sess := Session{
		State: StateTroubleshooting, Client: "Ventura",
		Category: troubleshoot.CategoryPrinter, CurrentStep: 1,
		OriginalProblem: "mi impresora no imprime",
	}

	resp, next := ctrl.ProcessMessage(context.Background(), sess, "no está")

	assert.Equal(t, 2, next.CurrentStep)
	assert.Equal(t, StateTroubleshooting, next.State)
	assert.Contains(t, resp, "conexión")
	// Step 2 renders printer facts for a known client.
	assert.Contains(t, resp, "192.168.10.21")
}

func TestTroubleshootingUnclearReprompts(t *testing.T) {
	ctrl := newTestController(&fakeAnswerer{}, &fakeTickets{})
	sess := Session{
		State: StateTroubleshooting, Client: "Ventura",
		Category: troubleshoot.CategoryPrinter, CurrentStep: 1,
	}

	resp, next := ctrl.ProcessMessage(context.Background(), sess, "mmm tal vez")

	assert.Equal(t, sess, next)
	assert.Contains(t, resp, "No entendí")
}

func TestLastStepFailureEscalates(t *testing.T) {
	ctrl := newTestController(&fakeAnswerer{}, &fakeTickets{})
	sess := Session{
		State: StateTroubleshooting, Client: "Ventura",
		Category: troubleshoot.CategoryVPN, CurrentStep: 3,
		OriginalProblem: "la vpn no conecta",
	}

	resp, next := ctrl.ProcessMessage(context.Background(), sess, "no conecta")

	assert.Equal(t, StateTicketName, next.State)
	assert.Contains(t, resp, "Nombre completo")
}

func TestResolvingAffirmativeClearsSession(t *testing.T) {
	ctrl := newTestController(&fakeAnswerer{}, &fakeTickets{})
	sess := Session{State: StateResolving, Client: "Ventura", OriginalProblem: "problema de acceso"}

	resp, next := ctrl.ProcessMessage(context.Background(), sess, "sí, quedó perfecto")

	assert.Equal(t, NewSession(), next)
	assert.Contains(t, resp, "Conversación cerrada")
}

func TestResolvingNegativeStartsTicket(t *testing.T) {
	ctrl := newTestController(&fakeAnswerer{}, &fakeTickets{})
	sess := Session{State: StateResolving, Client: "Ventura", OriginalProblem: "problema de acceso"}

	resp, next := ctrl.ProcessMessage(context.Background(), sess, "no, sigue sin funcionar")

	assert.Equal(t, StateTicketName, next.State)
	assert.Contains(t, resp, "Nombre completo")
}

func TestResolvingUnclearFallsThroughToGenericAnswer(t *testing.T) {
	answerer := &fakeAnswerer{answer: "El horario de soporte es de 8 a 18."}
	ctrl := newTestController(answerer, &fakeTickets{})
	sess := Session{State: StateResolving, Client: "Ventura", OriginalProblem: "problema de acceso"}

	resp, next := ctrl.ProcessMessage(context.Background(), sess, "cuál es el horario de soporte")

	assert.Equal(t, sess, next, "fallthrough keeps the session")
	assert.Equal(t, "", answerer.lastClient, "generic answers target the general index")
	assert.Contains(t, resp, "horario de soporte")
	assert.Contains(t, resp, "¿Algo más en lo que te ayude?")
}

func TestTicketCaptureFlow(t *testing.T) {
	tickets := &fakeTickets{result: &ticket.Result{ID: 317, Message: "Ticket creado exitosamente"}}
	ctrl := newTestController(&fakeAnswerer{}, tickets)
	ctx := context.Background()

	sess := Session{
		State: StateTicketName, Client: "Ventura",
		Category: troubleshoot.CategoryVPN, CurrentStep: 3,
		OriginalProblem: "la vpn no conecta",
	}

	resp, sess := ctrl.ProcessMessage(ctx, sess, "Ana Pérez")
	assert.Equal(t, StateTicketEmail, sess.State)
	assert.Contains(t, resp, "Ana Pérez")
	assert.Contains(t, resp, "correo")

	// Invalid email re-prompts without advancing.
	resp, sess = ctrl.ProcessMessage(ctx, sess, "not-an-email")
	assert.Equal(t, StateTicketEmail, sess.State)
	assert.Contains(t, resp, "correo válido")

	resp, sess = ctrl.ProcessMessage(ctx, sess, "ana@ventura.co")
	assert.Equal(t, StateTicketPhone, sess.State)
	assert.Contains(t, resp, "teléfono")

	resp, sess = ctrl.ProcessMessage(ctx, sess, "3001234567")
	assert.Equal(t, NewSession(), sess, "session cleared after submission")
	assert.Contains(t, resp, "#317")
	assert.Contains(t, resp, "Ana Pérez")

	require.Equal(t, 1, tickets.calls)
	req := tickets.lastReq
	assert.Equal(t, "Ana Pérez", req.Name)
	assert.Equal(t, "ana@ventura.co", req.Email)
	assert.Equal(t, "3001234567", req.Phone)
	assert.Equal(t, "Ventura", req.Client)
	assert.Equal(t, "la vpn no conecta", req.Problem)
	assert.Contains(t, req.Context, "vpn")
	assert.Contains(t, req.Context, "3")
	assert.Equal(t, "2025-06-01 10:30:00", req.Date)
}

func TestTicketFailureStillClearsSession(t *testing.T) {
	tickets := &fakeTickets{err: &ticket.ConnectivityError{}}
	ctrl := newTestController(&fakeAnswerer{}, tickets)
	sess := Session{
		State: StateTicketPhone, Client: "Ventura",
		OriginalProblem: "la vpn no conecta",
		TicketDraft:     TicketDraft{Name: "Ana", Email: "ana@ventura.co"},
	}

	resp, next := ctrl.ProcessMessage(context.Background(), sess, "3001234567")

	assert.Equal(t, NewSession(), next, "session cleared even on failure")
	assert.Contains(t, resp, "Hubo un problema")
	assert.Contains(t, resp, "Conversación cerrada")
}

func TestGenericFallback(t *testing.T) {
	answerer := &fakeAnswerer{answer: "Puedes escribirnos a soporte@avi.co."}
	ctrl := newTestController(answerer, &fakeTickets{})

	resp, next := ctrl.ProcessMessage(context.Background(), NewSession(), "hola, una duda general")

	assert.Equal(t, StateStart, next.State)
	assert.Equal(t, "", answerer.lastClient)
	assert.True(t, strings.HasSuffix(resp, "¿Algo más en lo que te ayude?"))
}

func TestGenericFallbackFailureLeavesStateUnchanged(t *testing.T) {
	answerer := &fakeAnswerer{err: fmt.Errorf("service down")}
	ctrl := newTestController(answerer, &fakeTickets{})
	sess := NewSession()

	resp, next := ctrl.ProcessMessage(context.Background(), sess, "hola")

	assert.Equal(t, sess, next)
	assert.Contains(t, resp, "⚠️")
}

func TestKeywordWhileAwaitingClientReasksCompany(t *testing.T) {
	// A reply that mentions the problem again instead of the company keeps
	// the conversation waiting for the company.
	ctrl := newTestController(&fakeAnswerer{}, &fakeTickets{})
	sess := Session{State: StateAwaitingClient, OriginalProblem: "mi impresora no imprime"}

	resp, next := ctrl.ProcessMessage(context.Background(), sess, "la impresora sigue igual")

	assert.Equal(t, StateAwaitingClient, next.State)
	assert.Empty(t, next.Client)
	assert.Contains(t, resp, "empresa")
}

func TestMatchCategoryRuleOrder(t *testing.T) {
	tests := []struct {
		problem string
		want    troubleshoot.Category
	}{
		{"mi impresora no imprime", troubleshoot.CategoryPrinter},
		{"no puedo imprimir nada", troubleshoot.CategoryPrinter},
		{"la vpn no conecta", troubleshoot.CategoryVPN},
		{"falla la conexión remota", troubleshoot.CategoryVPN},
		{"el wifi está caído", troubleshoot.CategoryWiFi},
		{"no tengo internet", troubleshoot.CategoryWiFi},
		{"el equipo está muy lento", troubleshoot.CategorySlowness},
		{"no activa la licencia", ""},
		// Printer wins over VPN when both appear: rules are ordered.
		{"la impresora y la vpn fallan", troubleshoot.CategoryPrinter},
	}
	for _, tt := range tests {
		if got := matchCategory(tt.problem); got != tt.want {
			t.Errorf("matchCategory(%q) = %q, want %q", tt.problem, got, tt.want)
		}
	}
}
