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

import "github.com/your-org/soporte-avi/internal/troubleshoot"

// State is the conversation phase.
type State string

const (
	StateStart           State = "start"
	StateAwaitingClient  State = "awaiting_client"
	StateTroubleshooting State = "troubleshooting"
	StateResolving       State = "resolving"
	StateTicketName      State = "ticket_name"
	StateTicketEmail     State = "ticket_email"
	StateTicketPhone     State = "ticket_phone"
)

// TicketDraft accumulates contact details during ticket capture.
type TicketDraft struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Session is one conversation's state. It is a plain value: the controller
// takes a session in and hands a new one back, and the transport layer owns
// persistence. A zero Session with State normalized to StateStart is a fresh
// conversation.
type Session struct {
	State           State                 `json:"state"`
	Client          string                `json:"client,omitempty"`
	Category        troubleshoot.Category `json:"category,omitempty"`
	CurrentStep     int                   `json:"current_step,omitempty"`
	OriginalProblem string                `json:"original_problem,omitempty"`
	TicketDraft     TicketDraft           `json:"ticket_draft,omitempty"`
}

// NewSession returns a fresh session in the start state.
func NewSession() Session {
	return Session{State: StateStart}
}
