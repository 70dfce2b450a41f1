// Package api defines the wire types of the HTTP boundary.
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/inboxd/inboxd/pkg/run"
)

// Run status values exposed over the API.
const (
	StatusInterrupted = "interrupted"
	StatusIdle        = "idle"
	StatusBusy        = "busy"
)

// EmailInput is an incoming email handed to the assistant for triage.
type EmailInput struct {
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// StartRunRequest starts a run, or re-enters an existing one when RunID is
// set. Exactly one of Question or EmailInput must be present.
type StartRunRequest struct {
	RunID      string      `json:"run_id,omitempty"`
	Question   string      `json:"question,omitempty"`
	EmailInput *EmailInput `json:"email_input,omitempty"`
}

// Input renders the request into the supervisor's input text.
func (r StartRunRequest) Input() (string, error) {
	switch {
	case r.Question != "" && r.EmailInput != nil:
		return "", fmt.Errorf("provide either question or email_input, not both")
	case r.Question != "":
		return r.Question, nil
	case r.EmailInput != nil:
		e := r.EmailInput
		return fmt.Sprintf("Email from %s about: %s. Content: %s", e.From, e.Subject, strings.TrimSpace(e.Body)), nil
	default:
		return "", fmt.Errorf("question or email_input is required")
	}
}

// ResumeRunRequest resolves a pending approval request.
type ResumeRunRequest struct {
	Type string `json:"type"`
	Args any    `json:"args,omitempty"`
}

// RunResponse is the non-streaming reply for start, resume and status.
type RunResponse struct {
	RunID           string               `json:"run_id"`
	Status          string               `json:"status"`
	Result          *run.Result          `json:"result,omitempty"`
	ApprovalRequest *run.ApprovalRequest `json:"approval_request,omitempty"`
}

// RunSummary is one entry in the run list.
type RunSummary struct {
	RunID                string `json:"run_id"`
	Status               string `json:"status"`
	Input                string `json:"input,omitempty"`
	InterruptDescription string `json:"interrupt_description,omitempty"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
}

// StatusOf maps the run state onto the API status vocabulary.
func StatusOf(r *run.Run) string {
	switch r.State {
	case run.StateAwaitingApproval:
		return StatusInterrupted
	case run.StateConcluded:
		return StatusIdle
	default:
		return StatusBusy
	}
}

// ResponseFor builds the standard reply for a run snapshot.
func ResponseFor(r *run.Run) RunResponse {
	return RunResponse{
		RunID:           r.ID,
		Status:          StatusOf(r),
		Result:          r.Result,
		ApprovalRequest: r.Pending,
	}
}

// SummaryFor builds the list entry for a run snapshot.
func SummaryFor(r *run.Run) RunSummary {
	s := RunSummary{
		RunID:     r.ID,
		Status:    StatusOf(r),
		Input:     r.Input,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
		UpdatedAt: r.UpdatedAt.Format(time.RFC3339),
	}
	if r.Pending != nil {
		s.InterruptDescription = r.Pending.Description
	}
	return s
}
