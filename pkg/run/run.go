// Package run holds the durable state of one end-to-end interaction: the
// append-only message log, the machine state, and the zero-or-one pending
// approval request.
package run

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/inboxd/inboxd/pkg/chat"
	"github.com/inboxd/inboxd/pkg/tools"
)

type State string

const (
	// StateSelecting is the initial state: reconcile the log, ask the
	// decision engine for the next action.
	StateSelecting State = "selecting"
	// StateAwaitingApproval is the suspend point: an approval request
	// is pending and control has returned to the caller.
	StateAwaitingApproval State = "awaiting_approval"
	// StateConcluded is terminal for the current input. A run may be
	// re-entered with new input for multi-turn continuation.
	StateConcluded State = "concluded"
)

// DecisionType enumerates the human responses to an approval request.
type DecisionType string

const (
	DecisionAccept  DecisionType = "accept"
	DecisionEdit    DecisionType = "edit"
	DecisionRespond DecisionType = "respond"
	DecisionIgnore  DecisionType = "ignore"
)

// AllDecisionTypes is the default allowed-responses set.
var AllDecisionTypes = []DecisionType{DecisionAccept, DecisionEdit, DecisionRespond, DecisionIgnore}

func IsValidDecisionType(t DecisionType) bool {
	switch t {
	case DecisionAccept, DecisionEdit, DecisionRespond, DecisionIgnore:
		return true
	default:
		return false
	}
}

// ApprovalRequest is the serializable suspend payload surfaced to the
// caller while a run awaits a human decision. A run never has more than
// one pending request.
type ApprovalRequest struct {
	ToolCall         tools.ToolCall `json:"tool_call"`
	Description      string         `json:"description"`
	AllowedResponses []DecisionType `json:"allowed_responses"`
}

// HumanDecision resolves a pending ApprovalRequest. Consumed exactly once.
// Args carries new arguments for edit, free text for respond.
type HumanDecision struct {
	Type DecisionType `json:"type"`
	Args any          `json:"args,omitempty"`
}

type ResultKind string

const (
	ResultAnswer   ResultKind = "answer"
	ResultQuestion ResultKind = "question"
)

// Result is a run's terminal outcome for the current input.
type Result struct {
	Kind ResultKind `json:"kind"`
	Text string     `json:"text"`
}

// Run owns one multi-turn interaction. All fields serialize to JSON so a
// run can be reloaded from the store and resumed after a process restart.
type Run struct {
	ID       string           `json:"id"`
	State    State            `json:"state"`
	Input    string           `json:"input,omitempty"`
	Messages []chat.Message   `json:"messages"`
	Pending  *ApprovalRequest `json:"pending,omitempty"`
	Result   *Result          `json:"result,omitempty"`

	// LastToolOutput keeps the most recent raw (untruncated beyond its
	// own bound) tool output so a later parse failure can fall back to
	// it instead of a generic error.
	LastToolOutput string `json:"last_tool_output,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(id string) *Run {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	return &Run{
		ID:        id,
		State:     StateSelecting,
		Messages:  make([]chat.Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *Run) AddMessage(m chat.Message) {
	r.Messages = append(r.Messages, m)
	r.UpdatedAt = time.Now()
}

// Conclude records the terminal result and appends it to the log as an
// assistant message, which is what later reconciliation passes use to
// close the current exchange.
func (r *Run) Conclude(kind ResultKind, text string) {
	r.AddMessage(chat.AssistantMessage(text))
	r.Result = &Result{Kind: kind, Text: text}
	r.Pending = nil
	r.State = StateConcluded
}

// Reopen prepares a concluded (or fresh) run for a new input.
func (r *Run) Reopen(input string) {
	r.Input = input
	r.Result = nil
	r.LastToolOutput = ""
	r.State = StateSelecting
	r.UpdatedAt = time.Now()
}

// Clone returns a deep copy via a JSON roundtrip, so stores can hand out
// snapshots without aliasing the live run.
func (r *Run) Clone() (*Run, error) {
	buf, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var c Run
	if err := json.Unmarshal(buf, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
