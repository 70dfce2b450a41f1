package runtime

import (
	"github.com/inboxd/inboxd/pkg/run"
	"github.com/inboxd/inboxd/pkg/tools"
)

// Event is the progress stream emitted while a run advances. Every Start
// or Resume pass emits a start event, zero or more tool_call/tool_result
// pairs, then exactly one of interrupt, done, or error.
type Event interface {
	isEvent()
}

// RunStartedEvent is sent when a run begins processing an input.
type RunStartedEvent struct {
	Type  string `json:"type"`
	RunID string `json:"run_id"`
}

func RunStarted(runID string) Event {
	return &RunStartedEvent{
		Type:  "start",
		RunID: runID,
	}
}

func (e *RunStartedEvent) isEvent() {}

// ToolCallEvent is sent when a tool call is about to execute.
type ToolCallEvent struct {
	Type     string         `json:"type"`
	ToolCall tools.ToolCall `json:"tool_call"`
}

func ToolCall(call tools.ToolCall) Event {
	return &ToolCallEvent{
		Type:     "tool_call",
		ToolCall: call,
	}
}

func (e *ToolCallEvent) isEvent() {}

// ToolResultEvent carries the (already truncated) result appended to the
// run's log for a tool call.
type ToolResultEvent struct {
	Type     string         `json:"type"`
	ToolCall tools.ToolCall `json:"tool_call"`
	Response string         `json:"response"`
}

func ToolResult(call tools.ToolCall, response string) Event {
	return &ToolResultEvent{
		Type:     "tool_result",
		ToolCall: call,
		Response: response,
	}
}

func (e *ToolResultEvent) isEvent() {}

// InterruptEvent is sent when the run suspends for a human decision.
type InterruptEvent struct {
	Type    string               `json:"type"`
	RunID   string               `json:"run_id"`
	Request *run.ApprovalRequest `json:"approval_request"`
}

func Interrupt(runID string, req *run.ApprovalRequest) Event {
	return &InterruptEvent{
		Type:    "interrupt",
		RunID:   runID,
		Request: req,
	}
}

func (e *InterruptEvent) isEvent() {}

// DoneEvent is sent when the run concludes for the current input.
type DoneEvent struct {
	Type   string     `json:"type"`
	RunID  string     `json:"run_id"`
	Result run.Result `json:"result"`
}

func Done(runID string, result run.Result) Event {
	return &DoneEvent{
		Type:   "done",
		RunID:  runID,
		Result: result,
	}
}

func (e *DoneEvent) isEvent() {}

// ErrorEvent is sent when a pass fails before reaching a terminal state.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func Error(err error) Event {
	return &ErrorEvent{
		Type:    "error",
		Message: err.Error(),
	}
}

func (e *ErrorEvent) isEvent() {}
