// Package decision wraps the completion service behind a narrow contract:
// given the rendered conversation for one turn, produce exactly one
// structured decision. Malformed completions surface as ErrParseFailure and
// never both an answer and a tool call at once.
package decision

import (
	"errors"

	"github.com/inboxd/inboxd/pkg/tools"
)

type Kind string

const (
	// KindInvoke selects a single tool call for this turn.
	KindInvoke Kind = "invoke"
	// KindAnswer concludes the run with a terminal answer.
	KindAnswer Kind = "answer"
	// KindAsk concludes the run with a clarification question.
	KindAsk Kind = "ask"
)

// Decision is the engine's structured output for one selection pass.
// Exactly one variant is populated.
type Decision struct {
	Kind Kind
	Call tools.ToolCall
	Text string
}

// ErrParseFailure is returned when the completion service's output cannot
// be mapped to any Decision variant, even after JSON repair.
var ErrParseFailure = errors.New("completion could not be parsed into a decision")

// Input carries everything the engine needs to build one prompt.
type Input struct {
	// SystemPrompt is an optional specialist preamble (sub-agents).
	SystemPrompt string

	// PriorContext is the rendered transcript of completed prior
	// exchanges, empty on the first turn.
	PriorContext string

	// InputInContext reports whether the current input already appears
	// in PriorContext's conversation, so the prompt does not repeat it.
	InputInContext bool

	// PreviousResults are archived tool results from earlier exchanges.
	PreviousResults []string

	// FreshResults are tool results produced for the current input.
	// A non-empty slice selects synthesis mode: the engine must answer
	// from these results instead of selecting another tool.
	FreshResults []string

	// Input is the current user input.
	Input string
}

// Synthesis reports whether the prompt asks for a final answer based on
// fresh tool results rather than a tool selection.
func (in Input) Synthesis() bool {
	return len(in.FreshResults) > 0
}
