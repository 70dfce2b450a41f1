package run

import (
	"fmt"
	"strings"

	"github.com/inboxd/inboxd/pkg/chat"
)

// Bounds applied while deriving the per-turn views. Prior exchanges are
// capped so the prompt stays bounded regardless of run length.
const (
	maxPriorExchanges     = 10
	maxPreviousResults    = 5
	freshResultTruncation = 500
	priorResultTruncation = 300
)

// Exchange is one completed question/answer pair from the log.
type Exchange struct {
	Question string
	Answer   string
}

// View is the reconciler's output: three disjoint views of the log for the
// current turn.
type View struct {
	// PriorContext holds completed prior exchanges, most recent last,
	// bounded to maxPriorExchanges.
	PriorContext []Exchange

	// PreviousResults are tool results archived from earlier exchanges,
	// rendered as "[Previous] tool '<name>': <content>".
	PreviousResults []string

	// FreshResults are tool results produced in service of the current
	// input, rendered as "Tool '<name>' returned: <content>".
	FreshResults []string

	// IsNewInput is true when the current input does not already appear
	// verbatim as a user message in the log. Guards against
	// double-appending the same user turn across retries.
	IsNewInput bool

	// InputInPriorContext is true when the current input is the question
	// of a completed exchange in PriorContext, so rendering that context
	// alone already presents the input to the model.
	InputInPriorContext bool
}

// Reconcile walks the ordered message log and classifies every prior
// message relative to the current input. The open question is set by each
// user message and cleared by a terminal assistant answer; tool results
// belong to the current turn only while the open question equals the
// current input. Without this split, results from an earlier unrelated
// question leak into the synthesis prompt.
func Reconcile(messages []chat.Message, input string) View {
	view := View{IsNewInput: true}

	var openQuestion string
	var pendingAnswerFor string

	for i := range messages {
		m := &messages[i]
		switch m.Role {
		case chat.MessageRoleUser:
			openQuestion = m.Content
			pendingAnswerFor = m.Content
			if m.Content == input {
				view.IsNewInput = false
			}
		case chat.MessageRoleAssistant:
			if !m.IsFinalAnswer() {
				continue
			}
			if pendingAnswerFor != "" {
				view.PriorContext = append(view.PriorContext, Exchange{
					Question: pendingAnswerFor,
					Answer:   m.Content,
				})
				pendingAnswerFor = ""
			}
			openQuestion = ""
		case chat.MessageRoleTool:
			if openQuestion == input {
				view.FreshResults = append(view.FreshResults,
					fmt.Sprintf("Tool '%s' returned: %s", m.ToolName, chat.Truncate(m.Content, freshResultTruncation)))
			} else {
				view.PreviousResults = append(view.PreviousResults,
					fmt.Sprintf("[Previous] tool '%s': %s", m.ToolName, chat.Truncate(m.Content, priorResultTruncation)))
			}
		}
	}

	if n := len(view.PriorContext); n > maxPriorExchanges {
		view.PriorContext = view.PriorContext[n-maxPriorExchanges:]
	}
	if n := len(view.PreviousResults); n > maxPreviousResults {
		view.PreviousResults = view.PreviousResults[n-maxPreviousResults:]
	}
	for _, ex := range view.PriorContext {
		if ex.Question == input {
			view.InputInPriorContext = true
			break
		}
	}

	return view
}

// RenderHistory flattens the prior exchanges into the transcript form the
// selection prompt embeds.
func (v View) RenderHistory() string {
	var lines []string
	for _, ex := range v.PriorContext {
		lines = append(lines, "User: "+ex.Question, "Assistant: "+ex.Answer)
	}
	return strings.Join(lines, "\n")
}
