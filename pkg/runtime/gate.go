package runtime

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/inboxd/inboxd/pkg/chat"
	"github.com/inboxd/inboxd/pkg/run"
	"github.com/inboxd/inboxd/pkg/tools"
)

// applyDecision resolves the pending approval request against a validated
// human decision. It returns the call to execute and whether to execute it;
// respond and ignore skip execution and fall through to the next selection
// pass. The pending request is consumed either way.
func applyDecision(r *run.Run, d run.HumanDecision) (tools.ToolCall, bool) {
	req := *r.Pending
	r.Pending = nil
	r.State = run.StateSelecting

	switch d.Type {
	case run.DecisionAccept:
		return req.ToolCall, true

	case run.DecisionEdit:
		args, ok := d.Args.(map[string]any)
		if !ok {
			// A payload that is not a mapping cannot replace the
			// arguments; treat as accept.
			slog.Warn("Edit payload is not a mapping, executing unchanged", "run_id", r.ID, "tool", req.ToolCall.Name)
			return req.ToolCall, true
		}
		call := req.ToolCall
		call.Arguments = args
		rewriteLastToolCall(r, call)
		return call, true

	case run.DecisionRespond:
		text, ok := d.Args.(string)
		if !ok {
			text = fmt.Sprintf("%v", d.Args)
		}
		r.AddMessage(chat.UserMessage(text))
		r.Input = text
		return tools.ToolCall{}, false

	case run.DecisionIgnore:
		// The selected call stays in the log but never executes and
		// gets no result.
		return tools.ToolCall{}, false
	}

	return tools.ToolCall{}, false
}

// rewriteLastToolCall updates the most recent assistant tool-call message
// so the log reflects the arguments that actually executed.
func rewriteLastToolCall(r *run.Run, call tools.ToolCall) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		m := &r.Messages[i]
		if m.Role != chat.MessageRoleAssistant || len(m.ToolCalls) == 0 {
			continue
		}
		if m.ToolCalls[0].ID == call.ID {
			m.ToolCalls[0] = call
		}
		return
	}
}

// Describe renders the human-facing summary of a tool call shown in an
// approval request.
func Describe(call tools.ToolCall) string {
	switch call.Name {
	case "send-mail":
		return fmt.Sprintf("Send email to %s: %q", stringArg(call, "to"), stringArg(call, "subject"))
	case "create-calendar-event":
		return fmt.Sprintf("Create calendar event: %q at %s", stringArg(call, "subject"), stringArg(call, "start"))
	case "manage_email":
		return "Email action: " + chat.Truncate(stringArg(call, "request"), 100)
	case "manage_calendar":
		return "Calendar action: " + chat.Truncate(stringArg(call, "request"), 100)
	}

	keys := make([]string, 0, len(call.Arguments))
	for k := range call.Arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, call.Arguments[k]))
	}
	return fmt.Sprintf("%s(%s)", call.Name, strings.Join(parts, ", "))
}

func stringArg(call tools.ToolCall, key string) string {
	if v, ok := call.Arguments[key].(string); ok {
		return v
	}
	return ""
}
