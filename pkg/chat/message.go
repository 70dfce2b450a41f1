package chat

import (
	"time"

	"github.com/inboxd/inboxd/pkg/tools"
)

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// Message is one unit of conversation inside a run. The message log is
// append-only; the only mutation after append is the approval gate's edit
// path, which rewrites the arguments of the most recent assistant tool call
// before it executes.
type Message struct {
	Role       MessageRole      `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []tools.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolName   string           `json:"tool_name,omitempty"`
	CreatedAt  string           `json:"created_at,omitempty"`
}

func UserMessage(content string) Message {
	return Message{
		Role:      MessageRoleUser,
		Content:   content,
		CreatedAt: time.Now().Format(time.RFC3339),
	}
}

func SystemMessage(content string) Message {
	return Message{
		Role:      MessageRoleSystem,
		Content:   content,
		CreatedAt: time.Now().Format(time.RFC3339),
	}
}

func AssistantMessage(content string) Message {
	return Message{
		Role:      MessageRoleAssistant,
		Content:   content,
		CreatedAt: time.Now().Format(time.RFC3339),
	}
}

// AssistantToolCall records the single tool call selected for this turn.
func AssistantToolCall(call tools.ToolCall) Message {
	return Message{
		Role:      MessageRoleAssistant,
		ToolCalls: []tools.ToolCall{call},
		CreatedAt: time.Now().Format(time.RFC3339),
	}
}

func ToolResultMessage(call tools.ToolCall, content string) Message {
	return Message{
		Role:       MessageRoleTool,
		Content:    content,
		ToolCallID: call.ID,
		ToolName:   call.Name,
		CreatedAt:  time.Now().Format(time.RFC3339),
	}
}

// IsFinalAnswer reports whether m concludes an exchange: an assistant
// message carrying content and no tool calls.
func (m *Message) IsFinalAnswer() bool {
	return m.Role == MessageRoleAssistant && m.Content != "" && len(m.ToolCalls) == 0
}
