package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/inboxd/inboxd/pkg/tools"
)

func TestIsFinalAnswer(t *testing.T) {
	t.Parallel()

	answer := AssistantMessage("You have two meetings.")
	assert.True(t, answer.IsFinalAnswer())

	question := UserMessage("What meetings do I have?")
	assert.False(t, question.IsFinalAnswer())

	call := AssistantToolCall(tools.ToolCall{ID: "call_1", Name: "manage_calendar"})
	assert.False(t, call.IsFinalAnswer())

	empty := AssistantMessage("")
	assert.False(t, empty.IsFinalAnswer())
}

func TestToolResultMessageLinksCall(t *testing.T) {
	t.Parallel()
	call := tools.ToolCall{ID: "call_1", Name: "search_email_history"}

	m := ToolResultMessage(call, "No emails found.")
	assert.Equal(t, MessageRoleTool, m.Role)
	assert.Equal(t, "call_1", m.ToolCallID)
	assert.Equal(t, "search_email_history", m.ToolName)
	assert.Equal(t, "No emails found.", m.Content)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exact", Truncate("exact", 5))
	assert.Equal(t, "lon...", Truncate("longer", 3))
	assert.Equal(t, "unbounded", Truncate("unbounded", 0))
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	t.Parallel()

	// The cut may not split a multi-byte rune.
	assert.Equal(t, "h...", Truncate("héllo", 2))
	assert.Equal(t, "hé...", Truncate("héllo", 3))

	long := strings.Repeat("日", 100)
	out := Truncate(long, 50)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len(out), 53)
}
