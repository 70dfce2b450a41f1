package builtin

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxd/inboxd/pkg/chat"
	"github.com/inboxd/inboxd/pkg/mailstore"
)

type scriptedProvider struct {
	responses []string
	calls     int
	prompts   [][]chat.Message
}

func (p *scriptedProvider) CreateChatCompletion(_ context.Context, messages []chat.Message) (string, error) {
	p.prompts = append(p.prompts, messages)
	i := p.calls
	p.calls++
	if i >= len(p.responses) {
		return `{"tool_name": "Done", "tool_args": {"answer": "nothing else to do"}}`, nil
	}
	return p.responses[i], nil
}

func TestManageEmailRunsSpecialist(t *testing.T) {
	t.Parallel()

	svc := NewLocalEmailService()
	p := &scriptedProvider{responses: []string{
		`{"tool_name": "create-draft-email", "tool_args": {"to": "bob@example.com", "subject": "plan", "body": "draft"}}`,
		`{"tool_name": "Done", "tool_args": {"answer": "Draft created for Bob."}}`,
	}}
	tool := ManageEmail(p, svc)

	out, err := tool.Handler(context.Background(), map[string]any{"request": "draft an email to bob about the plan"})
	require.NoError(t, err)
	assert.Equal(t, "Draft created for Bob.", out)

	drafts, err := svc.ListMessages(context.Background(), "drafts", 10)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "plan", drafts[0].Subject)
}

func TestManageEmailSendIntentHint(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: []string{
		`{"tool_name": "Done", "tool_args": {"answer": "done"}}`,
	}}
	tool := ManageEmail(p, NewLocalEmailService())

	_, err := tool.Handler(context.Background(), map[string]any{"request": "send bob a note about lunch"})
	require.NoError(t, err)

	require.Len(t, p.prompts, 1)
	assert.Contains(t, p.prompts[0][0].Content, "USER INTENT: The user wants to SEND the email")
}

func TestManageEmailNoSendHintForDrafts(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: []string{
		`{"tool_name": "Done", "tool_args": {"answer": "done"}}`,
	}}
	tool := ManageEmail(p, NewLocalEmailService())

	_, err := tool.Handler(context.Background(), map[string]any{"request": "send later, just draft a note to bob"})
	require.NoError(t, err)

	require.Len(t, p.prompts, 1)
	assert.NotContains(t, p.prompts[0][0].Content, "USER INTENT")
}

func TestManageEmailRequiresRequest(t *testing.T) {
	t.Parallel()

	tool := ManageEmail(&scriptedProvider{}, NewLocalEmailService())
	_, err := tool.Handler(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestManageCalendarDateHintInPrompt(t *testing.T) {
	t.Parallel()

	svc := NewLocalCalendarService(
		Event{ID: "e1", Subject: "Standup", Start: "2026-09-01T09:00:00"},
	)
	p := &scriptedProvider{responses: []string{
		`{"tool_name": "list-calendar-events", "tool_args": {"top": 10}}`,
		`{"tool_name": "Done", "tool_args": {"answer": "You have one meeting."}}`,
	}}
	tool := ManageCalendar(p, svc)

	out, err := tool.Handler(context.Background(), map[string]any{"request": "what's on this week?"})
	require.NoError(t, err)
	assert.Equal(t, "You have one meeting.", out)

	require.NotEmpty(t, p.prompts)
	system := p.prompts[0][0].Content
	assert.Contains(t, system, "calendar specialist")
	assert.Contains(t, system, "DATE RANGE HINT")
}

func TestManageCalendarNoHintWithoutPeriod(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: []string{
		`{"tool_name": "Done", "tool_args": {"answer": "ok"}}`,
	}}
	tool := ManageCalendar(p, NewLocalCalendarService())

	_, err := tool.Handler(context.Background(), map[string]any{"request": "cancel my 1:1 with sam"})
	require.NoError(t, err)

	require.NotEmpty(t, p.prompts)
	assert.NotContains(t, p.prompts[0][0].Content, "DATE RANGE HINT")
}

func TestSupervisorCatalog(t *testing.T) {
	t.Parallel()

	ix, err := mailstore.OpenMemOnly()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	catalog := SupervisorCatalog(&scriptedProvider{}, NewLocalEmailService(), NewLocalCalendarService(), ix)

	var names []string
	for _, tool := range catalog.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"manage_email", "manage_calendar", "search_email_history"}, names)

	// Only the email supervisor gates on approval; listing meetings must
	// not interrupt the user.
	assert.True(t, catalog.RequiresApproval("manage_email"))
	assert.False(t, catalog.RequiresApproval("manage_calendar"))
	assert.False(t, catalog.RequiresApproval("search_email_history"))

	descriptions := catalog.Descriptions()
	assert.True(t, strings.HasPrefix(descriptions, "- manage_email:"), descriptions)
}
