package root

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxd/inboxd/pkg/config"
)

func TestLoadConfigExplicitPath(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "inboxd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  model: gpt-4o-mini\n"), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Model)
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Parallel()
	// Run from a directory without an inboxd.yaml
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Nil(t, cfg)

	cfg, err = loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Model.Provider)
}

func TestBuildBackendsSeedsFromFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	mailbox := filepath.Join(dir, "mailbox.json")
	require.NoError(t, os.WriteFile(mailbox, []byte(`[
		{"id": "m1", "author": "lisa@example.com", "subject": "Offsite", "body": "Planning the offsite."}
	]`), 0o600))

	calendar := filepath.Join(dir, "calendar.json")
	require.NoError(t, os.WriteFile(calendar, []byte(`[
		{"id": "e1", "subject": "Standup", "start": "2026-08-28T09:00:00", "end": "2026-08-28T09:15:00"}
	]`), 0o600))

	email, cal, err := buildBackends(&config.DataConfig{
		MailboxPath:  mailbox,
		CalendarPath: calendar,
		OutboxPath:   filepath.Join(dir, "outbox.jsonl"),
	})
	require.NoError(t, err)

	messages, err := email.ListMessages(context.Background(), "inbox", 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "lisa@example.com", messages[0].From)

	event, err := cal.GetEvent(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "Standup", event.Subject)
}

func TestBuildBackendsEmptyConfig(t *testing.T) {
	t.Parallel()
	email, cal, err := buildBackends(&config.DataConfig{})
	require.NoError(t, err)

	messages, err := email.ListMessages(context.Background(), "inbox", 0)
	require.NoError(t, err)
	assert.Empty(t, messages)

	events, err := cal.ListEvents(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestBuildBackendsBadCalendarFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "calendar.json")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o600))

	_, _, err := buildBackends(&config.DataConfig{CalendarPath: path})
	require.Error(t, err)
}
