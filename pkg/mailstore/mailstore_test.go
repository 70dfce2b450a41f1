package mailstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEmails() []Email {
	return []Email{
		{ID: "m1", Author: "alice@example.com", To: "me@example.com", Subject: "Q3 budget review", Body: "The budget numbers for Q3 are attached. Please review by Friday.", Date: "2026-08-01"},
		{ID: "m2", Author: "bob@example.com", To: "me@example.com", Subject: "Lunch on Thursday?", Body: "Want to grab lunch at the usual place on Thursday?", Date: "2026-08-10"},
		{ID: "m3", Author: "carol@example.com", To: "me@example.com", Subject: "Standup moved", Body: "The daily standup moves to 9:30 starting next week.", Date: "2026-08-15"},
	}
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := OpenMemOnly()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	require.NoError(t, ix.Add(testEmails()...))
	return ix
}

func TestSearchMatchesSubjectAndBody(t *testing.T) {
	t.Parallel()
	ix := newTestIndex(t)

	hits, err := ix.Search("budget", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "alice@example.com", hits[0].Author)
	assert.Equal(t, "Q3 budget review", hits[0].Subject)
	assert.Contains(t, hits[0].Snippet, "budget numbers")
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestSearchMatchesAuthor(t *testing.T) {
	t.Parallel()
	ix := newTestIndex(t)

	hits, err := ix.Search("bob", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "bob@example.com", hits[0].Author)
}

func TestSearchNoMatches(t *testing.T) {
	t.Parallel()
	ix := newTestIndex(t)

	hits, err := ix.Search("zeppelin", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchLimit(t *testing.T) {
	t.Parallel()
	ix := newTestIndex(t)

	hits, err := ix.Search("example.com", 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hits), 1)
}

func TestSnippetTruncation(t *testing.T) {
	t.Parallel()
	ix, err := OpenMemOnly()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	long := strings.Repeat("meeting agenda notes ", 50)
	require.NoError(t, ix.Add(Email{ID: "m1", Author: "a@example.com", Subject: "agenda", Body: long}))

	hits, err := ix.Search("agenda", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Len(t, hits[0].Snippet, snippetLength+3)
}

func TestAddAssignsIDs(t *testing.T) {
	t.Parallel()
	ix, err := OpenMemOnly()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	require.NoError(t, ix.Add(Email{Author: "a@example.com", Subject: "no id", Body: "body"}))

	count, err := ix.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestOpenCreatesAndReopens(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "mail.bleve")

	ix, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, ix.Add(testEmails()...))
	require.NoError(t, ix.Close())

	ix, err = Open(path)
	require.NoError(t, err)
	defer ix.Close()

	count, err := ix.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestLoadMailboxJSONArray(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "mailbox.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "m1", "author": "a@example.com", "subject": "one", "body": "first"},
		{"id": "m2", "author": "b@example.com", "subject": "two", "body": "second"}
	]`), 0o644))

	emails, err := LoadMailbox(path)
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, "one", emails[0].Subject)
}

func TestLoadMailboxJSONL(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "mailbox.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"id": "m1", "author": "a@example.com", "subject": "one", "body": "first"}

{"id": "m2", "author": "b@example.com", "subject": "two", "body": "second"}
`), 0o644))

	emails, err := LoadMailbox(path)
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, "two", emails[1].Subject)
}

func TestLoadMailboxBadJSON(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "mailbox.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"id": broken`), 0o644))

	_, err := LoadMailbox(path)
	assert.Error(t, err)
}

func TestLoadMailboxMissingFile(t *testing.T) {
	t.Parallel()
	_, err := LoadMailbox(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
