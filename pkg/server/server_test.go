package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxd/inboxd/pkg/api"
	"github.com/inboxd/inboxd/pkg/chat"
	"github.com/inboxd/inboxd/pkg/decision"
	"github.com/inboxd/inboxd/pkg/run"
	"github.com/inboxd/inboxd/pkg/runtime"
	"github.com/inboxd/inboxd/pkg/tools"
)

type scriptedProvider struct {
	responses []string
	calls     int
}

func (p *scriptedProvider) CreateChatCompletion(context.Context, []chat.Message) (string, error) {
	i := p.calls
	p.calls++
	if i >= len(p.responses) {
		return `{"tool_name": "Done", "tool_args": {"answer": "out of script"}}`, nil
	}
	return p.responses[i], nil
}

func newTestServer(t *testing.T, responses ...string) *httptest.Server {
	t.Helper()

	catalog := tools.NewCatalog(
		tools.Tool{
			Name:        "search_email_history",
			Description: "Search the archive",
			Parameters:  tools.ObjectSchema(map[string]any{"query": tools.StringParam("Search terms")}),
			Handler: func(_ context.Context, args map[string]any) (string, error) {
				return "1 hit for " + tools.StringArg(args, "query"), nil
			},
		},
		tools.Tool{
			Name:             "send-mail",
			Description:      "Send an email",
			Parameters:       tools.ObjectSchema(map[string]any{"to": tools.StringParam("Recipient"), "subject": tools.StringParam("Subject")}),
			RequiresApproval: true,
			Handler: func(_ context.Context, args map[string]any) (string, error) {
				return "sent to " + tools.StringArg(args, "to"), nil
			},
		},
	)

	store := run.NewInMemoryStore()
	rt := runtime.New(decision.NewEngine(&scriptedProvider{responses: responses}, catalog), catalog, store)

	srv := httptest.NewServer(New(rt, store).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeRun(t *testing.T, resp *http.Response) api.RunResponse {
	t.Helper()
	var out api.RunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestPing(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStartRunAnswers(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t,
		`{"tool_name": "Done", "tool_args": {"answer": "Nothing urgent today."}}`,
	)

	resp := postJSON(t, srv.URL+"/api/runs", api.StartRunRequest{Question: "anything urgent?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeRun(t, resp)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, api.StatusIdle, out.Status)
	require.NotNil(t, out.Result)
	assert.Equal(t, "Nothing urgent today.", out.Result.Text)
	assert.Nil(t, out.ApprovalRequest)
}

func TestStartRunInterrupts(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t,
		`{"tool_name": "send-mail", "tool_args": {"to": "bob@example.com", "subject": "lunch"}}`,
		`{"tool_name": "Done", "tool_args": {"answer": "Sent."}}`,
	)

	resp := postJSON(t, srv.URL+"/api/runs", api.StartRunRequest{Question: "email bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeRun(t, resp)
	assert.Equal(t, api.StatusInterrupted, out.Status)
	require.NotNil(t, out.ApprovalRequest)
	assert.Equal(t, "send-mail", out.ApprovalRequest.ToolCall.Name)

	// Resume with accept concludes the run.
	resp = postJSON(t, srv.URL+"/api/runs/"+out.RunID+"/resume", api.ResumeRunRequest{Type: "accept"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out = decodeRun(t, resp)
	assert.Equal(t, api.StatusIdle, out.Status)
	require.NotNil(t, out.Result)
	assert.Equal(t, "Sent.", out.Result.Text)
}

func TestStartRunWithEmailInput(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t,
		`{"tool_name": "Done", "tool_args": {"answer": "Filed it."}}`,
	)

	resp := postJSON(t, srv.URL+"/api/runs", api.StartRunRequest{
		EmailInput: &api.EmailInput{From: "alice@example.com", Subject: "Q3 budget", Body: "Please review."},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeRun(t, resp)
	assert.Equal(t, api.StatusIdle, out.Status)

	// The run's input carries the rendered email.
	var got api.RunResponse
	r, err := http.Get(srv.URL + "/api/runs/" + out.RunID)
	require.NoError(t, err)
	defer r.Body.Close()
	require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	assert.Equal(t, out.RunID, got.RunID)
}

func TestStartRunBadBody(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/runs", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/runs", map[string]any{
		"question":    "hi",
		"email_input": map[string]any{"from": "a@example.com", "subject": "s", "body": "b"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResumeConflicts(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t,
		`{"tool_name": "Done", "tool_args": {"answer": "done"}}`,
	)

	resp := postJSON(t, srv.URL+"/api/runs", api.StartRunRequest{Question: "hi"})
	out := decodeRun(t, resp)

	// Not awaiting approval.
	resp = postJSON(t, srv.URL+"/api/runs/"+out.RunID+"/resume", api.ResumeRunRequest{Type: "accept"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown run.
	resp = postJSON(t, srv.URL+"/api/runs/missing/resume", api.ResumeRunRequest{Type: "accept"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/runs/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRunsWithStatusFilter(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t,
		`{"tool_name": "Done", "tool_args": {"answer": "first"}}`,
		`{"tool_name": "send-mail", "tool_args": {"to": "b@example.com", "subject": "s"}}`,
	)

	postJSON(t, srv.URL+"/api/runs", api.StartRunRequest{Question: "one"})
	postJSON(t, srv.URL+"/api/runs", api.StartRunRequest{Question: "email b"})

	var all []api.RunSummary
	resp, err := http.Get(srv.URL + "/api/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&all))
	assert.Len(t, all, 2)

	var interrupted []api.RunSummary
	resp, err = http.Get(srv.URL + "/api/runs?status=interrupted")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&interrupted))
	require.Len(t, interrupted, 1)
	assert.Equal(t, "email b", interrupted[0].Input)
	assert.NotEmpty(t, interrupted[0].InterruptDescription)
}

func TestDeleteRun(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t,
		`{"tool_name": "Done", "tool_args": {"answer": "done"}}`,
	)

	out := decodeRun(t, postJSON(t, srv.URL+"/api/runs", api.StartRunRequest{Question: "hi"}))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/runs/"+out.RunID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestStartRunStreamEmitsSSE(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t,
		`{"tool_name": "search_email_history", "tool_args": {"query": "budget"}}`,
		`{"tool_name": "Done", "tool_args": {"answer": "One hit."}}`,
	)

	resp := postJSON(t, srv.URL+"/api/runs/stream", api.StartRunRequest{Question: "find the budget email"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var types []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		types = append(types, event.Type)
	}
	require.NoError(t, scanner.Err())

	assert.Equal(t, []string{"start", "tool_call", "tool_result", "done"}, types)
}

func TestResumeStreamEmitsInterruptThenDone(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t,
		`{"tool_name": "send-mail", "tool_args": {"to": "bob@example.com", "subject": "lunch"}}`,
		`{"tool_name": "Done", "tool_args": {"answer": "Sent."}}`,
	)

	resp := postJSON(t, srv.URL+"/api/runs/stream", api.StartRunRequest{Question: "email bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var runID string
	var startTypes []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event struct {
			Type  string `json:"type"`
			RunID string `json:"run_id"`
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		startTypes = append(startTypes, event.Type)
		if event.RunID != "" {
			runID = event.RunID
		}
	}
	assert.Equal(t, []string{"start", "interrupt"}, startTypes)
	require.NotEmpty(t, runID)

	resp = postJSON(t, srv.URL+"/api/runs/"+runID+"/resume/stream", api.ResumeRunRequest{Type: "accept"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var resumeTypes []string
	scanner = bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		resumeTypes = append(resumeTypes, event.Type)
	}
	assert.Equal(t, []string{"start", "tool_call", "tool_result", "done"}, resumeTypes)
}

func TestResumeStreamConflictBeforeEvents(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t,
		`{"tool_name": "Done", "tool_args": {"answer": "done"}}`,
	)

	out := decodeRun(t, postJSON(t, srv.URL+"/api/runs", api.StartRunRequest{Question: "hi"}))

	resp := postJSON(t, srv.URL+"/api/runs/"+out.RunID+"/resume/stream", api.ResumeRunRequest{Type: "accept"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
