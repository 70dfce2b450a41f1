// Package runtime drives a run through its turn state machine: reconcile
// the log, ask the decision engine for the next action, execute or suspend
// on tools, and conclude with an answer or a clarification question.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/inboxd/inboxd/pkg/chat"
	"github.com/inboxd/inboxd/pkg/concurrent"
	"github.com/inboxd/inboxd/pkg/decision"
	"github.com/inboxd/inboxd/pkg/run"
	"github.com/inboxd/inboxd/pkg/tools"
)

const (
	// defaultMaxTurns bounds selection passes per input so a model that
	// keeps selecting tools cannot loop forever.
	defaultMaxTurns = 10

	// toolResultTruncation bounds each tool result before it enters the
	// log; rawOutputTruncation bounds the raw-output fallback answer.
	toolResultTruncation = 1500
	rawOutputTruncation  = 2000

	fallbackAnswer = "I could not complete the request."
)

var (
	// ErrInvalidState is returned when an operation does not apply to
	// the run's current state, e.g. resuming a run that is not
	// suspended.
	ErrInvalidState = errors.New("run is not in a valid state for this operation")

	// ErrNoPendingApproval is returned when a human decision arrives
	// with no approval request to resolve.
	ErrNoPendingApproval = errors.New("run has no pending approval request")

	// ErrDecisionNotAllowed is returned when the decision type is not
	// in the pending request's allowed responses.
	ErrDecisionNotAllowed = errors.New("decision type not allowed for this approval request")
)

// Runtime executes runs against a tool catalog and a decision engine,
// persisting every suspend and terminal state to the store. Safe for
// concurrent use; mutations are serialized per run.
type Runtime struct {
	engine   *decision.Engine
	catalog  *tools.Catalog
	store    run.Store
	locks    *concurrent.Map[string, *sync.Mutex]
	maxTurns int
}

func New(engine *decision.Engine, catalog *tools.Catalog, store run.Store) *Runtime {
	return &Runtime{
		engine:   engine,
		catalog:  catalog,
		store:    store,
		locks:    concurrent.NewMap[string, *sync.Mutex](),
		maxTurns: defaultMaxTurns,
	}
}

func (rt *Runtime) lockRun(id string) *sync.Mutex {
	mu, _ := rt.locks.LoadOrStore(id, &sync.Mutex{})
	return mu
}

// Start begins (or re-enters) a run with a new input and advances it until
// it concludes or suspends on an approval request. A non-empty runID
// re-enters an existing run, creating it if unknown; an empty runID
// creates a fresh one. events is optional.
func (rt *Runtime) Start(ctx context.Context, runID, input string, events chan<- Event) (*run.Run, error) {
	if input == "" {
		return nil, fmt.Errorf("%w: input cannot be empty", ErrInvalidState)
	}

	if runID == "" {
		runID = run.New("").ID
	}

	mu := rt.lockRun(runID)
	mu.Lock()
	defer mu.Unlock()

	r, err := rt.store.Get(ctx, runID)
	switch {
	case errors.Is(err, run.ErrNotFound):
		r = run.New(runID)
		if err := rt.store.Create(ctx, r); err != nil {
			return nil, fmt.Errorf("creating run: %w", err)
		}
	case err != nil:
		return nil, err
	}

	if r.State == run.StateAwaitingApproval {
		return nil, fmt.Errorf("%w: run %s is awaiting approval", ErrInvalidState, r.ID)
	}

	r.Reopen(input)
	emit(events, RunStarted(r.ID))

	return rt.advance(ctx, r, events)
}

// Resume applies a human decision to a suspended run and advances it until
// the next terminal or suspend point.
func (rt *Runtime) Resume(ctx context.Context, runID string, d run.HumanDecision, events chan<- Event) (*run.Run, error) {
	mu := rt.lockRun(runID)
	mu.Lock()
	defer mu.Unlock()

	r, err := rt.store.Get(ctx, runID)
	if err != nil {
		return nil, err
	}

	if r.State != run.StateAwaitingApproval {
		return nil, fmt.Errorf("%w: run %s is %s, not awaiting approval", ErrInvalidState, r.ID, r.State)
	}
	if r.Pending == nil {
		return nil, ErrNoPendingApproval
	}
	if !run.IsValidDecisionType(d.Type) {
		return nil, fmt.Errorf("%w: unknown decision type %q", ErrNoPendingApproval, d.Type)
	}
	if !decisionAllowed(r.Pending, d.Type) {
		return nil, fmt.Errorf("%w: %q", ErrDecisionNotAllowed, d.Type)
	}

	emit(events, RunStarted(r.ID))

	call, execute := applyDecision(r, d)
	if execute {
		rt.execute(ctx, r, call, events)
	}

	return rt.advance(ctx, r, events)
}

// Status returns a snapshot of the run.
func (rt *Runtime) Status(ctx context.Context, runID string) (*run.Run, error) {
	return rt.store.Get(ctx, runID)
}

// advance loops selection passes until the run concludes or suspends, then
// persists it. Called with the per-run lock held.
func (rt *Runtime) advance(ctx context.Context, r *run.Run, events chan<- Event) (*run.Run, error) {
	if err := rt.loop(ctx, r, events); err != nil {
		emit(events, Error(err))
		if saveErr := rt.store.Save(ctx, r); saveErr != nil {
			slog.Error("Saving run after failure", "run_id", r.ID, "error", saveErr)
		}
		return nil, err
	}

	if err := rt.store.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("saving run %s: %w", r.ID, err)
	}
	return r, nil
}

func (rt *Runtime) loop(ctx context.Context, r *run.Run, events chan<- Event) error {
	for turn := 0; turn < rt.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		view := run.Reconcile(r.Messages, r.Input)
		if view.IsNewInput {
			r.AddMessage(chat.UserMessage(r.Input))
		}

		in := decision.Input{
			PriorContext:    view.RenderHistory(),
			InputInContext:  view.InputInPriorContext,
			PreviousResults: view.PreviousResults,
			FreshResults:    view.FreshResults,
			Input:           r.Input,
		}

		dec, err := rt.engine.Decide(ctx, in)
		if err != nil {
			if errors.Is(err, decision.ErrParseFailure) {
				rt.concludeWithFallback(r, events)
				return nil
			}
			return err
		}

		switch dec.Kind {
		case decision.KindAnswer:
			rt.conclude(r, run.ResultAnswer, dec.Text, events)
			return nil

		case decision.KindAsk:
			rt.conclude(r, run.ResultQuestion, dec.Text, events)
			return nil

		case decision.KindInvoke:
			if in.Synthesis() {
				slog.Warn("Tool selected in synthesis mode", "run_id", r.ID, "tool", dec.Call.Name)
			}
			r.AddMessage(chat.AssistantToolCall(dec.Call))

			if rt.catalog.RequiresApproval(dec.Call.Name) {
				rt.suspend(r, dec.Call, events)
				return nil
			}
			rt.execute(ctx, r, dec.Call, events)
		}
	}

	slog.Warn("Turn budget exhausted", "run_id", r.ID, "max_turns", rt.maxTurns)
	rt.concludeWithFallback(r, events)
	return nil
}

// execute invokes the tool and appends the result to the log. Tool errors,
// unknown tools included, are absorbed as result content so the next
// selection pass can react to them.
func (rt *Runtime) execute(ctx context.Context, r *run.Run, call tools.ToolCall, events chan<- Event) {
	emit(events, ToolCall(call))

	out, err := rt.catalog.Invoke(ctx, call)
	if err != nil {
		slog.Error("Tool execution failed", "run_id", r.ID, "tool", call.Name, "error", err)
		out = fmt.Sprintf("Error: %v", err)
	} else {
		r.LastToolOutput = out
	}

	result := chat.Truncate(out, toolResultTruncation)
	r.AddMessage(chat.ToolResultMessage(call, result))
	emit(events, ToolResult(call, result))
}

func (rt *Runtime) suspend(r *run.Run, call tools.ToolCall, events chan<- Event) {
	tool, _ := rt.catalog.Get(call.Name)
	req := &run.ApprovalRequest{
		ToolCall:         call,
		Description:      Describe(call),
		AllowedResponses: allowedResponses(tool),
	}
	r.Pending = req
	r.State = run.StateAwaitingApproval
	slog.Info("Run suspended for approval", "run_id", r.ID, "tool", call.Name)
	emit(events, Interrupt(r.ID, req))
}

func (rt *Runtime) conclude(r *run.Run, kind run.ResultKind, text string, events chan<- Event) {
	r.Conclude(kind, text)
	emit(events, Done(r.ID, *r.Result))
}

// concludeWithFallback answers with the last raw tool output when one
// exists; the tool did its work even if the model could not report it.
func (rt *Runtime) concludeWithFallback(r *run.Run, events chan<- Event) {
	text := fallbackAnswer
	if r.LastToolOutput != "" {
		text = chat.Truncate(r.LastToolOutput, rawOutputTruncation)
	}
	rt.conclude(r, run.ResultAnswer, text, events)
}

func decisionAllowed(req *run.ApprovalRequest, t run.DecisionType) bool {
	if len(req.AllowedResponses) == 0 {
		return true
	}
	for _, allowed := range req.AllowedResponses {
		if allowed == t {
			return true
		}
	}
	return false
}

func allowedResponses(t tools.Tool) []run.DecisionType {
	if len(t.AllowedResponses) == 0 {
		return run.AllDecisionTypes
	}
	out := make([]run.DecisionType, 0, len(t.AllowedResponses))
	for _, s := range t.AllowedResponses {
		out = append(out, run.DecisionType(s))
	}
	return out
}

func emit(events chan<- Event, e Event) {
	if events == nil {
		return
	}
	events <- e
}
