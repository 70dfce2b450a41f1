// Package subagent runs a bounded tool loop over a restricted catalog on
// behalf of a supervisor tool. Unlike the top-level runtime it owns no run
// state and no approval gate; it chains leaf tools until the specialist
// answers or the iteration budget runs out.
package subagent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inboxd/inboxd/pkg/chat"
	"github.com/inboxd/inboxd/pkg/decision"
	"github.com/inboxd/inboxd/pkg/model/provider"
	"github.com/inboxd/inboxd/pkg/tools"
)

const (
	// maxIterations bounds the leaf-tool chain for one request.
	maxIterations = 5

	resultTruncation    = 1500
	rawOutputTruncation = 2000

	fallbackAnswer = "I could not complete the request."
)

// Loop executes one specialist's requests.
type Loop struct {
	engine       *decision.Engine
	catalog      *tools.Catalog
	systemPrompt string
}

func New(p provider.Provider, catalog *tools.Catalog, systemPrompt string) *Loop {
	return &Loop{
		engine:       decision.NewEngine(p, catalog),
		catalog:      catalog,
		systemPrompt: systemPrompt,
	}
}

// Run processes a single natural-language request and returns the
// specialist's textual answer. The first pass selects a tool; once any
// result exists the engine is in synthesis mode and must answer from it.
// Tool errors feed back into the loop as results; only completion-service
// failures are returned as errors.
func (l *Loop) Run(ctx context.Context, request string) (string, error) {
	var results []string
	var lastOutput string

	for i := 0; i < maxIterations; i++ {
		dec, err := l.engine.Decide(ctx, decision.Input{
			SystemPrompt: l.systemPrompt,
			FreshResults: results,
			Input:        request,
		})
		if err != nil {
			if errors.Is(err, decision.ErrParseFailure) {
				return l.fallback(lastOutput), nil
			}
			return "", err
		}

		switch dec.Kind {
		case decision.KindAnswer, decision.KindAsk:
			// A specialist's clarification question bubbles up as its
			// answer text; the supervisor decides what to do with it.
			return dec.Text, nil

		case decision.KindInvoke:
			if len(results) > 0 {
				slog.Warn("Tool selected in synthesis mode", "tool", dec.Call.Name)
			}
			out, err := l.catalog.Invoke(ctx, dec.Call)
			if err != nil {
				slog.Error("Leaf tool failed", "tool", dec.Call.Name, "error", err)
				out = fmt.Sprintf("Error: %v", err)
			} else {
				lastOutput = out
			}
			results = append(results, fmt.Sprintf("Tool '%s' returned: %s", dec.Call.Name, chat.Truncate(out, resultTruncation)))
		}
	}

	slog.Warn("Iteration budget exhausted", "request_length", len(request))
	return l.fallback(lastOutput), nil
}

func (l *Loop) fallback(lastOutput string) string {
	if lastOutput != "" {
		return chat.Truncate(lastOutput, rawOutputTruncation)
	}
	return fallbackAnswer
}
