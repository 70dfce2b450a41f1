package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"

	"github.com/inboxd/inboxd/pkg/model/provider"
	"github.com/inboxd/inboxd/pkg/tools"
)

// Names the completion service uses for the terminal pseudo-tools. They are
// not catalog entries; the engine maps them onto the Answer and AskUser
// decision variants.
const (
	doneToolName     = "Done"
	questionToolName = "Question"
)

// Engine produces one Decision per call. It is stateless and safe for
// concurrent use across runs; it never mutates the run.
type Engine struct {
	provider provider.Provider
	catalog  *tools.Catalog
}

func NewEngine(p provider.Provider, catalog *tools.Catalog) *Engine {
	return &Engine{provider: p, catalog: catalog}
}

// Decide renders the prompt for in, calls the completion service, and maps
// the output onto exactly one Decision variant. Unparseable output returns
// ErrParseFailure; the caller decides the fallback.
func (e *Engine) Decide(ctx context.Context, in Input) (Decision, error) {
	messages := BuildPrompt(e.catalog, in)

	raw, err := e.provider.CreateChatCompletion(ctx, messages)
	if err != nil {
		return Decision{}, fmt.Errorf("completion service: %w", err)
	}

	dec, err := e.parse(raw)
	if err != nil {
		slog.Warn("Tool selection unparseable", "error", err, "raw_length", len(raw))
		return Decision{}, err
	}

	if dec.Kind == KindInvoke {
		e.repairArguments(&dec.Call, in.Input)
	}

	return dec, nil
}

// toolRequest is the wire shape the prompts ask the model for.
type toolRequest struct {
	ToolName string         `json:"tool_name"`
	ToolArgs map[string]any `json:"tool_args"`
}

func (e *Engine) parse(raw string) (Decision, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return Decision{}, fmt.Errorf("%w: no JSON object in output", ErrParseFailure)
	}

	var req toolRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}
		slog.Debug("Repaired malformed decision JSON", "original_length", len(payload))
		if err := json.Unmarshal([]byte(repaired), &req); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}
	}

	if req.ToolName == "" {
		return Decision{}, fmt.Errorf("%w: missing tool_name", ErrParseFailure)
	}

	switch {
	case strings.EqualFold(req.ToolName, doneToolName):
		answer := tools.StringArg(req.ToolArgs, "answer")
		if answer == "" {
			answer = "Task completed."
		}
		return Decision{Kind: KindAnswer, Text: answer}, nil
	case strings.EqualFold(req.ToolName, questionToolName):
		question := tools.StringArg(req.ToolArgs, "question")
		if question == "" {
			return Decision{}, fmt.Errorf("%w: Question without a question", ErrParseFailure)
		}
		return Decision{Kind: KindAsk, Text: question}, nil
	default:
		return Decision{
			Kind: KindInvoke,
			Call: tools.ToolCall{
				ID:        "call_" + uuid.NewString(),
				Name:      req.ToolName,
				Arguments: req.ToolArgs,
			},
		}, nil
	}
}

// repairArguments fills required string arguments the model omitted with
// the current input text. Bounds the failure mode to "wrong content"
// rather than a failed turn.
func (e *Engine) repairArguments(call *tools.ToolCall, input string) {
	tool, ok := e.catalog.Get(call.Name)
	if !ok {
		return
	}

	for _, name := range requiredStringParams(tool) {
		if tools.StringArg(call.Arguments, name) != "" {
			continue
		}
		if call.Arguments == nil {
			call.Arguments = make(map[string]any)
		}
		slog.Info("Filling omitted required argument from input", "tool", call.Name, "argument", name)
		call.Arguments[name] = input
	}
}

func requiredStringParams(tool tools.Tool) []string {
	required, _ := tool.Parameters["required"].([]string)
	if required == nil {
		if anyList, ok := tool.Parameters["required"].([]any); ok {
			for _, v := range anyList {
				if s, ok := v.(string); ok {
					required = append(required, s)
				}
			}
		}
	}

	properties, _ := tool.Parameters["properties"].(map[string]any)

	var names []string
	for _, name := range required {
		prop, _ := properties[name].(map[string]any)
		if typ, _ := prop["type"].(string); typ == "string" {
			names = append(names, name)
		}
	}
	return names
}

// extractJSONObject returns the first top-level {...} span in raw, which
// tolerates code fences and prose around the JSON.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return raw[start : end+1]
}
