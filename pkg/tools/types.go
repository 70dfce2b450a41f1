package tools

import (
	"context"
	"sort"
)

// ToolCall is a request to invoke a named tool with JSON-compatible
// arguments. The name must resolve in the catalog or execution fails with
// ErrUnknownTool.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Handler executes a tool call and returns its textual result. Errors are
// absorbed by the caller into the conversation, never fatal to a run.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool is one invokable capability.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`

	// RequiresApproval gates execution behind a human decision.
	RequiresApproval bool `json:"requires_approval,omitempty"`

	// AllowedResponses restricts which human decisions the approval
	// prompt offers. Empty means accept, edit, respond and ignore.
	AllowedResponses []string `json:"allowed_responses,omitempty"`

	Handler Handler `json:"-"`
}

// ObjectSchema builds a JSON schema for an object with the given
// properties, all of them required.
func ObjectSchema(properties map[string]any) map[string]any {
	required := make([]string, 0, len(properties))
	for name := range properties {
		required = append(required, name)
	}
	sort.Strings(required)
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// Schema builds a JSON schema for an object requiring only the named
// properties.
func Schema(properties map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	sort.Strings(required)
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// StringParam is a helper for the common single string property.
func StringParam(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

// IntParam is a helper for an integer property.
func IntParam(description string) map[string]any {
	return map[string]any{
		"type":        "integer",
		"description": description,
	}
}
