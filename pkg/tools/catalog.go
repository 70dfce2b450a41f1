package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrUnknownTool is returned when a tool call names a tool that is not in
// the catalog.
var ErrUnknownTool = errors.New("unknown tool")

// Catalog is the static registry of tools available to one selection loop.
// It is built once at startup (approval overrides included) and safe for
// concurrent use afterwards.
type Catalog struct {
	order  []string
	byName map[string]Tool
}

func NewCatalog(ts ...Tool) *Catalog {
	c := &Catalog{byName: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		if _, dup := c.byName[t.Name]; dup {
			slog.Warn("Duplicate tool registration ignored", "tool", t.Name)
			continue
		}
		c.order = append(c.order, t.Name)
		c.byName[t.Name] = t
	}
	return c
}

func (c *Catalog) Get(name string) (Tool, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// Tools returns the tools in registration order.
func (c *Catalog) Tools() []Tool {
	ts := make([]Tool, 0, len(c.order))
	for _, name := range c.order {
		ts = append(ts, c.byName[name])
	}
	return ts
}

// SetApproval overrides the approval requirement of the named tool and
// reports whether the tool exists. Overrides are applied at startup,
// before the catalog is shared.
func (c *Catalog) SetApproval(name string, required bool) bool {
	t, ok := c.byName[name]
	if !ok {
		return false
	}
	t.RequiresApproval = required
	c.byName[name] = t
	return true
}

func (c *Catalog) RequiresApproval(name string) bool {
	t, ok := c.byName[name]
	return ok && t.RequiresApproval
}

// Descriptions renders the "- name: description" listing used in selection
// prompts.
func (c *Catalog) Descriptions() string {
	var b strings.Builder
	for _, name := range c.order {
		fmt.Fprintf(&b, "- %s: %s\n", name, c.byName[name].Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Invoke executes the named tool. An unresolvable name returns
// ErrUnknownTool; handler errors are returned as-is for the caller to
// absorb into the conversation.
func (c *Catalog) Invoke(ctx context.Context, call ToolCall) (string, error) {
	t, ok := c.byName[call.Name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
	}
	if t.Handler == nil {
		return "", fmt.Errorf("tool %q has no handler", call.Name)
	}

	slog.Debug("Invoking tool", "tool", call.Name, "call_id", call.ID)
	return t.Handler(ctx, call.Arguments)
}
