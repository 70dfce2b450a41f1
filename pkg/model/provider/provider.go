// Package provider abstracts the external completion service. The decision
// engine only needs "given messages, return one completion"; everything
// about transport, auth and model choice lives behind this interface so
// tests can substitute fakes.
package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inboxd/inboxd/pkg/chat"
	"github.com/inboxd/inboxd/pkg/config"
	"github.com/inboxd/inboxd/pkg/model/provider/openai"
)

type Provider interface {
	// CreateChatCompletion returns a single non-streamed completion for
	// the given messages. The completion is expected to be a JSON
	// object; providers request JSON output mode where supported.
	CreateChatCompletion(ctx context.Context, messages []chat.Message) (string, error)
}

func New(cfg *config.ModelConfig) (Provider, error) {
	slog.Debug("Creating model provider", "provider", cfg.Provider, "model", cfg.Model)

	switch cfg.Provider {
	case "openai":
		return openai.NewClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}
