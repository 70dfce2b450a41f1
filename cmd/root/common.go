package root

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/inboxd/inboxd/pkg/config"
	"github.com/inboxd/inboxd/pkg/decision"
	"github.com/inboxd/inboxd/pkg/mailstore"
	"github.com/inboxd/inboxd/pkg/model/provider"
	"github.com/inboxd/inboxd/pkg/run"
	"github.com/inboxd/inboxd/pkg/runtime"
	"github.com/inboxd/inboxd/pkg/tools/builtin"
)

const defaultConfigFile = "inboxd.yaml"

// loadConfig resolves the effective configuration: an explicit --config
// path, then ./inboxd.yaml if present, then built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return config.Load(defaultConfigFile)
	}
	return config.Default(), nil
}

// services holds everything a command needs to drive runs. Close releases
// the store and the search index.
type services struct {
	runtime *runtime.Runtime
	store   run.Store
	index   *mailstore.Index

	closers []func() error
}

func (s *services) Close() {
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			slog.Error("Failed to close service", "error", err)
		}
	}
}

func buildServices(cfg *config.Config) (*services, error) {
	p, err := provider.New(&cfg.Model)
	if err != nil {
		return nil, err
	}

	s := &services{}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	if cfg.Store.Path != "" {
		store, err := run.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("opening run store: %w", err)
		}
		s.store = store
		s.closers = append(s.closers, store.Close)
	} else {
		s.store = run.NewInMemoryStore()
	}

	if cfg.Index.Path != "" {
		index, err := mailstore.Open(cfg.Index.Path)
		if err != nil {
			return nil, fmt.Errorf("opening email index: %w", err)
		}
		s.index = index
	} else {
		index, err := mailstore.OpenMemOnly()
		if err != nil {
			return nil, fmt.Errorf("opening email index: %w", err)
		}
		s.index = index
	}
	s.closers = append(s.closers, s.index.Close)

	email, calendar, err := buildBackends(&cfg.Data)
	if err != nil {
		return nil, err
	}

	catalog := builtin.SupervisorCatalog(p, email, calendar, s.index)
	for _, name := range cfg.Approval.Require {
		if !catalog.SetApproval(name, true) {
			slog.Warn("Approval override for unknown tool", "tool", name)
		}
	}
	for _, name := range cfg.Approval.Exempt {
		if !catalog.SetApproval(name, false) {
			slog.Warn("Approval override for unknown tool", "tool", name)
		}
	}

	engine := decision.NewEngine(p, catalog)
	s.runtime = runtime.New(engine, catalog, s.store)
	ok = true
	return s, nil
}

// buildBackends creates the local email and calendar services, seeded from
// the configured data files.
func buildBackends(data *config.DataConfig) (*builtin.LocalEmailService, *builtin.LocalCalendarService, error) {
	var inbox []builtin.EmailMessage
	if data.MailboxPath != "" {
		emails, err := mailstore.LoadMailbox(data.MailboxPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading mailbox: %w", err)
		}
		for _, e := range emails {
			inbox = append(inbox, builtin.EmailMessage{
				ID:      e.ID,
				From:    e.Author,
				To:      e.To,
				Subject: e.Subject,
				Body:    e.Body,
				Date:    e.Date,
			})
		}
	}

	email := builtin.NewLocalEmailService(inbox...)
	if data.OutboxPath != "" {
		email.SetOutbox(data.OutboxPath)
	}

	var events []builtin.Event
	if data.CalendarPath != "" {
		var err error
		events, err = builtin.LoadEvents(data.CalendarPath)
		if err != nil {
			return nil, nil, err
		}
	}
	calendar := builtin.NewLocalCalendarService(events...)

	return email, calendar, nil
}
