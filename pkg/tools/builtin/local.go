package builtin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// LocalEmailService is an in-process mailbox, used when no external mail
// backend is configured. Sent mail and drafts accumulate in their folders
// and, when an outbox path is set, in a JSONL file on disk.
type LocalEmailService struct {
	mu      sync.Mutex
	folders map[string][]EmailMessage
	outbox  string
}

func NewLocalEmailService(inbox ...EmailMessage) *LocalEmailService {
	for i := range inbox {
		if inbox[i].ID == "" {
			inbox[i].ID = uuid.NewString()
		}
	}
	return &LocalEmailService{
		folders: map[string][]EmailMessage{"inbox": inbox},
	}
}

func (s *LocalEmailService) SendMail(_ context.Context, d Draft) (string, error) {
	return s.append("sent", d)
}

func (s *LocalEmailService) CreateDraft(_ context.Context, d Draft) (string, error) {
	return s.append("drafts", d)
}

func (s *LocalEmailService) append(folder string, d Draft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := EmailMessage{
		ID:      uuid.NewString(),
		To:      d.To,
		Subject: d.Subject,
		Body:    d.Body,
	}
	s.folders[folder] = append(s.folders[folder], m)
	if s.outbox != "" {
		if err := appendOutbox(s.outbox, folder, m); err != nil {
			return "", err
		}
	}
	return m.ID, nil
}

func (s *LocalEmailService) ListMessages(_ context.Context, folder string, top int) ([]EmailMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages, ok := s.folders[folder]
	if !ok {
		return nil, fmt.Errorf("unknown folder %q", folder)
	}
	if top > 0 && len(messages) > top {
		messages = messages[:top]
	}
	out := make([]EmailMessage, len(messages))
	copy(out, messages)
	return out, nil
}

func (s *LocalEmailService) GetMessage(_ context.Context, id string) (*EmailMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, messages := range s.folders {
		for _, m := range messages {
			if m.ID == id {
				copied := m
				return &copied, nil
			}
		}
	}
	return nil, fmt.Errorf("message %q not found", id)
}

// LocalCalendarService is an in-process calendar backend.
type LocalCalendarService struct {
	mu     sync.Mutex
	events map[string]Event
}

func NewLocalCalendarService(events ...Event) *LocalCalendarService {
	byID := make(map[string]Event, len(events))
	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		byID[e.ID] = e
	}
	return &LocalCalendarService{events: byID}
}

func (s *LocalCalendarService) CalendarView(_ context.Context, start, end string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event
	for _, e := range s.events {
		// ISO 8601 timestamps order lexicographically.
		if e.Start >= start && e.Start <= end {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out, nil
}

func (s *LocalCalendarService) ListEvents(_ context.Context, top int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	sortEvents(out)
	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out, nil
}

func (s *LocalCalendarService) GetEvent(_ context.Context, id string) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %q not found", id)
	}
	return &e, nil
}

func (s *LocalCalendarService) CreateEvent(_ context.Context, e Event) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.events[e.ID] = e
	return e.ID, nil
}

func (s *LocalCalendarService) UpdateEvent(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[e.ID]
	if !ok {
		return fmt.Errorf("event %q not found", e.ID)
	}
	if e.Subject != "" {
		existing.Subject = e.Subject
	}
	if e.Start != "" {
		existing.Start = e.Start
	}
	if e.End != "" {
		existing.End = e.End
	}
	if e.Attendees != "" {
		existing.Attendees = e.Attendees
	}
	s.events[e.ID] = existing
	return nil
}

func (s *LocalCalendarService) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("event %q not found", id)
	}
	delete(s.events, id)
	return nil
}

func sortEvents(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Start < events[j].Start
	})
}
