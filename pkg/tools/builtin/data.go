package builtin

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// outboxRecord is one line of the outbox JSONL file: every sent mail and
// created draft is appended so outgoing traffic survives restarts.
type outboxRecord struct {
	Folder  string       `json:"folder"`
	Message EmailMessage `json:"message"`
	At      time.Time    `json:"at"`
}

// SetOutbox makes the service append every sent mail and created draft to
// the JSONL file at path.
func (s *LocalEmailService) SetOutbox(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = path
}

func appendOutbox(path, folder string, m EmailMessage) error {
	line, err := json.Marshal(outboxRecord{Folder: folder, Message: m, At: time.Now().UTC()})
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening outbox: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("writing outbox: %w", err)
	}
	return f.Close()
}

// LoadEvents reads the calendar seed file at path, a JSON array of events.
// Events without an ID are assigned one by NewLocalCalendarService.
func LoadEvents(path string) ([]Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading calendar file: %w", err)
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parsing calendar file %s: %w", path, err)
	}
	return events, nil
}
