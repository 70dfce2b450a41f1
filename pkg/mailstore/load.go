package mailstore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadMailbox reads a mailbox export: either a JSON array of emails or
// JSONL with one email per line.
func LoadMailbox(path string) ([]Email, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mailbox %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var emails []Email
		if err := json.Unmarshal(trimmed, &emails); err != nil {
			return nil, fmt.Errorf("parsing mailbox %s: %w", path, err)
		}
		return emails, nil
	}

	var emails []Email
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var email Email
		if err := json.Unmarshal([]byte(text), &email); err != nil {
			return nil, fmt.Errorf("parsing mailbox %s line %d: %w", path, line, err)
		}
		emails = append(emails, email)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading mailbox %s: %w", path, err)
	}
	return emails, nil
}
