// Package audit keeps a local JSONL journal of every entraguard run.
//
// One line is appended to ~/.entraguard/audit.log per invocation, recording
// the operation, tenant, result, exit code, and a correlation ID that also
// appears in verbose output. Passwords and tokens are never written here.
package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	Timestamp     string            `json:"timestamp"`
	Operation     string            `json:"operation"`
	Tenant        string            `json:"tenant,omitempty"`
	Args          []string          `json:"args"`
	Result        string            `json:"result"`
	ExitCode      int               `json:"exitCode"`
	DurationMs    int64             `json:"durationMs"`
	CorrelationID string            `json:"correlationId"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewCorrelationID returns a fresh ID for tying a run's audit entry to its
// verbose log output.
func NewCorrelationID() string {
	return uuid.NewString()
}

// BuildEvent assembles an audit event for a completed run.
func BuildEvent(args []string, correlationID, result string, exitCode int, duration time.Duration) Event {
	op, tenant := inferFromArgs(args)
	return Event{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Operation:     op,
		Tenant:        tenant,
		Args:          args,
		Result:        result,
		ExitCode:      exitCode,
		DurationMs:    duration.Milliseconds(),
		CorrelationID: correlationID,
	}
}

// Write appends the event to the user audit journal.
func Write(event Event) error {
	path, err := journalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	line, err := json.Marshal(event)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}

// ReadJournal returns all recorded events, oldest first. A missing journal
// is not an error.
func ReadJournal() ([]Event, error) {
	path, err := journalPath()
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var out []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(line), &event); err == nil {
			out = append(out, event)
		}
	}
	return out, scanner.Err()
}

func journalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".entraguard", "audit.log"), nil
}

func inferFromArgs(args []string) (operation, tenant string) {
	operation = "root"
	for i := 1; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			continue
		}
		operation = args[i]
		break
	}
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "--tenant-id" {
			tenant = args[i+1]
		}
	}
	return
}
