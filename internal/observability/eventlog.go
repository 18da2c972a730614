package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Event is one line of the append-only queue event log.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // INFO, WARN, ERROR
	Type    string         `json:"type"`  // e.g. "queue.enqueued", "queue.claimed"
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// NewEvent builds an INFO-level event stamped with the current time.
func NewEvent(eventType string, data map[string]any) Event {
	return Event{
		Time:    time.Now().UTC(),
		Level:   "INFO",
		Type:    eventType,
		Message: eventType,
		Data:    data,
	}
}

// EventFilter narrows a Read to events matching every set criterion.
type EventFilter struct {
	Since *time.Time
	Until *time.Time
	Type  string
	Level string
}

func (f EventFilter) matches(e Event) bool {
	switch {
	case f.Since != nil && e.Time.Before(*f.Since):
		return false
	case f.Until != nil && e.Time.After(*f.Until):
		return false
	case f.Type != "" && e.Type != f.Type:
		return false
	case f.Level != "" && e.Level != f.Level:
		return false
	}
	return true
}

// EventLog is an append-only structured event stream with filtered reads.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Tail(n int) ([]Event, error)
	Close() error
}

// jsonlEventLog appends one JSON object per line. Reads re-open the file so
// a writer and concurrent readers never share a file offset.
type jsonlEventLog struct {
	path string

	mu  sync.Mutex
	out *os.File
}

// NewJSONLEventLog opens (or creates) the JSONL event log at path for
// appending.
func NewJSONLEventLog(path string) (EventLog, error) {
	out, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{path: path, out: out}, nil
}

func (l *jsonlEventLog) Write(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.out.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

// Read returns every logged event matching the filter, in write order.
// A log that does not exist yet reads as empty, not as an error.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	in, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = in.Close() }()

	var events []Event
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			// Torn writes from a crashed process are expected; skip them.
			continue
		}
		if filter.matches(e) {
			events = append(events, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}
	return events, nil
}

// Tail returns the newest n events, oldest first.
func (l *jsonlEventLog) Tail(n int) ([]Event, error) {
	events, err := l.Read(EventFilter{})
	if err != nil {
		return nil, err
	}
	if len(events) > n {
		events = events[len(events)-n:]
	}
	return events, nil
}

func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.out.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}
