package events

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store durably records persistent events and replays them on cold
// start. The default implementation appends one JSON object per line to
// a file, per the fabric's append-only event-file contract; nothing in
// this package requires a database.
type Store interface {
	Append(Event) error
	ReadAll() ([]Event, error)
	Close() error
}

// FileStore is a JSON-Lines-backed Store. Path defaults to a file inside
// a per-process temporary directory when empty, per the "never hard-code
// the persistence path" design note.
type FileStore struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// NewFileStore opens (creating if necessary) the JSONL file at path for
// appending, and keeps it open for the lifetime of the store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		dir, err := os.MkdirTemp("", "fabric-events-")
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "events.jsonl")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, f: f}, nil
}

// wireEvent is the on-disk JSON Lines schema, one event per line.
// Priority is serialized as its integer value.
type wireEvent struct {
	EventID         string         `json:"event_id"`
	EventType       EventType      `json:"event_type"`
	Category        Category       `json:"category"`
	SourceComponent string         `json:"source_component"`
	Data            map[string]any `json:"data"`
	Priority        int            `json:"priority"`
	Timestamp       string         `json:"timestamp"`
	IsPersistent    bool           `json:"is_persistent"`
}

func toWire(e Event) wireEvent {
	return wireEvent{
		EventID:         e.EventID.String(),
		EventType:       e.Type,
		Category:        e.Category,
		SourceComponent: e.SourceComponent,
		Data:            e.Data,
		Priority:        int(e.Priority),
		Timestamp:       e.Timestamp.Format(rfc3339Milli),
		IsPersistent:    e.IsPersistent,
	}
}

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00"

func fromWire(w wireEvent) (Event, error) {
	id, err := uuid.Parse(w.EventID)
	if err != nil {
		return Event{}, err
	}
	ts, err := time.Parse(rfc3339Milli, w.Timestamp)
	if err != nil {
		ts, err = time.Parse(time.RFC3339, w.Timestamp)
		if err != nil {
			return Event{}, err
		}
	}
	return Event{
		EventID:         id,
		Type:            w.EventType,
		Category:        w.Category,
		SourceComponent: w.SourceComponent,
		Data:            w.Data,
		Priority:        Priority(w.Priority),
		Timestamp:       ts,
		IsPersistent:    w.IsPersistent,
	}, nil
}

// Append writes a single JSON line for e, flushing to disk before
// returning, so persistence genuinely precedes dispatch to subscribers.
func (s *FileStore) Append(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(toWire(e))
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := s.f.Write(line); err != nil {
		return err
	}
	return s.f.Sync()
}

// ReadAll parses every event in the file, oldest first.
func (s *FileStore) ReadAll() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var out []Event
	scanner := bufio.NewScanner(s.f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var w wireEvent
		if err := json.Unmarshal(line, &w); err != nil {
			continue
		}
		e, err := fromWire(w)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if _, err := s.f.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the underlying file handle.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
