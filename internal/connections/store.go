package connections

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Snapshot is the persisted linked-account state. Connection values
// are opaque tokens; the planner only checks key presence to decide
// whether a service still needs linking.
type Snapshot struct {
	UserID      string                     `json:"user_id"`
	Connections map[string]json.RawMessage `json:"connections"`
}

// Linked reports whether a service already has a connection token.
func (s Snapshot) Linked(service string) bool {
	_, ok := s.Connections[service]
	return ok
}

// Store abstracts snapshot persistence.
// Load must treat a missing or corrupt file as "nothing linked yet".
// Save is a full overwrite.
type Store interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
}

type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure dir: %w", err)
		}
	}
	// Touch file if not exists
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("touch file: %w", err)
	}
	_ = f.Close()
	return &FileStore{path: path}, nil
}

func (s *FileStore) Load() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{Connections: map[string]json.RawMessage{}}
	f, err := os.Open(s.path)
	if err != nil {
		// absent -> start fresh
		return snap, nil
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
		}
	}(f)
	dec := json.NewDecoder(f)
	if err := dec.Decode(&snap); err != nil {
		// empty or malformed -> start fresh
		return Snapshot{Connections: map[string]json.RawMessage{}}, nil
	}
	if snap.Connections == nil {
		snap.Connections = map[string]json.RawMessage{}
	}
	return snap, nil
}

func (s *FileStore) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open write: %w", err)
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
		}
	}(f)
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
