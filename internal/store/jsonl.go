package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONLStore appends records as JSON lines on local disk. It serves as the
// audit sink when no record-store API is configured, so a missing downstream
// never means a missing trail.
type JSONLStore struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

type jsonlRecord struct {
	Collection string    `json:"collection"`
	WrittenAt  time.Time `json:"written_at"`
	Record     any       `json:"record"`
}

// NewJSONLStore creates/opens the target file and returns the store.
func NewJSONLStore(path string) (*JSONLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLStore{file: file, enc: json.NewEncoder(file)}, nil
}

// CreateRecord appends one line.
func (s *JSONLStore) CreateRecord(_ context.Context, collection string, record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(jsonlRecord{Collection: collection, WrittenAt: time.Now().UTC(), Record: record})
}

// Close flushes and closes the file handle.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
