package local

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

const progressFileName = ".komavi-progress.json"

type savedProgress struct {
	Page      int  `json:"page"`
	Completed bool `json:"completed"`
}

// progressStore is the JSON sidecar keeping per-book read progress for
// one library directory. Every write rewrites the whole file; the data
// is tiny.
type progressStore struct {
	path string

	mu    sync.Mutex
	books map[string]savedProgress
}

func loadProgress(path string) (*progressStore, error) {
	store := &progressStore{path: path, books: make(map[string]savedProgress)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &store.books); err != nil {
		return nil, fmt.Errorf("parse progress file %s: %v", path, err)
	}
	return store, nil
}

func (s *progressStore) get(bookID string) (savedProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved, ok := s.books[bookID]
	return saved, ok
}

func (s *progressStore) set(bookID string, progress savedProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[bookID] = progress

	data, err := json.MarshalIndent(s.books, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write progress file %s: %w", s.path, err)
	}
	return nil
}
