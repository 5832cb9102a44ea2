package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mewlark/interest-bridge/internal/biz/domain"
	"github.com/mewlark/interest-bridge/internal/biz/repo"
)

// HistoryStore keeps every session's conversation log in memory and mirrors
// the whole mapping into one JSON document on Persist
type HistoryStore struct {
	mu        sync.Mutex
	logs      map[string][]domain.Turn
	path      string
	maxLength int
}

// NewHistoryStore creates a history store persisting to path, keeping at
// most maxLength turns per session across persists. A maxLength of 0
// disables trimming; negative values fall back to the default of 20.
func NewHistoryStore(path string, maxLength int) *HistoryStore {
	if maxLength < 0 {
		maxLength = 20
	}
	return &HistoryStore{
		logs:      make(map[string][]domain.Turn),
		path:      path,
		maxLength: maxLength,
	}
}

var _ repo.HistoryRepo = (*HistoryStore)(nil)

// Append adds a turn to the session's log, creating it on first use
func (s *HistoryStore) Append(sessionID string, turn domain.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[sessionID] = append(s.logs[sessionID], turn)
}

// All returns a copy of the session's turns in insertion order
func (s *HistoryStore) All(sessionID string) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[sessionID]
	out := make([]domain.Turn, len(log))
	copy(out, log)
	return out
}

// Clear removes the session's log, reporting whether anything was removed
func (s *HistoryStore) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logs[sessionID]; !ok {
		return false
	}
	delete(s.logs, sessionID)
	return true
}

// Sessions lists known session identifiers, sorted
func (s *HistoryStore) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.logs))
	for id := range s.logs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Persist trims every session to the most recent maxLength turns and
// atomically rewrites the JSON document with the whole mapping
func (s *HistoryStore) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, log := range s.logs {
		if s.maxLength > 0 && len(log) > s.maxLength {
			trimmed := make([]domain.Turn, s.maxLength)
			copy(trimmed, log[len(log)-s.maxLength:])
			s.logs[id] = trimmed
		}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	payload, err := json.MarshalIndent(s.logs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	// Write to a temp file first so a crash mid-write never truncates
	// the existing document
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

// Restore replaces the in-memory cache with the document's contents.
// A missing file yields an empty store and nil; a malformed file yields an
// empty store and the decode error, for logging by the caller.
func (s *HistoryStore) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = make(map[string][]domain.Turn)

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read history file: %w", err)
	}

	logs := make(map[string][]domain.Turn)
	if err := json.Unmarshal(payload, &logs); err != nil {
		return fmt.Errorf("failed to decode history file: %w", err)
	}
	s.logs = logs
	return nil
}
