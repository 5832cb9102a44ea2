package repo

import "github.com/mewlark/interest-bridge/internal/biz/domain"

// HistoryRepo is the per-session conversation log.
// Append/All/Clear operate on the in-memory cache; Persist and Restore
// move the whole mapping to and from durable storage.
type HistoryRepo interface {
	// Append adds a turn to the session's log, creating it on first use
	Append(sessionID string, turn domain.Turn)
	// All returns the session's turns in insertion order; empty when absent
	All(sessionID string) []domain.Turn
	// Clear removes the session's log, reporting whether anything was removed
	Clear(sessionID string) bool
	// Sessions lists known session identifiers, sorted
	Sessions() []string
	// Persist trims every session to the retention limit and rewrites the
	// durable document
	Persist() error
	// Restore replaces the cache with the durable document's contents
	Restore() error
}
