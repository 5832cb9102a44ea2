package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mewlark/interest-bridge/internal/biz/repo"
)

// PersonaStore binds sessions to named personas in SQLite. The persona
// prompt texts themselves come from the prompts config; the table only
// records which name each session uses.
type PersonaStore struct {
	db      *sql.DB
	prompts map[string]string
}

// NewPersonaStore opens (or creates) the binding database. prompts maps
// persona names to their description texts.
func NewPersonaStore(dbPath string, prompts map[string]string) (*PersonaStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS session_personas (
			session_id TEXT PRIMARY KEY,
			persona_name TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &PersonaStore{db: db, prompts: prompts}, nil
}

var _ repo.PersonaRepo = (*PersonaStore)(nil)

// Close closes the database connection
func (s *PersonaStore) Close() error {
	return s.db.Close()
}

// Personas lists the persona names known to the prompts config
func (s *PersonaStore) Personas() []string {
	names := make([]string, 0, len(s.prompts))
	for name := range s.prompts {
		names = append(names, name)
	}
	return names
}

// Known reports whether a persona name exists in the prompts config
func (s *PersonaStore) Known(personaName string) bool {
	_, ok := s.prompts[personaName]
	return ok
}

// Binding returns the persona name bound to the session, or "" when unbound
func (s *PersonaStore) Binding(ctx context.Context, sessionID string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
		SELECT persona_name FROM session_personas WHERE session_id = ?
	`, sessionID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query binding: %w", err)
	}
	return name, nil
}

// PersonaPrompt resolves the session's binding to its description text.
// Unbound sessions, and bindings whose persona no longer exists in the
// prompts config, resolve to "".
func (s *PersonaStore) PersonaPrompt(ctx context.Context, sessionID string) (string, error) {
	name, err := s.Binding(ctx, sessionID)
	if err != nil || name == "" {
		return "", err
	}
	return s.prompts[name], nil
}

// Bind associates the session with a named persona
func (s *PersonaStore) Bind(ctx context.Context, sessionID, personaName string) error {
	if !s.Known(personaName) {
		return fmt.Errorf("unknown persona: %s", personaName)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_personas (session_id, persona_name, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			persona_name = excluded.persona_name,
			updated_at = excluded.updated_at
	`, sessionID, personaName, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to bind persona: %w", err)
	}
	return nil
}

// Unbind removes the session's persona binding
func (s *PersonaStore) Unbind(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM session_personas WHERE session_id = ?
	`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to unbind persona: %w", err)
	}
	return nil
}
