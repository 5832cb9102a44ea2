package repo

import "context"

// PersonaRepo resolves and manages per-session persona bindings
type PersonaRepo interface {
	// PersonaPrompt returns the persona description bound to the session,
	// or "" when the session has no binding
	PersonaPrompt(ctx context.Context, sessionID string) (string, error)
	// Binding returns the bound persona name, or "" when unbound
	Binding(ctx context.Context, sessionID string) (string, error)
	// Bind associates the session with a named persona
	Bind(ctx context.Context, sessionID, personaName string) error
	// Unbind removes the session's persona binding
	Unbind(ctx context.Context, sessionID string) error
	Close() error
}
