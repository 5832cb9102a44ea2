package data

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestPersonaStore(t *testing.T) *PersonaStore {
	t.Helper()
	store, err := NewPersonaStore(filepath.Join(t.TempDir(), "personas.db"), map[string]string{
		"mew":     "A playful cat persona.",
		"serious": "A terse, factual persona.",
	})
	if err != nil {
		t.Fatalf("failed to open persona store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPersonaBindRoundTrip(t *testing.T) {
	store := newTestPersonaStore(t)
	ctx := context.Background()

	if err := store.Bind(ctx, "s1", "mew"); err != nil {
		t.Fatalf("bind failed: %v", err)
	}

	name, err := store.Binding(ctx, "s1")
	if err != nil {
		t.Fatalf("binding lookup failed: %v", err)
	}
	if name != "mew" {
		t.Errorf("expected binding 'mew', got %q", name)
	}

	prompt, err := store.PersonaPrompt(ctx, "s1")
	if err != nil {
		t.Fatalf("prompt lookup failed: %v", err)
	}
	if prompt != "A playful cat persona." {
		t.Errorf("unexpected prompt: %q", prompt)
	}
}

func TestPersonaRebind(t *testing.T) {
	store := newTestPersonaStore(t)
	ctx := context.Background()

	if err := store.Bind(ctx, "s1", "mew"); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if err := store.Bind(ctx, "s1", "serious"); err != nil {
		t.Fatalf("rebind failed: %v", err)
	}

	name, err := store.Binding(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if name != "serious" {
		t.Errorf("expected rebind to 'serious', got %q", name)
	}
}

func TestPersonaUnknownName(t *testing.T) {
	store := newTestPersonaStore(t)
	if err := store.Bind(context.Background(), "s1", "nope"); err == nil {
		t.Error("expected an error for an unknown persona")
	}
}

func TestPersonaUnbound(t *testing.T) {
	store := newTestPersonaStore(t)
	ctx := context.Background()

	prompt, err := store.PersonaPrompt(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if prompt != "" {
		t.Errorf("expected empty prompt for unbound session, got %q", prompt)
	}
}

func TestPersonaUnbind(t *testing.T) {
	store := newTestPersonaStore(t)
	ctx := context.Background()

	if err := store.Bind(ctx, "s1", "mew"); err != nil {
		t.Fatal(err)
	}
	if err := store.Unbind(ctx, "s1"); err != nil {
		t.Fatalf("unbind failed: %v", err)
	}

	name, err := store.Binding(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if name != "" {
		t.Errorf("expected unbound session, got %q", name)
	}
}
