package domain

import "testing"

func TestNewUserTurnDirectMention(t *testing.T) {
	turn := NewUserTurn("u1", "alice", "hello", true)
	if turn.Content != "[Direct Mention] hello" {
		t.Errorf("expected mention marker, got %q", turn.Content)
	}
	if !turn.IsUser() {
		t.Error("expected a user turn")
	}
	if turn.SenderID != "u1" || turn.SenderName != "alice" {
		t.Errorf("sender fields lost: %q/%q", turn.SenderID, turn.SenderName)
	}
}

func TestNewUserTurnPlain(t *testing.T) {
	turn := NewUserTurn("u1", "alice", "hello", false)
	if turn.Content != "hello" {
		t.Errorf("unexpected content: %q", turn.Content)
	}
	if turn.State != nil {
		t.Error("user turns carry no state")
	}
}

func TestNewAssistantTurn(t *testing.T) {
	turn := NewAssistantTurn("hi", &TurnState{Interest: "high", Feeling: "happy"})
	if turn.IsUser() {
		t.Error("expected an assistant turn")
	}
	if turn.State == nil || turn.State.Interest != "high" {
		t.Error("state annotation lost")
	}

	bare := NewAssistantTurn("hi", nil)
	if bare.State != nil {
		t.Error("expected no state annotation")
	}
}
