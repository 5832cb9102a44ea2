package domain

import "testing"

func TestParseVerdictEmbeddedInProse(t *testing.T) {
	v, ok := ParseVerdict(`sure, here you go: {"should_reply": false, "reason": "busy"}`)
	if !ok {
		t.Fatal("expected a verdict")
	}
	if v.Reply() {
		t.Error("expected should_reply=false to suppress")
	}
	if v.Reason != "busy" {
		t.Errorf("expected reason 'busy', got %q", v.Reason)
	}
	if v.Interest != "normal" || v.Feeling != "neutral" {
		t.Errorf("expected defaults filled, got %q/%q", v.Interest, v.Feeling)
	}
}

func TestParseVerdictNoJSON(t *testing.T) {
	if _, ok := ParseVerdict("no json here"); ok {
		t.Error("expected no verdict for plain text")
	}
	if _, ok := ParseVerdict(""); ok {
		t.Error("expected no verdict for empty text")
	}
}

func TestParseVerdictMalformed(t *testing.T) {
	if _, ok := ParseVerdict("{broken"); ok {
		t.Error("expected no verdict for unterminated object")
	}
	if _, ok := ParseVerdict("prefix { not json } suffix"); ok {
		t.Error("expected no verdict for non-JSON braces")
	}
}

func TestParseVerdictAbsentShouldReply(t *testing.T) {
	v, ok := ParseVerdict(`{"interest": "high", "feeling": "curious"}`)
	if !ok {
		t.Fatal("expected a verdict")
	}
	if !v.Reply() {
		t.Error("absent should_reply must default to reply")
	}
	if v.Interest != "high" || v.Feeling != "curious" {
		t.Errorf("unexpected state: %q/%q", v.Interest, v.Feeling)
	}
}

func TestParseVerdictGreedyBraces(t *testing.T) {
	// surrounding braces in prose still resolve as long as the outer
	// substring decodes
	text := `{"should_reply": true, "reason": "mentions {topic}"}`
	v, ok := ParseVerdict(text)
	if !ok {
		t.Fatal("expected a verdict")
	}
	if v.Reason != "mentions {topic}" {
		t.Errorf("unexpected reason: %q", v.Reason)
	}
}
