package domain

import (
	"encoding/json"
	"strings"
)

const (
	// DefaultInterest is assumed when the classifier omits an interest level
	DefaultInterest = "normal"
	// DefaultFeeling is assumed when the classifier omits a feeling
	DefaultFeeling = "neutral"
)

// Verdict is the decision extracted from one classifier response.
// It is never persisted on its own; it either folds into a Turn's state
// or drives control flow and is discarded.
type Verdict struct {
	ShouldReply *bool  `json:"should_reply"`
	Reason      string `json:"reason"`
	Interest    string `json:"interest"`
	Feeling     string `json:"feeling"`
}

// Reply reports the reply decision; an absent should_reply field means yes
func (v *Verdict) Reply() bool {
	return v.ShouldReply == nil || *v.ShouldReply
}

// State folds the verdict into a turn annotation
func (v *Verdict) State() *TurnState {
	return &TurnState{Interest: v.Interest, Feeling: v.Feeling}
}

// ParseVerdict extracts a Verdict from arbitrary classifier output.
// The classifier returns free text that usually, but not always, embeds a
// JSON object; the substring from the first '{' through the last '}' is
// decoded. Returns ok=false when no such substring exists or decoding
// fails; the caller must then leave the pipeline untouched.
func ParseVerdict(text string) (Verdict, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Verdict{}, false
	}

	var v Verdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return Verdict{}, false
	}

	if v.Interest == "" {
		v.Interest = DefaultInterest
	}
	if v.Feeling == "" {
		v.Feeling = DefaultFeeling
	}
	return v, true
}
