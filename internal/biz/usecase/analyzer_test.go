package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/mewlark/interest-bridge/internal/biz/domain"
	"github.com/mewlark/interest-bridge/internal/conf"
)

// mockHistory is an in-memory HistoryRepo that counts persists
type mockHistory struct {
	logs         map[string][]domain.Turn
	persistCount int
	persistErr   error
}

func newMockHistory() *mockHistory {
	return &mockHistory{logs: make(map[string][]domain.Turn)}
}

func (m *mockHistory) Append(sessionID string, turn domain.Turn) {
	m.logs[sessionID] = append(m.logs[sessionID], turn)
}

func (m *mockHistory) All(sessionID string) []domain.Turn {
	out := make([]domain.Turn, len(m.logs[sessionID]))
	copy(out, m.logs[sessionID])
	return out
}

func (m *mockHistory) Clear(sessionID string) bool {
	if _, ok := m.logs[sessionID]; !ok {
		return false
	}
	delete(m.logs, sessionID)
	return true
}

func (m *mockHistory) Sessions() []string {
	ids := make([]string, 0, len(m.logs))
	for id := range m.logs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *mockHistory) Persist() error {
	m.persistCount++
	return m.persistErr
}

func (m *mockHistory) Restore() error { return nil }

// mockClassifier returns a canned response and remembers the last prompt
type mockClassifier struct {
	response   string
	err        error
	lastPrompt string
}

func (m *mockClassifier) Complete(_ context.Context, prompt string) (string, error) {
	m.lastPrompt = prompt
	return m.response, m.err
}

// mockPersona resolves every session to a fixed prompt
type mockPersona struct {
	prompt string
	err    error
}

func (m *mockPersona) PersonaPrompt(context.Context, string) (string, error) {
	return m.prompt, m.err
}
func (m *mockPersona) Binding(context.Context, string) (string, error) { return "", nil }
func (m *mockPersona) Bind(context.Context, string, string) error      { return nil }
func (m *mockPersona) Unbind(context.Context, string) error            { return nil }
func (m *mockPersona) Close() error                                    { return nil }

func newTestRequest() *Request {
	return &Request{
		SessionID:    "group:g1",
		GroupID:      "g1",
		SenderID:     "u1",
		SenderName:   "alice",
		Platform:     "feishu",
		Prompt:       "hello there",
		SystemPrompt: "default persona",
	}
}

func newTestAnalyzer(history *mockHistory, classifier *mockClassifier) *InterestAnalyzer {
	a := NewInterestAnalyzer(history, nil, &mockPersona{}, conf.DefaultPromptsConfig(), AnalyzerOptions{
		Whitelist:   []string{"g1"},
		ReplyChance: 1.0,
	})
	if classifier != nil {
		a.classifier = classifier
	}
	a.roll = func() float64 { return 0 }
	return a
}

func TestAnalyzeNotWhitelisted(t *testing.T) {
	history := newMockHistory()
	classifier := &mockClassifier{response: `{"should_reply": true}`}
	a := newTestAnalyzer(history, classifier)

	req := newTestRequest()
	req.GroupID = "other"
	a.Analyze(context.Background(), req)

	if req.Halted || req.Prompt != "hello there" || req.Emotion != nil {
		t.Error("request must stay untouched for non-whitelisted subjects")
	}
	if len(history.logs) != 0 {
		t.Error("no history may be written for non-whitelisted subjects")
	}
	if classifier.lastPrompt != "" {
		t.Error("classifier must not be called")
	}
}

func TestAnalyzeWrongPlatform(t *testing.T) {
	history := newMockHistory()
	a := newTestAnalyzer(history, &mockClassifier{response: `{"should_reply": true}`})

	req := newTestRequest()
	req.Platform = "telegram"
	a.Analyze(context.Background(), req)

	if req.Halted || len(history.logs) != 0 {
		t.Error("unsupported platforms must pass through untouched")
	}
}

func TestAnalyzeNoClassifier(t *testing.T) {
	history := newMockHistory()
	a := newTestAnalyzer(history, nil)

	req := newTestRequest()
	a.Analyze(context.Background(), req)

	if req.Halted || len(history.logs) != 0 {
		t.Error("missing classifier must pass through untouched")
	}
}

func TestAnalyzeInjectsState(t *testing.T) {
	history := newMockHistory()
	classifier := &mockClassifier{response: `thinking... {"should_reply": true, "interest": "high", "feeling": "curious"}`}
	a := newTestAnalyzer(history, classifier)

	req := newTestRequest()
	req.DirectMention = true
	a.Analyze(context.Background(), req)

	if req.Halted {
		t.Fatal("positive verdict must not halt")
	}
	want := "User's message is: \"hello there\"\n\n[[System Note: Your current state is - Interest: 'high', Feeling: 'curious'. You MUST respond according to this state.]]"
	if req.Prompt != want {
		t.Errorf("prompt injection mismatch:\n got: %q\nwant: %q", req.Prompt, want)
	}
	if req.Emotion == nil || req.Emotion.Interest != "high" || req.Emotion.Feeling != "curious" {
		t.Error("transient emotion state not set")
	}

	turns := history.All("group:g1")
	if len(turns) != 1 {
		t.Fatalf("expected 1 logged turn, got %d", len(turns))
	}
	if turns[0].Content != "[Direct Mention] hello there" {
		t.Errorf("user turn content: %q", turns[0].Content)
	}
	// first message of a session analyzes against the sentinel
	if !strings.Contains(classifier.lastPrompt, "No previous conversation history.") {
		t.Error("analysis context must use the no-history sentinel")
	}
	if !strings.Contains(classifier.lastPrompt, "user (alice/u1): [Direct Mention] hello there") {
		t.Errorf("current message missing from analysis prompt:\n%s", classifier.lastPrompt)
	}
}

func TestAnalyzeExcludesNewestTurnFromContext(t *testing.T) {
	history := newMockHistory()
	history.Append("group:g1", domain.NewUserTurn("u1", "alice", "earlier", false))
	classifier := &mockClassifier{response: `{"should_reply": true}`}
	a := newTestAnalyzer(history, classifier)

	req := newTestRequest()
	req.Prompt = "newest"
	a.Analyze(context.Background(), req)

	idx := strings.Index(classifier.lastPrompt, "## Conversation so far")
	end := strings.Index(classifier.lastPrompt, "## Current message")
	if idx < 0 || end < idx {
		t.Fatalf("unexpected prompt layout:\n%s", classifier.lastPrompt)
	}
	historySection := classifier.lastPrompt[idx:end]
	if !strings.Contains(historySection, "earlier") {
		t.Error("prior turn missing from analysis context")
	}
	if strings.Contains(historySection, "newest") {
		t.Error("newest turn must be excluded from the analysis context")
	}
}

func TestAnalyzeEmptyPrompt(t *testing.T) {
	history := newMockHistory()
	classifier := &mockClassifier{response: `{"should_reply": true}`}
	a := newTestAnalyzer(history, classifier)

	req := newTestRequest()
	req.Prompt = ""
	a.Analyze(context.Background(), req)

	turns := history.All("group:g1")
	if len(turns) != 1 || turns[0].Content != "User sent an empty or non-text message." {
		t.Errorf("empty message placeholder not logged: %+v", turns)
	}
}

func TestAnalyzeSuppression(t *testing.T) {
	history := newMockHistory()
	classifier := &mockClassifier{response: `{"should_reply": false, "reason": "busy"}`}
	a := newTestAnalyzer(history, classifier)

	req := newTestRequest()
	a.Analyze(context.Background(), req)

	if !req.Halted {
		t.Fatal("negative verdict must halt the pipeline")
	}
	if req.HaltReason != "busy" {
		t.Errorf("halt reason: %q", req.HaltReason)
	}
	if req.Prompt != "hello there" {
		t.Error("suppression must not rewrite the prompt")
	}
	if history.persistCount != 1 {
		t.Errorf("expected 1 persist, got %d", history.persistCount)
	}
}

func TestAnalyzeNoVerdict(t *testing.T) {
	history := newMockHistory()
	classifier := &mockClassifier{response: "I cannot answer in the requested format."}
	a := newTestAnalyzer(history, classifier)

	req := newTestRequest()
	a.Analyze(context.Background(), req)

	if req.Halted || req.Prompt != "hello there" || req.Emotion != nil {
		t.Error("missing verdict must leave the request untouched")
	}
	if len(history.All("group:g1")) != 1 {
		t.Error("user turn must still be logged")
	}
	if history.persistCount != 1 {
		t.Errorf("expected 1 persist, got %d", history.persistCount)
	}
}

func TestAnalyzeClassifierError(t *testing.T) {
	history := newMockHistory()
	classifier := &mockClassifier{err: errors.New("upstream down")}
	a := newTestAnalyzer(history, classifier)

	req := newTestRequest()
	a.Analyze(context.Background(), req)

	if req.Halted || req.Prompt != "hello there" {
		t.Error("classifier failure must leave the request untouched")
	}
	if history.persistCount != 1 {
		t.Errorf("expected 1 persist, got %d", history.persistCount)
	}
}

func TestAnalyzeChanceZeroAlwaysSuppresses(t *testing.T) {
	history := newMockHistory()
	classifier := &mockClassifier{response: `{"should_reply": true}`}
	a := newTestAnalyzer(history, classifier)
	a.replyChance = 0

	for _, roll := range []float64{0, 0.5, 0.999} {
		a.roll = func() float64 { return roll }
		req := newTestRequest()
		a.Analyze(context.Background(), req)
		if !req.Halted {
			t.Errorf("chance 0 must suppress for roll %v", roll)
		}
	}
}

func TestAnalyzeChanceOneNeverSuppresses(t *testing.T) {
	history := newMockHistory()
	classifier := &mockClassifier{response: `{"should_reply": true}`}
	a := newTestAnalyzer(history, classifier)
	a.replyChance = 1.0
	a.roll = func() float64 { return 0.999999 }

	req := newTestRequest()
	a.Analyze(context.Background(), req)
	if req.Halted {
		t.Error("chance 1 must never suppress")
	}
}

func TestAnalyzePersonaOverridesSystemPrompt(t *testing.T) {
	history := newMockHistory()
	classifier := &mockClassifier{response: `{"should_reply": true}`}
	a := newTestAnalyzer(history, classifier)
	a.personas = &mockPersona{prompt: "a bound persona"}

	req := newTestRequest()
	a.Analyze(context.Background(), req)

	if !strings.Contains(classifier.lastPrompt, "a bound persona") {
		t.Error("bound persona must drive the analysis prompt")
	}
	if strings.Contains(classifier.lastPrompt, "default persona") {
		t.Error("system prompt must not be used when a persona is bound")
	}
}

func TestAnalyzePersonaFallback(t *testing.T) {
	history := newMockHistory()
	classifier := &mockClassifier{response: `{"should_reply": true}`}
	a := newTestAnalyzer(history, classifier)
	a.personas = &mockPersona{err: errors.New("db closed")}

	req := newTestRequest()
	a.Analyze(context.Background(), req)

	if !strings.Contains(classifier.lastPrompt, "default persona") {
		t.Error("persona failure must fall back to the system prompt")
	}
}
