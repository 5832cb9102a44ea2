package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/mewlark/interest-bridge/internal/biz/domain"
	"github.com/mewlark/interest-bridge/internal/biz/repo"
	"github.com/mewlark/interest-bridge/internal/conf"
)

// supportedPlatform is the only inbound transport the analyzer acts on
const supportedPlatform = "feishu"

// emptyMessagePlaceholder stands in for non-text or empty message content
const emptyMessagePlaceholder = "User sent an empty or non-text message."

// noHistorySentinel renders in the analysis prompt when a session is new
const noHistorySentinel = "No previous conversation history."

// Request is the mutable pipeline state for one inbound message. The
// analyzer either leaves it untouched, halts it, or rewrites Prompt with
// the persona's current state.
type Request struct {
	SessionID     string
	GroupID       string
	SenderID      string
	SenderName    string
	Platform      string
	DirectMention bool

	// Prompt is the message text forwarded to the responder; the analyzer
	// may rewrite it with a state injection
	Prompt string
	// SystemPrompt is the responder's active system prompt, used as the
	// persona description when the session has no binding
	SystemPrompt string

	// Halted suppresses the reply when set
	Halted     bool
	HaltReason string

	// Emotion carries the transient verdict state from analysis to the
	// reply recorder; it is never persisted on the request itself
	Emotion *domain.TurnState
}

// SubjectID is the allow-list key: the group id for group chats, the
// sender id otherwise
func (r *Request) SubjectID() string {
	if r.GroupID != "" {
		return r.GroupID
	}
	return r.SenderID
}

// AnalyzerOptions configures the gating behaviour
type AnalyzerOptions struct {
	Whitelist   []string
	ReplyChance float64
	Debug       bool
}

// InterestAnalyzer runs the gating sequence in front of the responder
type InterestAnalyzer struct {
	history    repo.HistoryRepo
	classifier repo.ClassifierRepo
	personas   repo.PersonaRepo
	prompts    *conf.PromptsConfig

	whitelist   map[string]struct{}
	replyChance float64
	debug       bool

	// roll is swapped out in tests for deterministic gating
	roll func() float64
}

// NewInterestAnalyzer creates the analyzer. classifier may be nil, which
// disables analysis entirely.
func NewInterestAnalyzer(history repo.HistoryRepo, classifier repo.ClassifierRepo, personas repo.PersonaRepo, prompts *conf.PromptsConfig, opts AnalyzerOptions) *InterestAnalyzer {
	whitelist := make(map[string]struct{}, len(opts.Whitelist))
	for _, id := range opts.Whitelist {
		whitelist[id] = struct{}{}
	}

	return &InterestAnalyzer{
		history:     history,
		classifier:  classifier,
		personas:    personas,
		prompts:     prompts,
		whitelist:   whitelist,
		replyChance: opts.ReplyChance,
		debug:       opts.Debug,
		roll:        rand.Float64,
	}
}

// Analyze runs the gating sequence over req. Every early return leaves the
// request exactly as it arrived; errors are absorbed here and never abort
// the message flow.
func (a *InterestAnalyzer) Analyze(ctx context.Context, req *Request) {
	if _, ok := a.whitelist[req.SubjectID()]; !ok {
		return
	}
	if req.Platform != supportedPlatform {
		return
	}
	if a.classifier == nil {
		return
	}

	if a.debug {
		fmt.Printf("[Analyzer] Analyzing interest for whitelisted session: %s\n", req.SessionID)
	}

	personaDescription := ""
	if a.personas != nil {
		prompt, err := a.personas.PersonaPrompt(ctx, req.SessionID)
		if err != nil {
			fmt.Printf("[Analyzer] Failed to resolve persona: %v\n", err)
		} else {
			personaDescription = prompt
		}
	}
	if personaDescription == "" {
		personaDescription = req.SystemPrompt
	}

	currentMessage := req.Prompt
	if currentMessage == "" {
		currentMessage = emptyMessagePlaceholder
	}

	userTurn := domain.NewUserTurn(req.SenderID, req.SenderName, currentMessage, req.DirectMention)

	// The new turn is logged before classification but excluded from the
	// analysis context
	analysisContext := a.history.All(req.SessionID)
	a.history.Append(req.SessionID, userTurn)

	lines := make([]string, 0, len(analysisContext))
	for _, turn := range analysisContext {
		lines = append(lines, formatTurn(turn))
	}
	formattedHistory := strings.Join(lines, "\n")
	if formattedHistory == "" {
		formattedHistory = noHistorySentinel
	}

	analysisPrompt := a.prompts.RenderAnalysisPrompt(req.DirectMention, personaDescription, formattedHistory, formatTurn(userTurn))

	responseText, err := a.classifier.Complete(ctx, analysisPrompt)
	if err != nil {
		fmt.Printf("[Analyzer] Classifier call failed: %v\n", err)
		a.persist()
		return
	}

	verdict, ok := domain.ParseVerdict(responseText)
	if !ok {
		fmt.Printf("[Analyzer] No verdict found in classifier response\n")
		a.persist()
		return
	}

	if !verdict.Reply() {
		fmt.Printf("[Analyzer] Decided not to reply. Reason: %s\n", verdict.Reason)
		req.Halted = true
		req.HaltReason = verdict.Reason
		a.persist()
		return
	}

	// chance 0 always suppresses, chance 1 never does
	if a.roll() >= a.replyChance {
		fmt.Printf("[Analyzer] Decided to reply, but failed the random chance roll (%.0f%%)\n", a.replyChance*100)
		req.Halted = true
		req.HaltReason = "failed the random chance roll"
		a.persist()
		return
	}

	req.Emotion = verdict.State()
	req.Prompt = fmt.Sprintf("User's message is: \"%s\"\n\n[[System Note: Your current state is - Interest: '%s', Feeling: '%s'. You MUST respond according to this state.]]",
		req.Prompt, verdict.Interest, verdict.Feeling)

	if a.debug {
		fmt.Printf("[Analyzer] Injected state into prompt (interest=%s, feeling=%s)\n", verdict.Interest, verdict.Feeling)
	}
}

func (a *InterestAnalyzer) persist() {
	if err := a.history.Persist(); err != nil {
		fmt.Printf("[Analyzer] Failed to persist history: %v\n", err)
	}
}

// formatTurn renders one turn as an analysis-context line
func formatTurn(turn domain.Turn) string {
	if turn.IsUser() {
		name := turn.SenderName
		if name == "" {
			name = "unknown"
		}
		id := turn.SenderID
		if id == "" {
			id = "0"
		}
		return fmt.Sprintf("user (%s/%s): %s", name, id, turn.Content)
	}
	return fmt.Sprintf("assistant: %s", turn.Content)
}
