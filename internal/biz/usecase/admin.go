package usecase

import (
	"fmt"
	"strings"

	"github.com/mewlark/interest-bridge/internal/biz/domain"
	"github.com/mewlark/interest-bridge/internal/biz/repo"
)

// AdminView renders and manages per-session history for in-chat admin
// commands and the HTTP API
type AdminView struct {
	history repo.HistoryRepo
}

// NewAdminView creates the admin view
func NewAdminView(history repo.HistoryRepo) *AdminView {
	return &AdminView{history: history}
}

// View renders the session's history for display
func (v *AdminView) View(sessionID string) string {
	turns := v.history.All(sessionID)
	if len(turns) == 0 {
		return "No chat history for this session."
	}

	lines := make([]string, 0, len(turns)+1)
	lines = append(lines, "--- Chat History ---")
	for _, turn := range turns {
		lines = append(lines, formatViewTurn(turn))
	}
	return strings.Join(lines, "\n")
}

// Clear wipes the session's history and persists the removal
func (v *AdminView) Clear(sessionID string) string {
	if !v.history.Clear(sessionID) {
		return "No chat history to clear."
	}
	if err := v.history.Persist(); err != nil {
		fmt.Printf("[Admin] Failed to persist history: %v\n", err)
	}
	return "Chat history cleared."
}

// formatViewTurn renders one turn for the admin view, including the state
// annotation on assistant turns when present
func formatViewTurn(turn domain.Turn) string {
	if turn.IsUser() {
		name := turn.SenderName
		if name == "" {
			name = "unknown"
		}
		id := turn.SenderID
		if id == "" {
			id = "0"
		}
		return fmt.Sprintf("[user] (%s/%s): %s", name, id, turn.Content)
	}

	stateInfo := ""
	if turn.State != nil {
		stateInfo = fmt.Sprintf(" (State: %s, %s)", turn.State.Interest, turn.State.Feeling)
	}
	return fmt.Sprintf("[assistant]%s: %s", stateInfo, turn.Content)
}
