package usecase

import (
	"fmt"

	"github.com/mewlark/interest-bridge/internal/biz/domain"
	"github.com/mewlark/interest-bridge/internal/biz/repo"
)

// ReplyRecorder logs the responder's output back into the session history
type ReplyRecorder struct {
	history       repo.HistoryRepo
	whitelist     map[string]struct{}
	recordEmotion bool
}

// NewReplyRecorder creates the recorder. recordEmotion attaches the
// analyzer's transient state to recorded assistant turns.
func NewReplyRecorder(history repo.HistoryRepo, whitelist []string, recordEmotion bool) *ReplyRecorder {
	m := make(map[string]struct{}, len(whitelist))
	for _, id := range whitelist {
		m[id] = struct{}{}
	}
	return &ReplyRecorder{
		history:       history,
		whitelist:     m,
		recordEmotion: recordEmotion,
	}
}

// Record appends the reply as an assistant turn and persists. Empty replies
// and non-allow-listed subjects are ignored.
func (r *ReplyRecorder) Record(req *Request, reply string) {
	if _, ok := r.whitelist[req.SubjectID()]; !ok {
		return
	}
	if reply == "" {
		return
	}

	var state *domain.TurnState
	if r.recordEmotion && req.Emotion != nil {
		state = req.Emotion
	}

	r.history.Append(req.SessionID, domain.NewAssistantTurn(reply, state))
	if err := r.history.Persist(); err != nil {
		fmt.Printf("[Recorder] Failed to persist history: %v\n", err)
	}
}
