package repo

import "context"

// ResponderRepo is the downstream model that produces the actual reply
// once the gating pipeline lets a message through
type ResponderRepo interface {
	Reply(ctx context.Context, systemPrompt, prompt string) (string, error)
}
