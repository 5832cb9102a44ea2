package repo

import "context"

// ClassifierRepo produces free-text judgements from an analysis prompt.
// The output is expected, but not guaranteed, to embed a JSON verdict.
type ClassifierRepo interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
