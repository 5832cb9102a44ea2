package data

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mewlark/interest-bridge/internal/biz/repo"
)

// classifierRepo runs the analysis prompt against an OpenAI-compatible
// endpoint and returns the raw model text
type classifierRepo struct {
	client *openai.Client
	model  string
}

// NewClassifierRepo creates a classifier provider. Returns nil when no API
// key is configured, which downstream reads as "classification disabled".
func NewClassifierRepo(apiKey, baseURL, model string) repo.ClassifierRepo {
	if apiKey == "" {
		return nil
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &classifierRepo{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Complete sends the analysis prompt as a single user message
func (r *classifierRepo) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1, // Low temperature for stable verdicts
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}
