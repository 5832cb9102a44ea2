package data

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mewlark/interest-bridge/internal/biz/repo"
)

// responderRepo generates the actual chat reply via an OpenAI-compatible
// endpoint
type responderRepo struct {
	client *openai.Client
	model  string
}

// NewResponderRepo creates the downstream reply provider. Returns nil when
// no API key is configured.
func NewResponderRepo(apiKey, baseURL, model string) repo.ResponderRepo {
	if apiKey == "" {
		return nil
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &responderRepo{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Reply generates a response to the (possibly state-injected) prompt
func (r *responderRepo) Reply(ctx context.Context, systemPrompt, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	messages := []openai.ChatCompletionMessage{}
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: prompt,
	})

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}
