package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kamalkrbh/doc-finder/internal/domain"
)

// groqClient talks to Groq's hosted API, which speaks the OpenAI chat
// protocol under a different base URL.
type groqClient struct {
	client *openai.Client
	model  string
}

func newGroqClient(apiKey, baseURL, model string) *groqClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &groqClient{client: openai.NewClientWithConfig(cfg), model: model}
}

func (g *groqClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: groq completion: %v", domain.ErrDependency, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: groq returned no choices", domain.ErrDependency)
	}
	return resp.Choices[0].Message.Content, nil
}
