package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"lecture-admin/config"
)

// Client kapselt die OpenAI-Chat-API als Completion-Provider.
type Client struct {
	client *openai.Client
	model  string
	Logger *zap.Logger
}

// NewClient erstellt einen neuen OpenAI-Client.
func NewClient(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY ist nicht konfiguriert")
	}
	return &Client{
		client: openai.NewClient(cfg.OpenAIAPIKey),
		model:  cfg.OpenAIModel,
		Logger: logger,
	}, nil
}

// Complete führt den Prompt als einzelne User-Message aus.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Name gibt den Provider-Namen zurück.
func (c *Client) Name() string {
	return "openai"
}
