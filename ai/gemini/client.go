package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"lecture-admin/config"
)

// Client kapselt die Gemini-API als Completion-Provider.
type Client struct {
	client *genai.Client
	model  string
	Logger *zap.Logger
}

// NewClient erstellt einen neuen Gemini-Client.
func NewClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY ist nicht konfiguriert")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}
	return &Client{client: client, model: cfg.GeminiModel, Logger: logger}, nil
}

// Complete führt den Prompt aus und gibt den Text des ersten Kandidaten zurück.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if txt, ok := resp.Candidates[0].Content.Parts[0].(genai.Text); ok {
			return string(txt), nil
		}
	}
	return "", fmt.Errorf("gemini returned no text candidates")
}

// Name gibt den Provider-Namen zurück.
func (c *Client) Name() string {
	return "gemini"
}
