package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/auditforge/auditforge/internal/services"
)

const (
	DefaultModel   = "gemini-1.5-flash"
	DefaultTimeout = 30 * time.Second
)

// Config carries credentials and tuning for the Gemini client. It is passed
// explicitly at construction; there is no package-level key state.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client wraps the Gemini API behind the services.TextGenerator contract.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{client: c, model: model, timeout: timeout}, nil
}

func (c *Client) Close() error { return c.client.Close() }

// GenerateText sends one prompt and returns the concatenated text parts of
// the first response. Calls are bounded by the configured timeout; expiry
// surfaces as an error for the caller's fallback policy.
func (c *Client) GenerateText(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	m := c.client.GenerativeModel(c.model)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}
	if maxTokens > 0 {
		m.SetMaxOutputTokens(int32(maxTokens))
	}
	m.SetTemperature(temperature)

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := extractText(resp)
	if text == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

var _ services.TextGenerator = (*Client)(nil)
