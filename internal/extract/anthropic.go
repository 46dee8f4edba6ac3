package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient extracts tickers through the Anthropic messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	model     anthropic.Model
	modelName string
}

var _ Extractor = (*AnthropicClient)(nil)

// NewAnthropicClient creates an extractor backed by claude haiku.
func NewAnthropicClient(apiKey string, timeout time.Duration, opts ...option.RequestOption) *AnthropicClient {
	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if timeout > 0 {
		options = append(options, option.WithRequestTimeout(timeout))
	}
	options = append(options, opts...)
	client := anthropic.NewClient(options...)
	return &AnthropicClient{
		client:    &client,
		model:     anthropic.ModelClaudeHaiku4_5,
		modelName: "claude-4.5-haiku",
	}
}

// Name returns the model identifier.
func (c *AnthropicClient) Name() string {
	return c.modelName
}

// Analyze extracts ticker mentions and a hype score from text.
func (c *AnthropicClient) Analyze(ctx context.Context, text string) (*Result, error) {
	return analyzeWith(ctx, c.complete, text)
}

// ContextualHype scores enthusiasm in text that names no ticker.
func (c *AnthropicClient) ContextualHype(ctx context.Context, text string) (float64, error) {
	return contextualWith(ctx, c.complete, text)
}

func (c *AnthropicClient) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", ErrNoResponse
	}
	return resp.Content[0].Text, nil
}
