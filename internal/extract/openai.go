package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient extracts tickers through the OpenAI chat completions API.
type OpenAIClient struct {
	client    *openai.Client
	model     openai.ChatModel
	modelName string
}

var _ Extractor = (*OpenAIClient)(nil)

// NewOpenAIClient creates an extractor backed by gpt-4o-mini.
func NewOpenAIClient(apiKey string, timeout time.Duration, opts ...option.RequestOption) *OpenAIClient {
	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if timeout > 0 {
		options = append(options, option.WithRequestTimeout(timeout))
	}
	options = append(options, opts...)
	client := openai.NewClient(options...)
	return &OpenAIClient{
		client:    &client,
		model:     openai.ChatModelGPT4oMini,
		modelName: "gpt-4o-mini",
	}
}

// Name returns the model identifier.
func (c *OpenAIClient) Name() string {
	return c.modelName
}

// Analyze extracts ticker mentions and a hype score from text.
func (c *OpenAIClient) Analyze(ctx context.Context, text string) (*Result, error) {
	return analyzeWith(ctx, c.complete, text)
}

// ContextualHype scores enthusiasm in text that names no ticker.
func (c *OpenAIClient) ContextualHype(ctx context.Context, text string) (float64, error) {
	return contextualWith(ctx, c.complete, text)
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoResponse
	}
	return resp.Choices[0].Message.Content, nil
}
