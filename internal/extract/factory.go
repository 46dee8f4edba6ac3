package extract

import (
	"fmt"

	"github.com/hypemind/hypemind/pkg/config"
)

// New builds the configured extractor.
func New(cfg *config.LLMConfig) (Extractor, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai_api_key is required for provider openai")
		}
		return NewOpenAIClient(cfg.OpenAIKey, cfg.RequestTimeout), nil
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic_api_key is required for provider anthropic")
		}
		return NewAnthropicClient(cfg.AnthropicKey, cfg.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
