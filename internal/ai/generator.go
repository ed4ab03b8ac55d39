package ai

import (
	"fmt"
	"time"

	"gopherai-chat/internal/config"
)

// NewGenerator builds the provider client named by cfg and wraps it with
// bounded retries.
func NewGenerator(cfg config.LLMConfig) (Generator, error) {
	chatCfg := ChatConfig{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var base Generator
	switch cfg.Provider {
	case config.LLMProviderGemini:
		base = NewGeminiClient(chatCfg, timeout)
	case config.LLMProviderOpenAI:
		base = NewOpenAICompatibleClient(chatCfg, timeout)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	return NewRetryingGenerator(base, cfg.MaxRetries, 500*time.Millisecond), nil
}
