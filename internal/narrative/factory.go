package narrative

import (
	"fmt"
	"strings"

	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

// New creates the configured generator. An empty provider disables
// narrative generation and returns (nil, nil).
func New(config Config) (Generator, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIGenerator(config)
	case "anthropic", "claude":
		return NewAnthropicGenerator(config)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown narrative provider: %s (supported: openai, anthropic)", config.Provider)
	}
}

// ConfigFromModel converts the runtime configuration section.
func ConfigFromModel(cfg model.NarrativeConfig) Config {
	return Config{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.Timeout,
	}
}
