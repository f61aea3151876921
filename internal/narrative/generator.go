// Package narrative relays the finished analysis prompt to an external
// text-generation service. The core's only obligation to this collaborator
// is the prompt string; the response is shown to the user verbatim and is
// never parsed back into the analysis.
package narrative

import "context"

// Generator produces narrative text from a prompt.
type Generator interface {
	// Name returns the provider name.
	Name() string

	// Generate sends the prompt and returns the generated text.
	Generate(ctx context.Context, prompt string) (*Response, error)
}

// Response is the generated narrative plus accounting metadata.
type Response struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config selects and configures a provider.
type Config struct {
	// Provider name: "openai", "anthropic", "" (disabled).
	Provider string

	// Model name, provider-specific. Empty uses the provider default.
	Model string

	// APIKey authenticates against the provider.
	APIKey string

	// BaseURL overrides the provider endpoint (self-hosted gateways).
	BaseURL string

	// MaxTokens bounds the response length.
	MaxTokens int

	// Timeout in seconds per request.
	Timeout int
}

const (
	defaultMaxTokens      = 1000
	defaultTimeoutSeconds = 30

	// The narrative must restate the scored figures, not embellish them.
	systemPrompt = "You are a property-transaction risk analyst. Write clear, factual narrative strictly from the figures provided. Never invent registry entries, amounts, or parties."
)
