// Package llm abstracts the language-model collaborator used by the claim
// drafter. A generator is a pure request/response text function; failures
// are classified so callers can tell transient infrastructure errors apart
// from audit failures.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrTransient marks generator failures worth retrying (rate limits, 5xx,
// network timeouts). Exhausting retries aborts the current cycle as an
// infrastructure failure; it is never conflated with a coverage FAIL.
var ErrTransient = errors.New("transient generator error")

// IsTransient reports whether err is a retryable generator failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Generator defines the interface for language-model providers.
type Generator interface {
	// Name returns the provider name.
	Name() string

	// Generate produces text for the given prompt and context.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible.
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest is the input to one generator call.
type GenerateRequest struct {
	// System is the role/instruction preamble.
	System string

	// Prompt is the full task prompt, including any serialized context.
	Prompt string

	// Model overrides the configured model for this call.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature overrides the configured sampling temperature. The
	// drafter always requests 0 to keep the revision loop convergent.
	Temperature *float64
}

// GenerateResponse is the generator's output.
type GenerateResponse struct {
	// Text is the generated completion.
	Text string

	// Model is the model that produced the response.
	Model string

	// TokensUsed tracks token consumption.
	TokensUsed int
}

// Config holds generator provider configuration.
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout per call, in seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int

	// Temperature is the default sampling temperature
	Temperature float64

	// MaxRetries bounds transient-error retries per call
	MaxRetries int

	// RatePerSec throttles calls to the provider
	RatePerSec float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:    "",
		Timeout:     30,
		MaxTokens:   2000,
		Temperature: 0.0,
		MaxRetries:  3,
		RatePerSec:  2,
	}
}

func (c Config) timeoutOrDefault() int {
	if c.Timeout <= 0 {
		return 30
	}
	return c.Timeout
}

func (c Config) maxTokensOrDefault(req GenerateRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 2000
}

func (c Config) temperatureFor(req GenerateRequest) float64 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	return c.Temperature
}

func (c Config) modelFor(req GenerateRequest, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

func transientf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrTransient, fmt.Sprintf(format, args...))
}
