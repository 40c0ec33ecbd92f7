// Package llm provides the streaming text-generation client used to produce
// release notes. The backend is any OpenAI-compatible chat completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.2
	DefaultMaxRetries  = 3
	defaultBaseBackoff = 1 * time.Second
)

// Rate limiter defaults: 50 requests per minute with small bursts.
const (
	defaultRequestsPerMinute = 50
	defaultBurst             = 5
)

// ErrInvalidConfig indicates invalid generation configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds configuration for the generation backend.
type Config struct {
	// BaseURL is the chat completion endpoint base.
	// For OpenAI: https://api.openai.com/v1
	// For local OpenAI-compatible servers: http://localhost:11434/v1
	BaseURL string

	// Model is the model identifier. Defaults to gpt-4o-mini.
	Model string

	// APIKey authenticates against the backend. Optional for keyless local
	// servers.
	APIKey string

	// Temperature keeps sampling near-deterministic. Defaults to 0.2.
	Temperature float64

	// MaxTokens bounds one generation. Defaults to 512; two sentences of
	// notes never need more.
	MaxTokens int

	// RequestsPerMinute throttles calls to the backend.
	RequestsPerMinute int

	// MaxRetries bounds retry attempts for failures that occur before any
	// output has streamed.
	MaxRetries int
}

// withDefaults fills unset fields with the documented defaults.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = defaultRequestsPerMinute
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v outside [0, 2]", ErrInvalidConfig, c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("%w: negative max tokens", ErrInvalidConfig)
	}
	return nil
}

// Generator streams model output for a rendered prompt.
type Generator interface {
	// Generate invokes the backend in streaming mode and calls onDelta for
	// every content chunk, in order. It returns when the stream ends, the
	// context is cancelled, or onDelta returns an error.
	Generate(ctx context.Context, prompt string, onDelta func(chunk string) error) error
}

// client is the langchaingo-backed Generator.
type client struct {
	llm     llms.Model
	cfg     Config
	limiter *rate.Limiter
}

// New creates a Generator for the given configuration.
func New(cfg Config) (Generator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// langchaingo requires a token; use a placeholder for keyless local
	// backends.
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "placeholder"
	}

	model, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}

	return newClient(model, cfg), nil
}

// newClient wires an existing model, used directly by tests.
func newClient(model llms.Model, cfg Config) *client {
	cfg = cfg.withDefaults()
	return &client{
		llm:     model,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), defaultBurst),
	}
}

// Generate streams one completion. Failures before the first delta are
// retried with exponential backoff; once output has started flowing the
// stream is never restarted, since replaying partial output would corrupt
// the caller's accumulation buffer.
func (c *client) Generate(ctx context.Context, prompt string, onDelta func(chunk string) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		started := false
		_, err := c.llm.GenerateContent(ctx, messages,
			llms.WithTemperature(c.cfg.Temperature),
			llms.WithMaxTokens(c.cfg.MaxTokens),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				if len(chunk) == 0 {
					return nil
				}
				started = true
				return onDelta(string(chunk))
			}),
		)
		if err == nil {
			return nil
		}
		if started || ctx.Err() != nil || !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable classifies connection-level failures worth another attempt.
// langchaingo surfaces backend status through error text, so matching is
// string-based.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range []string{
		"429",
		"rate limit",
		"502",
		"503",
		"504",
		"timeout",
		"timed out",
		"connection refused",
		"connection reset",
		"temporarily unavailable",
	} {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

var _ Generator = (*client)(nil)
