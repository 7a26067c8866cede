package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type gateway struct {
	providers  map[string]Provider
	maxRetries int
}

// NewGateway wires up the providers whose API keys are configured.
// Model ids starting with "claude" route to Anthropic, everything
// else to OpenAI.
func NewGateway(openAIKey, anthropicKey string, maxRetries int) Gateway {
	g := &gateway{
		providers:  make(map[string]Provider),
		maxRetries: maxRetries,
	}
	if openAIKey != "" {
		g.providers["openai"] = NewOpenAIProvider(openAIKey)
	}
	if anthropicKey != "" {
		g.providers["anthropic"] = NewAnthropicProvider(anthropicKey)
	}
	return g
}

func (g *gateway) Generate(ctx context.Context, model, prompt string) (string, error) {
	name := "openai"
	if strings.HasPrefix(model, "claude") {
		name = "anthropic"
	}
	p, ok := g.providers[name]
	if !ok {
		return "", fmt.Errorf("provider %q not configured", name)
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			slog.Debug("retrying generation call", "provider", name, "attempt", attempt)
		}

		out, err := p.Generate(ctx, model, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("all retries exhausted for %s: %w", name, lastErr)
}
