package llm

import "context"

// Provider abstracts a text-generation backend. The service only
// needs a single-shot prompt-to-text call; the model id selects the
// concrete model within the provider.
type Provider interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
	Name() string
}

// Gateway routes generation requests to a configured provider based
// on the requested model id, with bounded retries. Handles are
// stateless and safe for concurrent use.
type Gateway interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}
