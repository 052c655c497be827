package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// CompletionRequest describes a single completion call to the model
// gateway. An empty Model and zero values for Temperature and MaxTokens
// fall back to the configured defaults.
type CompletionRequest struct {
	Prompt      string
	System      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Gateway is the single entry point for all model calls: completions,
// JSON-shaped completions, and embeddings. Implementations own retry,
// rate limiting, and usage accounting.
type Gateway interface {
	// Complete returns the raw text completion for the request.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// CompleteJSON returns the completion parsed as a JSON object.
	// Markdown code fences around the payload are tolerated. Returns
	// ErrMalformedResponse when the payload is not a JSON object;
	// malformed responses are never retried.
	CompleteJSON(ctx context.Context, req CompletionRequest) (map[string]any, error)

	// Embed returns one embedding per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Usage returns a snapshot of accumulated token and cost totals.
	Usage() models.Usage

	// ResetUsage zeroes the accumulated usage counters.
	ResetUsage()
}
