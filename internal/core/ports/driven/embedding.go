// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// Embedder generates vector embeddings from text.
//
// Implementations must return vectors of a fixed length per model. Transport
// failures should be reported as retryable domain errors so callers can retry
// without reinterpreting them.
type Embedder interface {
	// Embed generates a vector embedding for text using the named model.
	Embed(ctx context.Context, model, text string) ([]float32, error)
}
