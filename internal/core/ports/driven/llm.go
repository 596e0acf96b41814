package driven

import "context"

// Generator produces text completions from a prompt.
type Generator interface {
	// Generate runs the named model over prompt and returns the full response.
	Generate(ctx context.Context, model, prompt string) (string, error)
}
