package driving

import (
	"context"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// RetrievalService ranks chunks by similarity to a query.
type RetrievalService interface {
	// Query returns the top hits for the query text, each with a citation.
	Query(ctx context.Context, input domain.QueryInput) (*domain.QueryResponse, error)
}
