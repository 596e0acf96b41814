package services

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driving"
	"github.com/custodia-labs/qir-evidence/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// scoredChunk holds a similarity score before hydration.
type scoredChunk struct {
	chunkID string
	score   float32
}

// RetrievalService ranks indexed chunks by cosine similarity to a query.
type RetrievalService struct {
	evidence     driving.EvidenceService
	index        driving.IndexService
	vectors      driven.IndexRepository
	embedder     driven.Embedder
	snippetChars int
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(
	evidence driving.EvidenceService,
	index driving.IndexService,
	vectors driven.IndexRepository,
	embedder driven.Embedder,
) *RetrievalService {
	return &RetrievalService{
		evidence:     evidence,
		index:        index,
		vectors:      vectors,
		embedder:     embedder,
		snippetChars: domain.DefaultSnippetChars,
	}
}

// Query returns the top hits for the query text. Scores sort descending and
// ties break by chunk ID ascending.
func (s *RetrievalService) Query(ctx context.Context, input domain.QueryInput) (*domain.QueryResponse, error) {
	if s.evidence == nil || s.index == nil || s.vectors == nil || s.embedder == nil {
		return nil, domain.ErrNotImplemented
	}
	logger.Section("Query Execution")

	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, domain.ErrRetrievalFailed.WithDetails("query text is empty")
	}
	topK := ClampTopK(input.TopK)

	status, err := s.index.Status(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Ready {
		return nil, domain.ErrIndexNotReady.WithDetails("build the index first")
	}

	query, err := s.embedder.Embed(ctx, status.Model, text)
	if err != nil {
		return nil, embeddingError(err, "query")
	}
	if len(query) != status.Dims {
		return nil, domain.ErrRetrievalFailed.WithDetailsf(
			"query dims mismatch: index has %d, query has %d", status.Dims, len(query))
	}
	queryNorm := norm(query)
	if queryNorm == 0 {
		return nil, domain.ErrRetrievalFailed.WithDetails("query embedding has zero norm")
	}

	vectors, err := s.vectors.LoadVectors(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	if len(vectors) == 0 {
		return nil, domain.ErrIndexNotReady.WithDetails("index has no vectors")
	}

	allowed, err := s.allowedChunks(ctx, input.SourceIDs)
	if err != nil {
		return nil, err
	}

	scored := make([]scoredChunk, 0, len(vectors))
	for id, v := range vectors {
		if allowed != nil && !allowed[id] {
			continue
		}
		if len(v) != status.Dims {
			return nil, domain.ErrRetrievalFailed.WithDetailsf(
				"vector dims mismatch for chunk %s: expected %d, got %d", id, status.Dims, len(v))
		}
		vn := norm(v)
		if vn == 0 {
			continue
		}
		scored = append(scored, scoredChunk{chunkID: id, score: dot(query, v) / (queryNorm * vn)})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].chunkID < scored[j].chunkID
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	hits := make([]domain.QueryHit, 0, len(scored))
	for _, sc := range scored {
		chunk, err := s.evidence.GetChunk(ctx, sc.chunkID)
		if err != nil {
			return nil, err
		}
		hits = append(hits, domain.QueryHit{
			ChunkID:  chunk.ID,
			SourceID: chunk.SourceID,
			Score:    sc.score,
			Snippet:  Snippet(chunk.Text, s.snippetChars),
			Citation: chunk.Citation(),
		})
	}

	logger.Debug("Query %q: %d candidates, %d hits", text, len(vectors), len(hits))
	return &domain.QueryResponse{Hits: hits}, nil
}

// allowedChunks returns the chunk IDs belonging to any of sourceIDs, or nil
// when no filter applies.
func (s *RetrievalService) allowedChunks(ctx context.Context, sourceIDs []string) (map[string]bool, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	allowed := map[string]bool{}
	for _, sourceID := range sourceIDs {
		summaries, err := s.evidence.ListChunks(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		for _, sum := range summaries {
			allowed[sum.ChunkID] = true
		}
	}
	return allowed, nil
}

// ClampTopK bounds k to [domain.MinTopK, domain.MaxTopK].
func ClampTopK(k int) int {
	return min(max(k, domain.MinTopK), domain.MaxTopK)
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(v []float32) float32 {
	return float32(math.Sqrt(float64(dot(v, v))))
}
