package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driving"
	"github.com/custodia-labs/qir-evidence/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService builds and incrementally maintains one embedding per chunk.
//
// The hash cache is the only signal for re-embedding: a chunk is embedded
// when its cached hash differs from its current text hash or when it has no
// vector yet.
type IndexService struct {
	evidence    driving.EvidenceService
	repo        driven.IndexRepository
	embedder    driven.Embedder
	concurrency int
}

// NewIndexService creates a new index service.
func NewIndexService(
	evidence driving.EvidenceService,
	repo driven.IndexRepository,
	embedder driven.Embedder,
) *IndexService {
	return &IndexService{
		evidence:    evidence,
		repo:        repo,
		embedder:    embedder,
		concurrency: domain.DefaultIndexConcurrency,
	}
}

// SetConcurrency sets the number of embedding calls in flight during a build.
func (s *IndexService) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// Status returns the persisted status, or a not-ready default.
func (s *IndexService) Status(ctx context.Context) (*domain.IndexStatus, error) {
	if s.repo == nil {
		return nil, domain.ErrNotImplemented
	}
	status, err := s.repo.LoadStatus(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	if status == nil {
		return &domain.IndexStatus{}, nil
	}
	return status, nil
}

// embedResult is one embedding produced during a build.
type embedResult struct {
	chunkID string
	hash    string
	vector  []float32
}

// Build embeds new or changed chunks in the requested scope and persists
// vectors, hashes and status in that order.
func (s *IndexService) Build(ctx context.Context, input domain.IndexBuildInput) (*domain.IndexStatus, error) {
	if s.repo == nil || s.evidence == nil || s.embedder == nil {
		return nil, domain.ErrNotImplemented
	}
	logger.Section("Index Build")

	model := strings.TrimSpace(input.Model)
	if model == "" {
		return nil, domain.ErrIndexBuildFailed.WithDetails("embedding model is required")
	}

	summaries, err := s.evidence.ListChunks(ctx, input.SourceID)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, domain.ErrIndexBuildFailed.WithDetails("no chunks in scope; build chunks before indexing")
	}

	current, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}
	compatible := current.CompatibleWith(model, input.SourceID)

	vectors := map[string][]float32{}
	hashes := map[string]string{}
	if compatible {
		if vectors, err = s.repo.LoadVectors(ctx); err != nil {
			return nil, storeError(err)
		}
		if hashes, err = s.repo.LoadHashes(ctx); err != nil {
			return nil, storeError(err)
		}
	}
	logger.Debug("Scope model=%s source=%q compatible=%t chunks=%d", model, input.SourceID, compatible, len(summaries))

	inScope := make(map[string]string, len(summaries))
	for _, sum := range summaries {
		inScope[sum.ChunkID] = sum.TextSHA256
	}
	for id := range vectors {
		if _, ok := inScope[id]; !ok {
			delete(vectors, id)
		}
	}
	for id := range hashes {
		if _, ok := inScope[id]; !ok {
			delete(hashes, id)
		}
	}

	var toEmbed []string
	for id, textSHA := range inScope {
		_, hasVector := vectors[id]
		if hashes[id] != textSHA || !hasVector {
			toEmbed = append(toEmbed, id)
		}
	}
	sort.Strings(toEmbed)
	logger.Debug("Re-embedding %d of %d chunks", len(toEmbed), len(inScope))

	results, err := s.embedChunks(ctx, model, toEmbed)
	if err != nil {
		return nil, err
	}

	dims := 0
	if compatible {
		dims = current.Dims
	}
	for _, r := range results {
		if dims == 0 {
			dims = len(r.vector)
		}
		if len(r.vector) != dims {
			return nil, domain.ErrIndexBuildFailed.WithDetailsf(
				"embedding dims mismatch for chunk %s: expected %d, got %d", r.chunkID, dims, len(r.vector))
		}
	}
	for _, r := range results {
		vectors[r.chunkID] = r.vector
		hashes[r.chunkID] = r.hash
	}
	for id, textSHA := range inScope {
		hashes[id] = textSHA
	}

	if err := s.repo.SaveVectors(ctx, vectors); err != nil {
		return nil, domain.ErrIndexBuildFailed.Wrap(err)
	}
	if err := s.repo.SaveHashes(ctx, hashes); err != nil {
		return nil, domain.ErrIndexBuildFailed.Wrap(err)
	}

	status := domain.IndexStatus{
		Ready:       true,
		Model:       model,
		Dims:        dims,
		ChunkCount:  len(vectors),
		ChunksTotal: len(inScope),
		SourceID:    input.SourceID,
		UpdatedAt:   input.UpdatedAt,
	}
	if err := s.repo.SaveStatus(ctx, status); err != nil {
		return nil, domain.ErrIndexBuildFailed.Wrap(err)
	}

	logger.Debug("Index ready: %d vectors, dims=%d", status.ChunkCount, status.Dims)
	return &status, nil
}

// embedChunks embeds the given chunks with at most s.concurrency calls in
// flight. Results come back in the order of ids.
func (s *IndexService) embedChunks(ctx context.Context, model string, ids []string) ([]embedResult, error) {
	results := make([]embedResult, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			chunk, err := s.evidence.GetChunk(gctx, id)
			if err != nil {
				return err
			}
			vector, err := s.embedder.Embed(gctx, model, chunk.Text)
			if err != nil {
				return embeddingError(err, id)
			}
			results[i] = embedResult{chunkID: id, hash: chunk.TextSHA256, vector: vector}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// embeddingError keeps coded provider errors intact and codes the rest.
func embeddingError(err error, chunkID string) error {
	var coded *domain.Error
	if errors.As(err, &coded) {
		return err
	}
	return domain.ErrEmbeddingsFailed.Wrap(err).WithDetailsf("chunk_id=%s: %v", chunkID, err)
}
