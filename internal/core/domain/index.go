package domain

import "time"

// IndexStatus is a snapshot of the single embedding space scoped to
// (Model, SourceID). An empty SourceID means the scope covers all sources.
type IndexStatus struct {
	Ready       bool      `json:"ready"`
	Model       string    `json:"model,omitempty"`
	Dims        int       `json:"dims"`
	ChunkCount  int       `json:"chunk_count"`
	ChunksTotal int       `json:"chunks_total"`
	SourceID    string    `json:"source_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CompatibleWith reports whether the status can seed an incremental build
// for the given model and scope.
func (s IndexStatus) CompatibleWith(model, sourceID string) bool {
	return s.Ready && s.Model == model && s.SourceID == sourceID
}

// IndexBuildInput requests an index build over one source or all sources.
type IndexBuildInput struct {
	Model     string
	SourceID  string
	UpdatedAt time.Time
}

// Top-k bounds applied to similarity queries.
const (
	MinTopK = 1
	MaxTopK = 50
)

// QueryInput is a similarity query against the index. An empty SourceIDs
// searches every indexed source.
type QueryInput struct {
	Text      string
	TopK      int
	SourceIDs []string
}

// QueryHit is one ranked retrieval result.
type QueryHit struct {
	ChunkID  string   `json:"chunk_id"`
	SourceID string   `json:"source_id"`
	Score    float32  `json:"score"`
	Snippet  string   `json:"snippet"`
	Citation Citation `json:"citation"`
}

// QueryResponse is the ordered result of a query.
type QueryResponse struct {
	Hits []QueryHit `json:"hits"`
}
