package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// defaultTopK is used when a query does not ask for a specific count.
const defaultTopK = 8

// QueryInput is the input schema for the evidence_query tool.
type QueryInput struct {
	Query     string   `json:"query" jsonschema:"the text to find similar evidence for"`
	TopK      int      `json:"top_k,omitempty" jsonschema:"number of hits to return, 1 to 50 (default 8)"`
	SourceIDs []string `json:"source_ids,omitempty" jsonschema:"restrict hits to these sources"`
}

// QueryOutput is the output schema for the evidence_query tool.
type QueryOutput struct {
	Hits  []domain.QueryHit `json:"hits"`
	Count int               `json:"count"`
}

// ContextInput is the input schema for the evidence_context tool.
type ContextInput struct {
	ChunkID string `json:"chunk_id" jsonschema:"the center chunk"`
	Window  int    `json:"window,omitempty" jsonschema:"number of neighbours on each side (default 0)"`
}

// ChunkInput is the input schema for the evidence_chunk tool.
type ChunkInput struct {
	ChunkID string `json:"chunk_id" jsonschema:"the chunk to read"`
}

// ChunkOutput is the output schema for the evidence_chunk tool.
type ChunkOutput struct {
	Chunk    domain.EvidenceChunk `json:"chunk"`
	Citation domain.Citation      `json:"citation"`
}

// DraftInput is the input schema for the draft_section tool.
type DraftInput struct {
	SectionID    string   `json:"section_id" jsonschema:"one of exec_summary, incident_highlights_top_n, theme_analysis, action_plan_next_quarter, quarter_narrative_recap"`
	QuarterLabel string   `json:"quarter_label" jsonschema:"the quarter being reviewed, e.g. 2026-Q1"`
	Prompt       string   `json:"prompt,omitempty" jsonschema:"drafting instructions"`
	ChunkIDs     []string `json:"citation_chunk_ids" jsonschema:"approved chunks the draft may cite"`
}

// IndexStatusInput is the input schema for the index_status tool.
type IndexStatusInput struct{}

// IndexStatusOutput is the output schema for the index_status tool.
type IndexStatusOutput struct {
	Ready       bool   `json:"ready"`
	Model       string `json:"model,omitempty"`
	Dims        int    `json:"dims"`
	ChunkCount  int    `json:"chunk_count"`
	ChunksTotal int    `json:"chunks_total"`
	SourceID    string `json:"source_id,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "evidence_query",
		Description: "Rank indexed evidence chunks by similarity to a query",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "evidence_context",
		Description: "Return the chunks surrounding a chunk within its source",
	}, s.handleContext)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "evidence_chunk",
		Description: "Read one evidence chunk with its citation locator",
	}, s.handleChunk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "draft_section",
		Description: "Draft a report section citing only the approved chunks",
	}, s.handleDraft)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_status",
		Description: "Report whether the embedding index is ready",
	}, s.handleIndexStatus)
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	if s.ports.Retrieval == nil {
		return nil, QueryOutput{}, errNotConfigured
	}
	topK := input.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	resp, err := s.ports.Retrieval.Query(ctx, domain.QueryInput{
		Text:      input.Query,
		TopK:      topK,
		SourceIDs: input.SourceIDs,
	})
	if err != nil {
		return nil, QueryOutput{}, err
	}

	hits := resp.Hits
	if hits == nil {
		hits = []domain.QueryHit{}
	}
	return nil, QueryOutput{Hits: hits, Count: len(hits)}, nil
}

func (s *Server) handleContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ContextInput,
) (*mcp.CallToolResult, domain.ContextResponse, error) {
	resp, err := s.ports.Evidence.GetContext(ctx, input.ChunkID, input.Window)
	if err != nil {
		return nil, domain.ContextResponse{}, err
	}
	return nil, *resp, nil
}

func (s *Server) handleChunk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChunkInput,
) (*mcp.CallToolResult, ChunkOutput, error) {
	chunk, err := s.ports.Evidence.GetChunk(ctx, input.ChunkID)
	if err != nil {
		return nil, ChunkOutput{}, err
	}
	return nil, ChunkOutput{Chunk: *chunk, Citation: chunk.Citation()}, nil
}

func (s *Server) handleDraft(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DraftInput,
) (*mcp.CallToolResult, domain.DraftResponse, error) {
	if s.ports.Draft == nil {
		return nil, domain.DraftResponse{}, errNotConfigured
	}
	resp, err := s.ports.Draft.DraftSection(ctx, domain.DraftRequest{
		SectionID:        domain.SectionID(input.SectionID),
		QuarterLabel:     input.QuarterLabel,
		Prompt:           input.Prompt,
		CitationChunkIDs: input.ChunkIDs,
	})
	if err != nil {
		return nil, domain.DraftResponse{}, err
	}
	return nil, *resp, nil
}

func (s *Server) handleIndexStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ IndexStatusInput,
) (*mcp.CallToolResult, IndexStatusOutput, error) {
	if s.ports.Index == nil {
		return nil, IndexStatusOutput{}, errNotConfigured
	}
	status, err := s.ports.Index.Status(ctx)
	if err != nil {
		return nil, IndexStatusOutput{}, err
	}

	out := IndexStatusOutput{
		Ready:       status.Ready,
		Model:       status.Model,
		Dims:        status.Dims,
		ChunkCount:  status.ChunkCount,
		ChunksTotal: status.ChunksTotal,
		SourceID:    status.SourceID,
	}
	if !status.UpdatedAt.IsZero() {
		out.UpdatedAt = status.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return nil, out, nil
}
