package mcp

import (
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Evidence exposes sources, chunks and context windows.
	Evidence driving.EvidenceService

	// Retrieval answers similarity queries.
	Retrieval driving.RetrievalService

	// Index reports index readiness.
	Index driving.IndexService

	// Draft drafts grounded sections.
	Draft driving.DraftService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Evidence == nil {
		return ErrMissingEvidenceService
	}
	// Retrieval, Index and Draft are optional; their tools report
	// errNotConfigured when absent.
	return nil
}
