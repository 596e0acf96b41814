// Package domain defines the core entities of the evidence engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - EvidenceSource: A caller-registered origin of evidence text
//   - EvidenceChunk: A content-addressed unit of evidence
//   - Citation: A content-bound reference to a chunk
//   - IndexStatus: The single embedding space over the chunks
//   - DraftResponse / DraftArtifact: Grounded section drafts
//   - Error: Structured failures with stable codes
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
