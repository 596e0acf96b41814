// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Embedder: Maps (model, text) to a fixed-length vector
//   - Generator: Maps (model, prompt) to generated text
//   - Chunker: Splits source text or a sanitized export into chunk drafts
//   - EvidenceRepository: Source, chunk and summary persistence
//   - IndexRepository: Index status, vector and hash persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - DraftStore: Draft artifact persistence. Without it, drafts are returned but not saved.
//   - AIConfigValidator: Network policy and provider health checks.
//   - PromptStore: Customised section templates. Without it, built-in templates are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
