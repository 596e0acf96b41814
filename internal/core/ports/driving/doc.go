// Package driving defines the service interfaces the CLI and MCP server call:
// evidence, index, retrieval, drafting and settings.
//
// Implementations live in internal/core/services.
package driving
