// Package mcp provides an MCP (Model Context Protocol) server adapter for
// the evidence engine. It lets AI assistants query approved evidence and
// draft grounded report sections over stdio or HTTP.
package mcp

import "errors"

// ErrMissingEvidenceService is returned when the evidence service is not provided.
var ErrMissingEvidenceService = errors.New("mcp: evidence service is required")

// errNotConfigured is returned by tools whose backing service is absent.
var errNotConfigured = errors.New("mcp: service not configured")
