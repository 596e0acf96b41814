package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qir-evidence/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC.

Use --port to serve streamable HTTP instead. The HTTP listener binds to
127.0.0.1 only.

Tools:
  evidence_query     rank chunks by similarity to a query
  evidence_context   chunks around a chunk within its source
  evidence_chunk     one chunk with its citation locator
  draft_section      draft a section citing only approved chunks
  index_status       index readiness

Resources:
  evidence://sources         registered sources
  evidence://chunks/{id}     chunk text

Examples:
  qir-evidence mcp serve
  qir-evidence mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port on 127.0.0.1 (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Evidence:  evidenceService,
		Retrieval: retrievalService,
		Index:     indexService,
		Draft:     draftService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", mcp.LoopbackAddr(port))
		return server.RunHTTP(cmd.Context(), port)
	}

	return server.Run(cmd.Context())
}
