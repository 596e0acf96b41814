package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

var (
	chunksSource string
	chunksWindow int
	chunksJSON   bool
)

var chunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "Build and inspect evidence chunks",
}

var chunksBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild chunks from registered sources",
	Long: `Re-reads sources and regenerates their chunks. Chunk IDs are content
addressed, so unchanged text keeps the same IDs across builds.`,
	Args: cobra.NoArgs,
	RunE: runChunksBuild,
}

var chunksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chunk summaries",
	Args:  cobra.NoArgs,
	RunE:  runChunksList,
}

var chunksShowCmd = &cobra.Command{
	Use:   "show [chunk-id]",
	Short: "Show a chunk with its citation locator",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunksShow,
}

var chunksContextCmd = &cobra.Command{
	Use:   "context [chunk-id]",
	Short: "Show the chunks around a chunk within its source",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunksContext,
}

func init() {
	chunksBuildCmd.Flags().StringVarP(&chunksSource, "source", "s", "", "only rebuild this source")
	chunksListCmd.Flags().StringVarP(&chunksSource, "source", "s", "", "only list chunks of this source")
	chunksListCmd.Flags().BoolVar(&chunksJSON, "json", false, "output summaries as JSON")
	chunksShowCmd.Flags().BoolVar(&chunksJSON, "json", false, "output the chunk as JSON")
	chunksContextCmd.Flags().IntVarP(&chunksWindow, "window", "w", 1, "neighbours on each side")
	chunksContextCmd.Flags().BoolVar(&chunksJSON, "json", false, "output the window as JSON")

	chunksCmd.AddCommand(chunksBuildCmd)
	chunksCmd.AddCommand(chunksListCmd)
	chunksCmd.AddCommand(chunksShowCmd)
	chunksCmd.AddCommand(chunksContextCmd)
	rootCmd.AddCommand(chunksCmd)
}

func runChunksBuild(cmd *cobra.Command, _ []string) error {
	if evidenceService == nil {
		return notConfigured("evidence")
	}

	result, err := evidenceService.BuildChunks(cmd.Context(), chunksSource, now())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Built %d chunks from %d sources.\n", result.ChunkCount, result.SourceCount)
	return nil
}

func runChunksList(cmd *cobra.Command, _ []string) error {
	if evidenceService == nil {
		return notConfigured("evidence")
	}

	summaries, err := evidenceService.ListChunks(cmd.Context(), chunksSource)
	if err != nil {
		return err
	}

	if chunksJSON {
		if summaries == nil {
			summaries = []domain.ChunkSummary{}
		}
		return printJSON(cmd, summaries)
	}

	out := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No chunks found.")
		return nil
	}
	for i := range summaries {
		printSummary(cmd, &summaries[i], "")
	}
	fmt.Fprintf(out, "Total: %d chunks\n", len(summaries))
	return nil
}

func runChunksShow(cmd *cobra.Command, args []string) error {
	if evidenceService == nil {
		return notConfigured("evidence")
	}

	chunk, err := evidenceService.GetChunk(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if chunksJSON {
		return printJSON(cmd, struct {
			Chunk    *domain.EvidenceChunk `json:"chunk"`
			Citation domain.Citation       `json:"citation"`
		}{chunk, chunk.Citation()})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Chunk: %s\n\n", chunk.ID)
	fmt.Fprintf(out, "  Source:   %s\n", chunk.SourceID)
	fmt.Fprintf(out, "  Ordinal:  %d\n", chunk.Ordinal)
	fmt.Fprintf(out, "  SHA-256:  %s\n", chunk.TextSHA256)
	fmt.Fprintf(out, "  Tokens:   ~%d\n", chunk.TokenCountEst)
	fmt.Fprintf(out, "  Kind:     %s\n", chunk.Meta.Kind)
	if len(chunk.Meta.IncidentKeys) > 0 {
		fmt.Fprintf(out, "  Incidents: %v\n", chunk.Meta.IncidentKeys)
	}
	fmt.Fprintf(out, "  Cite as:  [[chunk:%s]]\n\n", chunk.ID)
	fmt.Fprintln(out, chunk.Text)
	return nil
}

func runChunksContext(cmd *cobra.Command, args []string) error {
	if evidenceService == nil {
		return notConfigured("evidence")
	}

	resp, err := evidenceService.GetContext(cmd.Context(), args[0], chunksWindow)
	if err != nil {
		return err
	}

	if chunksJSON {
		return printJSON(cmd, resp)
	}

	for i := range resp.Chunks {
		marker := ""
		if resp.Chunks[i].ChunkID == resp.CenterChunkID {
			marker = " <"
		}
		printSummary(cmd, &resp.Chunks[i], marker)
	}
	return nil
}

func printSummary(cmd *cobra.Command, s *domain.ChunkSummary, marker string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  [%d] %s%s\n", s.Ordinal, s.ChunkID, marker)
	fmt.Fprintf(out, "      Source: %s\n", s.SourceID)
	if s.Snippet != "" {
		fmt.Fprintf(out, "      %s\n", s.Snippet)
	}
	fmt.Fprintln(out)
}
