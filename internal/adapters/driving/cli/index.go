package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

var (
	indexSource string
	indexModel  string
	indexJSON   bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and inspect the embedding index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Embed new or changed chunks",
	Long: `Embeds chunks whose text changed since the last build and drops vectors
for chunks that no longer exist. Switching model or scope re-embeds everything.`,
	Args: cobra.NoArgs,
	RunE: runIndexBuild,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index readiness",
	Args:  cobra.NoArgs,
	RunE:  runIndexStatus,
}

func init() {
	indexBuildCmd.Flags().StringVarP(&indexSource, "source", "s", "", "restrict the index to one source")
	indexBuildCmd.Flags().StringVarP(&indexModel, "model", "m", "", "embedding model (default from config)")
	indexStatusCmd.Flags().BoolVar(&indexJSON, "json", false, "output status as JSON")

	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexStatusCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return notConfigured("index")
	}

	model := indexModel
	if model == "" {
		var err error
		if model, err = embeddingModel(); err != nil {
			return err
		}
	}

	status, err := indexService.Build(cmd.Context(), domain.IndexBuildInput{
		Model:     model,
		SourceID:  indexSource,
		UpdatedAt: now(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d/%d chunks with %s (%d dims).\n",
		status.ChunkCount, status.ChunksTotal, status.Model, status.Dims)
	return nil
}

func runIndexStatus(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return notConfigured("index")
	}

	status, err := indexService.Status(cmd.Context())
	if err != nil {
		return err
	}

	if indexJSON {
		return printJSON(cmd, status)
	}

	out := cmd.OutOrStdout()
	if !status.Ready {
		fmt.Fprintln(out, "Index: not ready")
		fmt.Fprintln(out, "Run 'qir-evidence index build' after building chunks.")
		return nil
	}
	scope := "all sources"
	if status.SourceID != "" {
		scope = "source " + status.SourceID
	}
	fmt.Fprintln(out, "Index: ready")
	fmt.Fprintf(out, "  Model:   %s\n", status.Model)
	fmt.Fprintf(out, "  Dims:    %d\n", status.Dims)
	fmt.Fprintf(out, "  Chunks:  %d/%d\n", status.ChunkCount, status.ChunksTotal)
	fmt.Fprintf(out, "  Scope:   %s\n", scope)
	fmt.Fprintf(out, "  Updated: %s\n", status.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}
