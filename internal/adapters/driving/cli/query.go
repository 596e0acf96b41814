package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

var (
	queryTopK    int
	querySources []string
	queryJSON    bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Find evidence similar to a query",
	Long: `Ranks indexed chunks by cosine similarity to the query text.
Each hit carries the citation to use when drafting.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 8, "number of hits (1-50)")
	queryCmd.Flags().StringSliceVarP(&querySources, "source", "s", nil, "only return hits from these sources (repeatable)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output hits as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return notConfigured("retrieval")
	}

	resp, err := retrievalService.Query(cmd.Context(), domain.QueryInput{
		Text:      args[0],
		TopK:      queryTopK,
		SourceIDs: querySources,
	})
	if err != nil {
		return err
	}

	if queryJSON {
		return printJSON(cmd, resp)
	}

	out := cmd.OutOrStdout()
	if len(resp.Hits) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	fmt.Fprintln(out, "Results:")
	fmt.Fprintln(out)
	for i, hit := range resp.Hits {
		fmt.Fprintf(out, "  [%d] %s (%.3f)\n", i+1, hit.ChunkID, hit.Score)
		fmt.Fprintf(out, "      Source: %s, ordinal %d\n", hit.SourceID, hit.Citation.Locator.Ordinal)
		if hit.Snippet != "" {
			fmt.Fprintf(out, "      %s\n", hit.Snippet)
		}
		fmt.Fprintln(out)
	}
	return nil
}
