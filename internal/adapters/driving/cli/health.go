package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the local Ollama endpoint",
	Long: `Validates the configured Ollama address against the loopback-only policy
and pings it within the health timeout.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{settingsOnlyAnnotation: "true"},
	RunE:        runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return err
	}
	if err := settingsService.CheckHealth(cmd.Context()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ollama is healthy at %s\n", settings.Ollama.BaseURL)
	fmt.Fprintf(out, "  Embedding model:  %s\n", settings.Ollama.EmbeddingModel)
	fmt.Fprintf(out, "  Generation model: %s\n", settings.Ollama.GenerationModel)
	return nil
}
