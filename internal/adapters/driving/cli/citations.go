package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

var citationsCmd = &cobra.Command{
	Use:   "citations",
	Short: "Check citations against stored evidence",
}

var citationsValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a JSON array of citations",
	Long: `Reads a JSON array of citations ({"chunk_id": ..., "locator": {...}})
from a file, or stdin when the file is "-", and checks that each one still
matches the stored chunk's source, ordinal and text hash.`,
	Args: cobra.ExactArgs(1),
	RunE: runCitationsValidate,
}

func init() {
	citationsCmd.AddCommand(citationsValidateCmd)
	rootCmd.AddCommand(citationsCmd)
}

func runCitationsValidate(cmd *cobra.Command, args []string) error {
	if evidenceService == nil {
		return notConfigured("evidence")
	}

	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read citations: %w", err)
	}

	var citations []domain.Citation
	if err := json.Unmarshal(data, &citations); err != nil {
		return domain.ErrCitationInvalid.Wrap(err).WithDetailsf("decode citations: %v", err)
	}

	if err := evidenceService.ValidateCitations(cmd.Context(), citations); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "All %d citations are valid.\n", len(citations))
	return nil
}
