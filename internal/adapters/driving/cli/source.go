package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

var (
	sourceType  string
	sourceFile  string
	sourceDir   string
	sourcePaste string
	sourceLabel string
	sourceJSON  bool
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage evidence sources",
	Long: `Register and list evidence sources.

A source is a file, a directory or pasted text. Sanitized incident exports
must be registered as a directory.`,
}

var sourceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register an evidence source",
	Long: `Register an evidence source. Exactly one of --file, --dir or --paste is required.

Source types:
  sanitized_export    - directory holding incidents.json, timeline_events.json and warnings.json
  incident_report_md  - Markdown incident report
  slack_transcript    - exported chat transcript
  freeform_text       - any other text

Examples:
  qir-evidence source add --type incident_report_md --file ./INC-42.md
  qir-evidence source add --type sanitized_export --dir ./export
  pbpaste | qir-evidence source add --type freeform_text --paste - --label "notes"`,
	Args: cobra.NoArgs,
	RunE: runSourceAdd,
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sources",
	Args:  cobra.NoArgs,
	RunE:  runSourceList,
}

func init() {
	sourceAddCmd.Flags().StringVarP(&sourceType, "type", "t", "", "source type (required)")
	sourceAddCmd.Flags().StringVar(&sourceFile, "file", "", "path to a source file")
	sourceAddCmd.Flags().StringVar(&sourceDir, "dir", "", "path to a source directory")
	sourceAddCmd.Flags().StringVar(&sourcePaste, "paste", "", "file whose text is pasted into the store, or - for stdin")
	sourceAddCmd.Flags().StringVarP(&sourceLabel, "label", "l", "", "human-readable label (default: base name of the path)")
	sourceAddCmd.Flags().BoolVar(&sourceJSON, "json", false, "output the source as JSON")
	_ = sourceAddCmd.MarkFlagRequired("type")
	sourceAddCmd.MarkFlagsMutuallyExclusive("file", "dir", "paste")
	sourceAddCmd.MarkFlagsOneRequired("file", "dir", "paste")

	sourceListCmd.Flags().BoolVar(&sourceJSON, "json", false, "output sources as JSON")

	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceListCmd)
	rootCmd.AddCommand(sourceCmd)
}

func runSourceAdd(cmd *cobra.Command, _ []string) error {
	if evidenceService == nil {
		return notConfigured("evidence")
	}

	input, err := sourceInput(cmd.InOrStdin())
	if err != nil {
		return err
	}

	src, err := evidenceService.AddSource(cmd.Context(), input)
	if err != nil {
		return err
	}

	if sourceJSON {
		return printJSON(cmd, src)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Added source %s\n", src.ID)
	fmt.Fprintf(out, "  Type:   %s\n", src.Type)
	fmt.Fprintf(out, "  Origin: %s\n", describeOrigin(src.Origin))
	if src.Label != "" {
		fmt.Fprintf(out, "  Label:  %s\n", src.Label)
	}
	return nil
}

// sourceInput builds the add request from flags. Paths are made absolute so
// the source ID does not depend on the working directory.
func sourceInput(stdin io.Reader) (domain.AddSourceInput, error) {
	input := domain.AddSourceInput{
		Type:      domain.SourceType(sourceType),
		Label:     sourceLabel,
		CreatedAt: now(),
	}

	switch {
	case sourceFile != "":
		path, err := filepath.Abs(sourceFile)
		if err != nil {
			return input, fmt.Errorf("resolve %s: %w", sourceFile, err)
		}
		input.Origin = domain.EvidenceOrigin{Kind: domain.OriginKindFile, Path: &path}
	case sourceDir != "":
		path, err := filepath.Abs(sourceDir)
		if err != nil {
			return input, fmt.Errorf("resolve %s: %w", sourceDir, err)
		}
		input.Origin = domain.EvidenceOrigin{Kind: domain.OriginKindDirectory, Path: &path}
	case sourcePaste != "":
		var data []byte
		var err error
		if sourcePaste == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(sourcePaste)
		}
		if err != nil {
			return input, fmt.Errorf("read paste: %w", err)
		}
		input.Origin = domain.EvidenceOrigin{Kind: domain.OriginKindPaste}
		input.Text = string(data)
	default:
		return input, fmt.Errorf("one of --file, --dir or --paste is required")
	}
	if strings.TrimSpace(input.Label) == "" {
		input.Label = defaultLabel(input.Origin)
	}
	return input, nil
}

func runSourceList(cmd *cobra.Command, _ []string) error {
	if evidenceService == nil {
		return notConfigured("evidence")
	}

	sources, err := evidenceService.ListSources(cmd.Context())
	if err != nil {
		return err
	}

	if sourceJSON {
		if sources == nil {
			sources = []domain.EvidenceSource{}
		}
		return printJSON(cmd, sources)
	}

	out := cmd.OutOrStdout()
	if len(sources) == 0 {
		fmt.Fprintln(out, "No sources registered.")
		return nil
	}
	for i := range sources {
		fmt.Fprintf(out, "  %s\n", sources[i].ID)
		fmt.Fprintf(out, "    Type:    %s\n", sources[i].Type)
		fmt.Fprintf(out, "    Origin:  %s\n", describeOrigin(sources[i].Origin))
		if sources[i].Label != "" {
			fmt.Fprintf(out, "    Label:   %s\n", sources[i].Label)
		}
		fmt.Fprintf(out, "    Created: %s\n", sources[i].CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Total: %d sources\n", len(sources))
	return nil
}

// defaultLabel names a source after its path, or "pasted text".
func defaultLabel(o domain.EvidenceOrigin) string {
	if o.Path == nil {
		return "pasted text"
	}
	return filepath.Base(*o.Path)
}

func describeOrigin(o domain.EvidenceOrigin) string {
	if o.Path == nil || strings.TrimSpace(*o.Path) == "" {
		return string(o.Kind)
	}
	return fmt.Sprintf("%s %s", o.Kind, *o.Path)
}
