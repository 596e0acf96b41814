package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

var (
	draftSection    string
	draftQuarter    string
	draftPrompt     string
	draftPromptFile string
	draftChunks     []string
	draftSave       bool
	draftParent     string
	draftNotes      string
	draftBranch     string
	draftJSON       bool
	draftsQuarter   string
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft a report section from approved chunks",
	Long: `Drafts one report section citing only the chunks passed with --chunk.
The draft is rejected unless every paragraph or bullet carries a
[[chunk:<id>]] marker naming an approved chunk.

Sections:
  exec_summary, quarter_narrative_recap                       - cited paragraphs
  incident_highlights_top_n, theme_analysis,
  action_plan_next_quarter                                    - cited bullets

Examples:
  qir-evidence draft --section exec_summary --quarter 2026-Q1 \
    --chunk 3f2a... --chunk 9c1b... --prompt "Focus on customer impact"
  qir-evidence draft --section theme_analysis --quarter 2026-Q1 \
    --chunk 3f2a... --save --parent 0b6e... --notes "tighter wording"`,
	Args: cobra.NoArgs,
	RunE: runDraft,
}

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Inspect saved drafts",
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved drafts for a quarter, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDraftsList,
}

var draftsShowCmd = &cobra.Command{
	Use:   "show [draft-id]",
	Short: "Show a saved draft",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftsShow,
}

var draftsLineageCmd = &cobra.Command{
	Use:   "lineage [draft-id]",
	Short: "Show where a draft sits in its revision tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftsLineage,
}

func init() {
	draftCmd.Flags().StringVar(&draftSection, "section", "", "section to draft (required)")
	draftCmd.Flags().StringVarP(&draftQuarter, "quarter", "q", "", "quarter label, e.g. 2026-Q1 (required)")
	draftCmd.Flags().StringVarP(&draftPrompt, "prompt", "p", "", "drafting instructions")
	draftCmd.Flags().StringVar(&draftPromptFile, "prompt-file", "", "read drafting instructions from a file, or - for stdin")
	draftCmd.Flags().StringSliceVarP(&draftChunks, "chunk", "c", nil, "approved chunk ID (repeatable, required)")
	draftCmd.Flags().BoolVar(&draftSave, "save", false, "save the draft as an artifact")
	draftCmd.Flags().StringVar(&draftParent, "parent", "", "saved draft this one revises (requires --save)")
	draftCmd.Flags().StringVar(&draftNotes, "notes", "", "revision notes (requires --save)")
	draftCmd.Flags().StringVar(&draftBranch, "branch", "", "branch label (requires --save)")
	draftCmd.Flags().BoolVar(&draftJSON, "json", false, "output the draft as JSON")
	_ = draftCmd.MarkFlagRequired("section")
	_ = draftCmd.MarkFlagRequired("quarter")
	_ = draftCmd.MarkFlagRequired("chunk")
	draftCmd.MarkFlagsMutuallyExclusive("prompt", "prompt-file")

	draftsListCmd.Flags().StringVarP(&draftsQuarter, "quarter", "q", "", "quarter label (required)")
	draftsListCmd.Flags().BoolVar(&draftJSON, "json", false, "output drafts as JSON")
	_ = draftsListCmd.MarkFlagRequired("quarter")
	draftsShowCmd.Flags().BoolVar(&draftJSON, "json", false, "output the draft as JSON")
	draftsLineageCmd.Flags().BoolVar(&draftJSON, "json", false, "output the lineage as JSON")

	draftsCmd.AddCommand(draftsListCmd)
	draftsCmd.AddCommand(draftsShowCmd)
	draftsCmd.AddCommand(draftsLineageCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(draftsCmd)
}

func runDraft(cmd *cobra.Command, _ []string) error {
	if draftService == nil {
		return notConfigured("draft")
	}
	if !draftSave && (draftParent != "" || draftNotes != "" || draftBranch != "") {
		return fmt.Errorf("--parent, --notes and --branch require --save")
	}

	prompt, err := draftPromptText(cmd.InOrStdin())
	if err != nil {
		return err
	}

	resp, err := draftService.DraftSection(cmd.Context(), domain.DraftRequest{
		SectionID:        domain.SectionID(draftSection),
		QuarterLabel:     draftQuarter,
		Prompt:           prompt,
		CitationChunkIDs: draftChunks,
	})
	if err != nil {
		return err
	}

	var artifact *domain.DraftArtifact
	if draftSave {
		artifact, err = draftService.SaveDraft(cmd.Context(), domain.SaveDraftInput{
			QuarterLabel:  draftQuarter,
			Response:      *resp,
			ParentDraftID: draftParent,
			RevisionNotes: draftNotes,
			BranchLabel:   draftBranch,
			CreatedAt:     now(),
		})
		if err != nil {
			return err
		}
	}

	if draftJSON {
		if artifact != nil {
			return printJSON(cmd, struct {
				Draft    *domain.DraftResponse `json:"draft"`
				Artifact *domain.DraftArtifact `json:"artifact"`
			}{resp, artifact})
		}
		return printJSON(cmd, resp)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, strings.TrimRight(resp.Markdown, "\n"))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Citations: %d\n", len(resp.Citations))
	for _, c := range resp.Citations {
		fmt.Fprintf(out, "  %s (source %s, ordinal %d)\n", c.ChunkID, c.Locator.SourceID, c.Locator.Ordinal)
	}
	fmt.Fprintf(out, "Model: %s (%s)\n", resp.ModelName, resp.PromptTemplateVersion)
	if artifact != nil {
		fmt.Fprintf(out, "Saved draft %s (revision %d)\n", artifact.ID, artifact.RevisionNumber)
	}
	return nil
}

func draftPromptText(stdin io.Reader) (string, error) {
	switch draftPromptFile {
	case "":
		return draftPrompt, nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(draftPromptFile)
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		return string(data), nil
	}
}

func runDraftsList(cmd *cobra.Command, _ []string) error {
	if draftService == nil {
		return notConfigured("draft")
	}

	drafts, err := draftService.ListDrafts(cmd.Context(), draftsQuarter)
	if err != nil {
		return err
	}

	if draftJSON {
		if drafts == nil {
			drafts = []domain.DraftArtifact{}
		}
		return printJSON(cmd, drafts)
	}

	out := cmd.OutOrStdout()
	if len(drafts) == 0 {
		fmt.Fprintf(out, "No drafts saved for %s.\n", draftsQuarter)
		return nil
	}
	for i := range drafts {
		printDraftLine(out, &drafts[i])
	}
	fmt.Fprintf(out, "Total: %d drafts\n", len(drafts))
	return nil
}

func runDraftsShow(cmd *cobra.Command, args []string) error {
	if draftService == nil {
		return notConfigured("draft")
	}

	draft, err := draftService.GetDraft(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if draftJSON {
		return printJSON(cmd, draft)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Draft: %s\n\n", draft.ID)
	fmt.Fprintf(out, "  Quarter:   %s\n", draft.QuarterLabel)
	fmt.Fprintf(out, "  Section:   %s\n", draft.SectionType)
	fmt.Fprintf(out, "  Revision:  %d\n", draft.RevisionNumber)
	if !draft.IsRoot() {
		fmt.Fprintf(out, "  Parent:    %s\n", draft.ParentDraftID)
	}
	if draft.BranchLabel != "" {
		fmt.Fprintf(out, "  Branch:    %s\n", draft.BranchLabel)
	}
	if draft.RevisionNotes != "" {
		fmt.Fprintf(out, "  Notes:     %s\n", draft.RevisionNotes)
	}
	fmt.Fprintf(out, "  Model:     %s\n", draft.ModelName)
	fmt.Fprintf(out, "  Template:  %s\n", draft.PromptTemplateVersion)
	fmt.Fprintf(out, "  Hash:      %s\n", draft.ArtifactHash)
	fmt.Fprintf(out, "  Created:   %s\n", draft.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  Citations: %s\n\n", strings.Join(draft.CitationChunkIDs, ", "))
	fmt.Fprintln(out, strings.TrimRight(draft.DraftText, "\n"))
	return nil
}

func runDraftsLineage(cmd *cobra.Command, args []string) error {
	if draftService == nil {
		return notConfigured("draft")
	}

	lineage, err := draftService.DraftLineage(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if draftJSON {
		return printJSON(cmd, lineage)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Path from root:")
	for i := range lineage.Path {
		printDraftLine(out, &lineage.Path[i])
	}
	fmt.Fprintf(out, "Siblings: %d\n", len(lineage.Siblings))
	for i := range lineage.Siblings {
		printDraftLine(out, &lineage.Siblings[i])
	}
	fmt.Fprintf(out, "Children: %d\n", len(lineage.Children))
	for i := range lineage.Children {
		printDraftLine(out, &lineage.Children[i])
	}
	return nil
}

func printDraftLine(out io.Writer, d *domain.DraftArtifact) {
	branch := ""
	if d.BranchLabel != "" {
		branch = " [" + d.BranchLabel + "]"
	}
	fmt.Fprintf(out, "  %s  r%d  %s%s  %s\n",
		d.ID, d.RevisionNumber, d.SectionType, branch, d.CreatedAt.Format("2006-01-02 15:04"))
}
