package services

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// promptTemplateRevision is bumped whenever a built-in template changes.
const promptTemplateRevision = "v1"

// evidenceSeparator separates evidence blocks in the prompt.
const evidenceSeparator = "\n\n---\n\n"

// promptData fills a section template.
type promptData struct {
	QuarterLabel string
	Prompt       string
	Evidence     string
}

const groundingRules = `Rules (non-negotiable):
1) Use ONLY the evidence chunks provided below. Do not invent facts.
2) Every concrete claim MUST include an inline citation marker in the form [[chunk:<chunk_id>]].
3) If you cannot support a claim with evidence, write UNKNOWN in place of it, inside a paragraph or bullet that cites the evidence it does rely on.
4) Do not compute or infer metrics; treat any metrics in evidence as already computed.`

const promptFooter = `User prompt:
{{.Prompt}}

Evidence chunks:
{{.Evidence}}

Output:
- Return Markdown only.
- Include inline citations as specified.
`

// defaultSectionTemplates are the built-in templates, keyed by section ID.
var defaultSectionTemplates = map[domain.SectionID]string{
	domain.SectionExecSummary: `You are drafting a Quarterly Incident Review executive summary for quarter "{{.QuarterLabel}}".

` + groundingRules + `
5) Write short paragraphs separated by blank lines. Every paragraph must carry at least one citation. Do not add headings.

` + promptFooter,

	domain.SectionQuarterNarrative: `You are drafting the narrative recap of quarter "{{.QuarterLabel}}" for a Quarterly Incident Review.

` + groundingRules + `
5) Tell the quarter in chronological paragraphs separated by blank lines. Every paragraph must carry at least one citation. Do not add headings.

` + promptFooter,

	domain.SectionIncidentHighlightsTop: `You are listing the most significant incidents of quarter "{{.QuarterLabel}}" for a Quarterly Incident Review.

` + groundingRules + `
5) Return a Markdown bullet list using "- ". Every bullet must carry at least one citation.

` + promptFooter,

	domain.SectionThemeAnalysis: `You are identifying recurring themes across the incidents of quarter "{{.QuarterLabel}}" for a Quarterly Incident Review.

` + groundingRules + `
5) Return a Markdown bullet list using "- ", one theme per bullet. Every bullet must carry at least one citation.

` + promptFooter,

	domain.SectionActionPlanNextQuarter: `You are proposing the action plan that follows quarter "{{.QuarterLabel}}" in a Quarterly Incident Review.

` + groundingRules + `
5) Return a Markdown bullet list using "- ", one action per bullet. Every bullet must cite the evidence that motivates it.

` + promptFooter,
}

// DefaultSectionTemplates returns the built-in section templates keyed by
// section ID, for seeding a prompt store.
func DefaultSectionTemplates() map[string]string {
	out := make(map[string]string, len(defaultSectionTemplates))
	for id, tmpl := range defaultSectionTemplates {
		out[string(id)] = tmpl
	}
	return out
}

// templateVersion names the template actually used. Customised templates
// carry a content hash so saved drafts stay auditable.
func templateVersion(section domain.SectionID, tmpl string) string {
	if strings.TrimSpace(tmpl) == strings.TrimSpace(defaultSectionTemplates[section]) {
		return fmt.Sprintf("%s.%s", section, promptTemplateRevision)
	}
	return fmt.Sprintf("%s.custom-%s", section, TextSHA256(tmpl)[:12])
}

// renderPrompt fills a section template.
func renderPrompt(section domain.SectionID, tmpl string, data promptData) (string, error) {
	t, err := template.New(string(section)).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", section, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", section, err)
	}
	return buf.String(), nil
}

// evidenceBlock formats one approved chunk for the prompt.
func evidenceBlock(chunk *domain.EvidenceChunk) string {
	return fmt.Sprintf("[[chunk:%s]] source_id=%s ordinal=%d text_sha256=%s\n%s",
		chunk.ID, chunk.SourceID, chunk.Ordinal, chunk.TextSHA256, chunk.Text)
}

// joinEvidence joins evidence blocks with a visible separator.
func joinEvidence(blocks []string) string {
	return strings.Join(blocks, evidenceSeparator)
}
