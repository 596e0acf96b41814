package domain

import "time"

// SectionID names a report section that can be drafted.
type SectionID string

// Draftable report sections.
const (
	SectionExecSummary           SectionID = "exec_summary"
	SectionIncidentHighlightsTop SectionID = "incident_highlights_top_n"
	SectionThemeAnalysis         SectionID = "theme_analysis"
	SectionActionPlanNextQuarter SectionID = "action_plan_next_quarter"
	SectionQuarterNarrative      SectionID = "quarter_narrative_recap"
)

// SectionKind decides which citation-density rule applies to a section.
type SectionKind int

// Section kinds.
const (
	// SectionKindNarrative requires a marker in every paragraph.
	SectionKindNarrative SectionKind = iota
	// SectionKindList requires a marker on every bullet line.
	SectionKindList
)

// AllSections returns every draftable section in display order.
func AllSections() []SectionID {
	return []SectionID{
		SectionExecSummary,
		SectionIncidentHighlightsTop,
		SectionThemeAnalysis,
		SectionActionPlanNextQuarter,
		SectionQuarterNarrative,
	}
}

// IsValid returns true if the section is recognised.
func (s SectionID) IsValid() bool {
	for _, known := range AllSections() {
		if s == known {
			return true
		}
	}
	return false
}

// Kind returns the citation-density rule for the section.
func (s SectionID) Kind() SectionKind {
	switch s {
	case SectionIncidentHighlightsTop, SectionThemeAnalysis, SectionActionPlanNextQuarter:
		return SectionKindList
	default:
		return SectionKindNarrative
	}
}

// String returns the string representation.
func (s SectionID) String() string {
	return string(s)
}

// DraftRequest asks for one section drafted from caller-approved chunks.
type DraftRequest struct {
	SectionID        SectionID `json:"section_id"`
	QuarterLabel     string    `json:"quarter_label"`
	Prompt           string    `json:"prompt"`
	CitationChunkIDs []string  `json:"citation_chunk_ids"`
}

// DraftResponse is an auditable, replayable draft artifact.
type DraftResponse struct {
	SectionID             SectionID  `json:"section_id"`
	Markdown              string     `json:"markdown"`
	Citations             []Citation `json:"citations"`
	ModelName             string     `json:"model_name"`
	ModelParamsHash       string     `json:"model_params_hash"`
	PromptTemplateVersion string     `json:"prompt_template_version"`
}

// CitedChunkIDs returns the chunk IDs of the response's citations.
func (r *DraftResponse) CitedChunkIDs() []string {
	ids := make([]string, 0, len(r.Citations))
	for _, c := range r.Citations {
		ids = append(ids, c.ChunkID)
	}
	return ids
}

// DraftArtifact is a persisted draft, optionally revising a parent draft.
type DraftArtifact struct {
	ID                    string    `json:"id"`
	QuarterLabel          string    `json:"quarter_label"`
	SectionType           SectionID `json:"section_type"`
	DraftText             string    `json:"draft_text"`
	CitationChunkIDs      []string  `json:"citation_chunk_ids"`
	ModelName             string    `json:"model_name"`
	ModelParamsHash       string    `json:"model_params_hash"`
	PromptTemplateVersion string    `json:"prompt_template_version"`
	ArtifactHash          string    `json:"artifact_hash"`
	CreatedAt             time.Time `json:"created_at"`
	ParentDraftID         string    `json:"parent_draft_id,omitempty"`
	RevisionNumber        int       `json:"revision_number"`
	RevisionNotes         string    `json:"revision_notes,omitempty"`
	BranchLabel           string    `json:"branch_label,omitempty"`
}

// IsRoot reports whether the draft has no parent.
func (a *DraftArtifact) IsRoot() bool {
	return a.ParentDraftID == ""
}

// SaveDraftInput persists a draft response, optionally as a revision.
type SaveDraftInput struct {
	QuarterLabel  string
	Response      DraftResponse
	ParentDraftID string
	RevisionNotes string
	BranchLabel   string
	CreatedAt     time.Time
}

// DraftLineage places a draft within its revision tree.
type DraftLineage struct {
	Draft    DraftArtifact   `json:"draft"`
	Root     DraftArtifact   `json:"root"`
	Path     []DraftArtifact `json:"path"`
	Siblings []DraftArtifact `json:"siblings"`
	Children []DraftArtifact `json:"children"`
}
