package domain

import "time"

// SourceType selects how a source's text is chunked.
type SourceType string

// Supported evidence source types.
const (
	SourceTypeSanitizedExport  SourceType = "sanitized_export"
	SourceTypeSlackTranscript  SourceType = "slack_transcript"
	SourceTypeIncidentReportMd SourceType = "incident_report_md"
	SourceTypeFreeformText     SourceType = "freeform_text"
)

// IsValid returns true if the source type is recognised.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeSanitizedExport, SourceTypeSlackTranscript,
		SourceTypeIncidentReportMd, SourceTypeFreeformText:
		return true
	default:
		return false
	}
}

// UsesParagraphPacking reports whether chunks are built by packing paragraphs.
func (t SourceType) UsesParagraphPacking() bool {
	return t != SourceTypeSanitizedExport
}

// OriginKind identifies where a source's text comes from.
type OriginKind string

// Supported origin kinds.
const (
	OriginKindFile      OriginKind = "file"
	OriginKindDirectory OriginKind = "directory"
	OriginKindPaste     OriginKind = "paste"
)

// IsValid returns true if the origin kind is recognised.
func (k OriginKind) IsValid() bool {
	switch k {
	case OriginKindFile, OriginKindDirectory, OriginKindPaste:
		return true
	default:
		return false
	}
}

// EvidenceOrigin locates a source's content. Path is nil for pastes.
type EvidenceOrigin struct {
	Kind OriginKind `json:"kind"`
	Path *string    `json:"path"`
}

// EvidenceSource is a caller-registered origin of evidence text.
type EvidenceSource struct {
	ID        string         `json:"source_id"`
	Type      SourceType     `json:"type"`
	Origin    EvidenceOrigin `json:"origin"`
	Label     string         `json:"label"`
	CreatedAt time.Time      `json:"created_at"`
}

// SourceRecord is the persisted form of a source. ContentRelPath points at
// the stored paste body, relative to the evidence root.
type SourceRecord struct {
	Source         EvidenceSource `json:"source"`
	ContentRelPath string         `json:"content_rel_path,omitempty"`
}

// AddSourceInput describes a source to register.
type AddSourceInput struct {
	Type      SourceType
	Origin    EvidenceOrigin
	Label     string
	CreatedAt time.Time
	// Text is required for paste origins and ignored otherwise.
	Text string
}

// TimeRange bounds the evidence in a chunk. Either end may be unknown.
type TimeRange struct {
	StartTS *string `json:"start_ts"`
	EndTS   *string `json:"end_ts"`
}

// Chunk kinds.
const (
	ChunkKindParagraph               = "paragraph"
	ChunkKindSanitizedIncidentBundle = "sanitized_incident_bundle"
)

// ChunkMeta describes how a chunk was produced.
type ChunkMeta struct {
	Kind         string     `json:"kind"`
	IncidentKeys []string   `json:"incident_keys"`
	TimeRange    *TimeRange `json:"time_range"`
}

// ChunkDraft is a chunk before content addressing assigns it an identity.
type ChunkDraft struct {
	Text string
	Meta ChunkMeta
}

// EvidenceChunk is a content-addressed, immutable unit of evidence text.
type EvidenceChunk struct {
	ID            string    `json:"chunk_id"`
	SourceID      string    `json:"source_id"`
	Ordinal       int       `json:"ordinal"`
	Text          string    `json:"text"`
	TextSHA256    string    `json:"text_sha256"`
	TokenCountEst int       `json:"token_count_est"`
	Meta          ChunkMeta `json:"meta"`
}

// Summary projects the chunk without its text.
func (c *EvidenceChunk) Summary(snippet string) ChunkSummary {
	return ChunkSummary{
		ChunkID:       c.ID,
		SourceID:      c.SourceID,
		Ordinal:       c.Ordinal,
		TextSHA256:    c.TextSHA256,
		TokenCountEst: c.TokenCountEst,
		Meta:          c.Meta,
		Snippet:       snippet,
	}
}

// Locator derives the content-binding locator for this chunk.
func (c *EvidenceChunk) Locator() CitationLocator {
	return CitationLocator{
		SourceID:   c.SourceID,
		Ordinal:    c.Ordinal,
		TextSHA256: c.TextSHA256,
	}
}

// Citation builds a citation pointing at this chunk.
func (c *EvidenceChunk) Citation() Citation {
	return Citation{ChunkID: c.ID, Locator: c.Locator()}
}

// ChunkSummary is a chunk without its text, plus a short leading snippet.
type ChunkSummary struct {
	ChunkID       string    `json:"chunk_id"`
	SourceID      string    `json:"source_id"`
	Ordinal       int       `json:"ordinal"`
	TextSHA256    string    `json:"text_sha256"`
	TokenCountEst int       `json:"token_count_est"`
	Meta          ChunkMeta `json:"meta"`
	Snippet       string    `json:"snippet"`
}

// CharRange is an optional byte range within a chunk's text.
type CharRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// CitationLocator binds a citation to chunk content, not just an identifier.
type CitationLocator struct {
	SourceID   string     `json:"source_id"`
	Ordinal    int        `json:"ordinal"`
	TextSHA256 string     `json:"text_sha256"`
	CharRange  *CharRange `json:"char_range,omitempty"`
}

// Equal reports whether two locators are identical, including char ranges.
func (l CitationLocator) Equal(other CitationLocator) bool {
	if l.SourceID != other.SourceID || l.Ordinal != other.Ordinal || l.TextSHA256 != other.TextSHA256 {
		return false
	}
	if l.CharRange == nil || other.CharRange == nil {
		return l.CharRange == nil && other.CharRange == nil
	}
	return *l.CharRange == *other.CharRange
}

// Citation references a chunk from generated or caller-supplied text.
type Citation struct {
	ChunkID string          `json:"chunk_id"`
	Locator CitationLocator `json:"locator"`
}

// BuildChunksResult reports the outcome of a chunk build.
type BuildChunksResult struct {
	SourceCount int       `json:"source_count"`
	ChunkCount  int       `json:"chunk_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ContextResponse is a window of chunks around a center chunk.
type ContextResponse struct {
	CenterChunkID string         `json:"center_chunk_id"`
	Chunks        []ChunkSummary `json:"chunks"`
}
