package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driving"
	"github.com/custodia-labs/qir-evidence/internal/logger"
)

// Ensure DraftService implements the interface.
var _ driving.DraftService = (*DraftService)(nil)

// modelParamsVersion tags the generation parameter set hashed into drafts.
const modelParamsVersion = "ollama-generate.v1"

// DraftConfig names the generation model and endpoint recorded on drafts.
type DraftConfig struct {
	Model    string
	Endpoint string
}

// DraftService drafts report sections grounded in approved evidence and
// manages saved draft artifacts.
type DraftService struct {
	evidence  driving.EvidenceService
	generator driven.Generator
	config    DraftConfig
	prompts   driven.PromptStore
	store     driven.DraftStore
	newID     func() string
	now       func() time.Time
}

// NewDraftService creates a new draft service.
func NewDraftService(evidence driving.EvidenceService, generator driven.Generator, cfg DraftConfig) *DraftService {
	return &DraftService{
		evidence:  evidence,
		generator: generator,
		config:    cfg,
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetPromptStore sets the store for customised section templates.
func (s *DraftService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// SetDraftStore sets the store for saved draft artifacts.
func (s *DraftService) SetDraftStore(store driven.DraftStore) {
	s.store = store
}

// DraftSection validates the approved citations, generates the section and
// rejects any output that is not fully grounded in the approved chunks.
func (s *DraftService) DraftSection(ctx context.Context, req domain.DraftRequest) (*domain.DraftResponse, error) {
	if s.evidence == nil || s.generator == nil {
		return nil, domain.ErrNotImplemented
	}
	logger.Section("Draft Section")

	if !req.SectionID.IsValid() {
		return nil, domain.ErrDraftFailed.WithDetailsf("unknown section %q", req.SectionID)
	}
	if len(req.CitationChunkIDs) == 0 {
		return nil, domain.ErrCitationRequired.WithDetails("at least one citation chunk must be selected")
	}

	approved := make(map[string]bool, len(req.CitationChunkIDs))
	chunks := make([]*domain.EvidenceChunk, 0, len(req.CitationChunkIDs))
	citations := make([]domain.Citation, 0, len(req.CitationChunkIDs))
	for _, id := range req.CitationChunkIDs {
		chunk, err := s.evidence.GetChunk(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrEvidenceNotFound) {
				return nil, domain.ErrCitationInvalid.Wrap(err).WithDetailsf("chunk_id=%s not found", id)
			}
			return nil, err
		}
		approved[id] = true
		chunks = append(chunks, chunk)
		citations = append(citations, chunk.Citation())
	}
	if err := s.evidence.ValidateCitations(ctx, citations); err != nil {
		return nil, err
	}

	blocks := make([]string, 0, len(chunks))
	for _, c := range chunks {
		blocks = append(blocks, evidenceBlock(c))
	}

	tmpl := s.sectionTemplate(req.SectionID)
	prompt, err := renderPrompt(req.SectionID, tmpl, promptData{
		QuarterLabel: req.QuarterLabel,
		Prompt:       req.Prompt,
		Evidence:     joinEvidence(blocks),
	})
	if err != nil {
		return nil, domain.ErrDraftFailed.Wrap(err)
	}
	logger.Debug("Prompt for %s: %d evidence blocks, %d bytes", req.SectionID, len(blocks), len(prompt))

	markdown, err := s.generator.Generate(ctx, s.config.Model, prompt)
	if err != nil {
		var coded *domain.Error
		if errors.As(err, &coded) {
			return nil, err
		}
		return nil, domain.ErrDraftFailed.Wrap(err)
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, domain.ErrDraftFailed.WithDetails("model returned an empty response")
	}

	if err := EnforceSectionDensity(req.SectionID, markdown); err != nil {
		return nil, err
	}

	cited := ExtractCitedChunkIDs(markdown)
	if len(cited) == 0 {
		return nil, domain.ErrCitationRequired.WithDetails("draft contains no well-formed citation markers")
	}
	for _, id := range cited {
		if !approved[id] {
			return nil, domain.ErrCitationInvalid.WithDetailsf("draft cited unapproved chunk_id=%s", id)
		}
	}

	out := make([]domain.Citation, 0, len(cited))
	for _, id := range cited {
		chunk, err := s.evidence.GetChunk(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk.Citation())
	}

	paramsHash, err := s.modelParamsHash()
	if err != nil {
		return nil, domain.ErrDraftFailed.Wrap(err)
	}

	logger.Debug("Draft %s accepted with %d citations", req.SectionID, len(out))
	return &domain.DraftResponse{
		SectionID:             req.SectionID,
		Markdown:              markdown,
		Citations:             out,
		ModelName:             s.config.Model,
		ModelParamsHash:       paramsHash,
		PromptTemplateVersion: templateVersion(req.SectionID, tmpl),
	}, nil
}

// sectionTemplate returns the customised template for a section, falling
// back to the built-in one.
func (s *DraftService) sectionTemplate(section domain.SectionID) string {
	if s.prompts != nil {
		if tmpl, err := s.prompts.Load(string(section)); err == nil && strings.TrimSpace(tmpl) != "" {
			return tmpl
		}
	}
	return defaultSectionTemplates[section]
}

// modelParamsHash hashes every generation parameter that affects output.
func (s *DraftService) modelParamsHash() (string, error) {
	return canonicalSHA256(map[string]any{
		"model":    s.config.Model,
		"endpoint": s.config.Endpoint,
		"stream":   false,
		"version":  modelParamsVersion,
	})
}

// SaveDraft persists a grounded draft, optionally as a revision of a parent.
func (s *DraftService) SaveDraft(ctx context.Context, input domain.SaveDraftInput) (*domain.DraftArtifact, error) {
	if s.store == nil || s.evidence == nil {
		return nil, domain.ErrNotImplemented
	}

	resp := input.Response
	quarter := strings.TrimSpace(input.QuarterLabel)
	if quarter == "" {
		return nil, domain.ErrDraftStoreFailed.WithDetails("quarter label is required")
	}
	if !resp.SectionID.IsValid() {
		return nil, domain.ErrDraftStoreFailed.WithDetailsf("unknown section %q", resp.SectionID)
	}
	if strings.TrimSpace(resp.Markdown) == "" {
		return nil, domain.ErrDraftStoreFailed.WithDetails("draft text is required")
	}

	// Saved drafts must still be grounded in the live evidence.
	if err := s.evidence.ValidateCitations(ctx, resp.Citations); err != nil {
		return nil, err
	}
	cited := ExtractCitedChunkIDs(resp.Markdown)
	if len(cited) == 0 {
		return nil, domain.ErrCitationRequired.WithDetails("draft text contains no citation markers")
	}
	allowed := make(map[string]bool, len(resp.Citations))
	for _, c := range resp.Citations {
		allowed[c.ChunkID] = true
	}
	for _, id := range cited {
		if !allowed[id] {
			return nil, domain.ErrCitationInvalid.WithDetailsf("draft text cites chunk_id=%s outside its citations", id)
		}
	}

	revision := 1
	if input.ParentDraftID != "" {
		parent, err := s.store.Get(ctx, input.ParentDraftID)
		if err != nil {
			return nil, draftLookupError(err, input.ParentDraftID)
		}
		revision = parent.RevisionNumber + 1
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	artifact := domain.DraftArtifact{
		ID:                    s.newID(),
		QuarterLabel:          quarter,
		SectionType:           resp.SectionID,
		DraftText:             resp.Markdown,
		CitationChunkIDs:      cited,
		ModelName:             resp.ModelName,
		ModelParamsHash:       resp.ModelParamsHash,
		PromptTemplateVersion: resp.PromptTemplateVersion,
		CreatedAt:             createdAt,
		ParentDraftID:         input.ParentDraftID,
		RevisionNumber:        revision,
		RevisionNotes:         strings.TrimSpace(input.RevisionNotes),
		BranchLabel:           strings.TrimSpace(input.BranchLabel),
	}
	hash, err := ArtifactHash(artifact)
	if err != nil {
		return nil, domain.ErrDraftStoreFailed.Wrap(err)
	}
	artifact.ArtifactHash = hash

	if err := s.store.Save(ctx, artifact); err != nil {
		return nil, draftStoreError(err)
	}
	logger.Debug("Saved draft %s (%s, revision %d)", artifact.ID, artifact.SectionType, artifact.RevisionNumber)
	return &artifact, nil
}

// ArtifactHash hashes the content fields of a draft. IDs, timestamps and
// revision links are excluded so identical content hashes identically.
func ArtifactHash(a domain.DraftArtifact) (string, error) {
	return canonicalSHA256(map[string]any{
		"quarter_label":           a.QuarterLabel,
		"section_type":            a.SectionType,
		"draft_text":              a.DraftText,
		"citation_chunk_ids":      a.CitationChunkIDs,
		"model_name":              a.ModelName,
		"model_params_hash":       a.ModelParamsHash,
		"prompt_template_version": a.PromptTemplateVersion,
	})
}

// GetDraft retrieves a saved draft.
func (s *DraftService) GetDraft(ctx context.Context, id string) (*domain.DraftArtifact, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	draft, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, draftLookupError(err, id)
	}
	return draft, nil
}

// ListDrafts returns saved drafts for a quarter, newest first.
func (s *DraftService) ListDrafts(ctx context.Context, quarterLabel string) ([]domain.DraftArtifact, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	drafts, err := s.store.ListByQuarter(ctx, strings.TrimSpace(quarterLabel))
	if err != nil {
		return nil, draftStoreError(err)
	}
	return drafts, nil
}

// DraftLineage walks a draft's parents up to its root and collects its
// siblings and children. A parent chain that loops is an error.
func (s *DraftService) DraftLineage(ctx context.Context, id string) (*domain.DraftLineage, error) {
	draft, err := s.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{}
	path := []domain.DraftArtifact{}
	cur := *draft
	for {
		if visited[cur.ID] {
			return nil, domain.ErrDraftLineage.WithDetailsf("circular parent reference at draft %s", cur.ID)
		}
		visited[cur.ID] = true
		path = append([]domain.DraftArtifact{cur}, path...)
		if cur.IsRoot() {
			break
		}
		parent, err := s.store.Get(ctx, cur.ParentDraftID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrDraftLineage.WithDetailsf(
					"draft %s references missing parent %s", cur.ID, cur.ParentDraftID)
			}
			return nil, draftStoreError(err)
		}
		cur = *parent
	}

	siblings := []domain.DraftArtifact{}
	if !draft.IsRoot() {
		peers, err := s.store.ListChildren(ctx, draft.ParentDraftID)
		if err != nil {
			return nil, draftStoreError(err)
		}
		for _, p := range peers {
			if p.ID != draft.ID {
				siblings = append(siblings, p)
			}
		}
	}

	children, err := s.store.ListChildren(ctx, draft.ID)
	if err != nil {
		return nil, draftStoreError(err)
	}
	if children == nil {
		children = []domain.DraftArtifact{}
	}

	return &domain.DraftLineage{
		Draft:    *draft,
		Root:     path[0],
		Path:     path,
		Siblings: siblings,
		Children: children,
	}, nil
}

func draftLookupError(err error, id string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrDraftNotFound.Wrap(err).WithDetailsf("draft_id=%s", id)
	}
	return draftStoreError(err)
}

func draftStoreError(err error) error {
	var coded *domain.Error
	if errors.As(err, &coded) {
		return err
	}
	return domain.ErrDraftStoreFailed.Wrap(err)
}
