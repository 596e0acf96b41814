package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.DraftStore = (*Store)(nil)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const draftColumns = `id, quarter_label, section_type, draft_text, citation_chunk_ids,
	model_name, model_params_hash, prompt_template_version, artifact_hash, created_at,
	parent_draft_id, revision_number, revision_notes, branch_label`

// Save inserts a new draft artifact.
func (s *Store) Save(ctx context.Context, draft domain.DraftArtifact) error {
	citations := draft.CitationChunkIDs
	if citations == nil {
		citations = []string{}
	}
	citationsJSON, err := json.Marshal(citations)
	if err != nil {
		return domain.ErrDraftStoreFailed.Wrap(fmt.Errorf("marshal citations: %w", err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (`+draftColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		draft.ID,
		draft.QuarterLabel,
		string(draft.SectionType),
		draft.DraftText,
		string(citationsJSON),
		draft.ModelName,
		draft.ModelParamsHash,
		draft.PromptTemplateVersion,
		draft.ArtifactHash,
		draft.CreatedAt.UTC().Format(timeLayout),
		nullString(draft.ParentDraftID),
		draft.RevisionNumber,
		nullString(draft.RevisionNotes),
		nullString(draft.BranchLabel),
	)
	if err != nil {
		return domain.ErrDraftStoreFailed.Wrap(fmt.Errorf("insert draft %s: %w", draft.ID, err))
	}
	return nil
}

// Get retrieves a draft by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.DraftArtifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = ?`, id)
	draft, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDraftNotFound.WithDetailsf("draft_id=%s", id)
	}
	if err != nil {
		return nil, domain.ErrDraftStoreFailed.Wrap(fmt.Errorf("get draft %s: %w", id, err))
	}
	return draft, nil
}

// ListByQuarter returns drafts for a quarter, newest first.
func (s *Store) ListByQuarter(ctx context.Context, quarterLabel string) ([]domain.DraftArtifact, error) {
	return s.list(ctx, `SELECT `+draftColumns+` FROM drafts
		WHERE quarter_label = ? ORDER BY created_at DESC, id DESC`, quarterLabel)
}

// ListChildren returns drafts whose parent is parentID, oldest first.
func (s *Store) ListChildren(ctx context.Context, parentID string) ([]domain.DraftArtifact, error) {
	return s.list(ctx, `SELECT `+draftColumns+` FROM drafts
		WHERE parent_draft_id = ? ORDER BY created_at ASC, id ASC`, parentID)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]domain.DraftArtifact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.ErrDraftStoreFailed.Wrap(fmt.Errorf("query drafts: %w", err))
	}
	defer rows.Close()

	var drafts []domain.DraftArtifact
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, domain.ErrDraftStoreFailed.Wrap(fmt.Errorf("scan draft: %w", err))
		}
		drafts = append(drafts, *draft)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDraftStoreFailed.Wrap(fmt.Errorf("iterate drafts: %w", err))
	}
	return drafts, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(row scanner) (*domain.DraftArtifact, error) {
	var (
		d             domain.DraftArtifact
		section       string
		citationsJSON string
		createdAt     string
		parentID      sql.NullString
		notes         sql.NullString
		branch        sql.NullString
	)
	err := row.Scan(
		&d.ID,
		&d.QuarterLabel,
		&section,
		&d.DraftText,
		&citationsJSON,
		&d.ModelName,
		&d.ModelParamsHash,
		&d.PromptTemplateVersion,
		&d.ArtifactHash,
		&createdAt,
		&parentID,
		&d.RevisionNumber,
		&notes,
		&branch,
	)
	if err != nil {
		return nil, err
	}

	d.SectionType = domain.SectionID(section)
	if err := json.Unmarshal([]byte(citationsJSON), &d.CitationChunkIDs); err != nil {
		return nil, fmt.Errorf("decode citations of %s: %w", d.ID, err)
	}
	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at of %s: %w", d.ID, err)
	}
	d.CreatedAt = created
	d.ParentDraftID = parentID.String
	d.RevisionNotes = notes.String
	d.BranchLabel = branch.String
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
