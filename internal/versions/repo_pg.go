package versions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"resume-review/internal/diff"
	"resume-review/internal/review"
)

// PGRepo implements Repo using Postgres. Sections are not stored; callers re-derive them from content.
type PGRepo struct {
	DB *sql.DB
}

const versionColumns = `id, document_id, seq, content, target_description, review_result, score, metadata, changes, created_at`

// Create inserts the version, assigns the next per-document seq and moves the document's
// current pointer, all in one transaction.
func (r *PGRepo) Create(ctx context.Context, v Version) (Version, error) {
	const upsertDocument = `
INSERT INTO documents (id, created_at, updated_at)
VALUES ($1, $2, $2)
ON CONFLICT (id) DO NOTHING`

	const insertVersion = `
INSERT INTO document_versions (
    id,
    document_id,
    seq,
    content,
    target_description,
    review_result,
    score,
    metadata,
    changes,
    created_at
) VALUES (
    $1,
    $2,
    (SELECT COALESCE(MAX(seq), 0) + 1 FROM document_versions WHERE document_id = $2),
    $3,
    $4,
    $5::jsonb,
    $6,
    $7::jsonb,
    $8::jsonb,
    $9
)
RETURNING seq`

	const updateCurrent = `
UPDATE documents
SET current_version_id = $1,
    updated_at = $2
WHERE id = $3`

	reviewJSON, err := nullableJSON(v.ReviewResult)
	if err != nil {
		return Version{}, fmt.Errorf("encode review result: %w", err)
	}
	metadataJSON, err := json.Marshal(nonNilMetadata(v.Metadata))
	if err != nil {
		return Version{}, fmt.Errorf("encode metadata: %w", err)
	}
	changes := v.Changes
	if changes == nil {
		changes = []diff.Change{}
	}
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return Version{}, fmt.Errorf("encode changes: %w", err)
	}

	var target sql.NullString
	if v.TargetDescription != nil {
		target = sql.NullString{String: *v.TargetDescription, Valid: true}
	}
	var score sql.NullFloat64
	if v.Score != nil {
		score = sql.NullFloat64{Float64: *v.Score, Valid: true}
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Version{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertDocument, v.DocumentID, v.CreatedAt); err != nil {
		return Version{}, err
	}
	if err := tx.QueryRowContext(
		ctx,
		insertVersion,
		v.ID,
		v.DocumentID,
		v.Content,
		target,
		reviewJSON,
		score,
		string(metadataJSON),
		string(changesJSON),
		v.CreatedAt,
	).Scan(&v.Seq); err != nil {
		return Version{}, err
	}
	if _, err := tx.ExecContext(ctx, updateCurrent, v.ID, v.CreatedAt, v.DocumentID); err != nil {
		return Version{}, err
	}
	if err := tx.Commit(); err != nil {
		return Version{}, err
	}
	return v, nil
}

// GetByID fetches a version by id.
func (r *PGRepo) GetByID(ctx context.Context, versionID string) (Version, error) {
	query := `SELECT ` + versionColumns + `
FROM document_versions
WHERE id = $1`
	v, err := scanVersion(r.DB.QueryRowContext(ctx, query, versionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Version{}, ErrNotFound
		}
		return Version{}, err
	}
	return v, nil
}

// GetCurrent fetches the version the document currently points at.
func (r *PGRepo) GetCurrent(ctx context.Context, documentID string) (Version, error) {
	query := `SELECT v.id, v.document_id, v.seq, v.content, v.target_description, v.review_result, v.score, v.metadata, v.changes, v.created_at
FROM documents d
JOIN document_versions v ON v.id = d.current_version_id
WHERE d.id = $1`
	v, err := scanVersion(r.DB.QueryRowContext(ctx, query, documentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Version{}, ErrNotFound
		}
		return Version{}, err
	}
	return v, nil
}

// ListByDocument returns a document's versions, newest first.
func (r *PGRepo) ListByDocument(ctx context.Context, documentID string) ([]Version, error) {
	query := `SELECT ` + versionColumns + `
FROM document_versions
WHERE document_id = $1
ORDER BY created_at DESC, seq DESC`
	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (Version, error) {
	var (
		v          Version
		target     sql.NullString
		reviewJSON sql.NullString
		score      sql.NullFloat64
		metadata   sql.NullString
		changes    sql.NullString
	)
	if err := row.Scan(
		&v.ID,
		&v.DocumentID,
		&v.Seq,
		&v.Content,
		&target,
		&reviewJSON,
		&score,
		&metadata,
		&changes,
		&v.CreatedAt,
	); err != nil {
		return Version{}, err
	}
	if target.Valid {
		v.TargetDescription = &target.String
	}
	if reviewJSON.Valid && reviewJSON.String != "" {
		var res review.Result
		if err := json.Unmarshal([]byte(reviewJSON.String), &res); err != nil {
			return Version{}, fmt.Errorf("decode review result: %w", err)
		}
		v.ReviewResult = &res
	}
	if score.Valid {
		v.Score = &score.Float64
	}
	v.Metadata = map[string]any{}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &v.Metadata); err != nil {
			return Version{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if changes.Valid && changes.String != "" {
		if err := json.Unmarshal([]byte(changes.String), &v.Changes); err != nil {
			return Version{}, fmt.Errorf("decode changes: %w", err)
		}
	}
	return v, nil
}

func nullableJSON(res *review.Result) (any, error) {
	if res == nil {
		return nil, nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nonNilMetadata(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

var _ Repo = (*PGRepo)(nil)
