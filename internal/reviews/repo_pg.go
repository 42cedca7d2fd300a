package reviews

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const sessionColumns = `id, document_id, base_version_id, committed_version_id, content, target_description,
       domain_tag, result, status, error_code, error_message, created_at, updated_at`

// Create inserts a new session.
func (r *PGRepo) Create(ctx context.Context, session Session) error {
	const query = `
INSERT INTO review_sessions (
	id, document_id, base_version_id, committed_version_id, content, target_description,
	domain_tag, result, status, error_code, error_message, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11, $12, $13)`
	result, err := json.Marshal(session.Result)
	if err != nil {
		return fmt.Errorf("encode review result: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, query,
		session.ID,
		session.DocumentID,
		session.BaseVersionID,
		nullString(session.CommittedVersionID),
		session.Content,
		session.TargetDescription,
		session.DomainTag,
		string(result),
		string(session.Status),
		nullString(session.ErrorCode),
		nullString(session.ErrorMessage),
		session.CreatedAt,
		session.UpdatedAt,
	)
	return err
}

// GetByID returns a session by ID.
func (r *PGRepo) GetByID(ctx context.Context, sessionID string) (Session, error) {
	query := `SELECT ` + sessionColumns + `
FROM review_sessions
WHERE id = $1
LIMIT 1`
	s, err := scanSession(r.DB.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return s, err
}

// Update writes the mutable session fields.
func (r *PGRepo) Update(ctx context.Context, session Session) error {
	const query = `
UPDATE review_sessions
SET committed_version_id = $2, result = $3::jsonb, status = $4, error_code = $5, error_message = $6, updated_at = $7
WHERE id = $1`
	result, err := json.Marshal(session.Result)
	if err != nil {
		return fmt.Errorf("encode review result: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, query,
		session.ID,
		nullString(session.CommittedVersionID),
		string(result),
		string(session.Status),
		nullString(session.ErrorCode),
		nullString(session.ErrorMessage),
		session.UpdatedAt,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByDocument returns a document's sessions, newest first.
func (r *PGRepo) ListByDocument(ctx context.Context, documentID string) ([]Session, error) {
	query := `SELECT ` + sessionColumns + `
FROM review_sessions
WHERE document_id = $1
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	var committed sql.NullString
	var result []byte
	var status string
	var errorCode sql.NullString
	var errorMessage sql.NullString
	if err := row.Scan(
		&s.ID,
		&s.DocumentID,
		&s.BaseVersionID,
		&committed,
		&s.Content,
		&s.TargetDescription,
		&s.DomainTag,
		&result,
		&status,
		&errorCode,
		&errorMessage,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return Session{}, err
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &s.Result); err != nil {
			return Session{}, fmt.Errorf("decode review result: %w", err)
		}
	}
	s.Status = Status(status)
	s.CommittedVersionID = stringPtr(committed)
	s.ErrorCode = stringPtr(errorCode)
	s.ErrorMessage = stringPtr(errorMessage)
	return s, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

var _ Repo = (*PGRepo)(nil)
