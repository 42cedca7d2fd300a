// Package uploads ingests résumé files: the blob is kept in the object store and its text
// becomes a new document version.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-review/internal/extract"
	"resume-review/internal/shared/storage/object"
	"resume-review/internal/shared/telemetry"
	"resume-review/internal/versions"
)

// ErrEmptyDocument is returned when no text could be extracted from an upload.
var ErrEmptyDocument = errors.New("no text found in document")

// Service stores uploads and records their text as versions.
type Service struct {
	Store    object.ObjectStore
	Versions *versions.Service
}

// Input describes one uploaded file.
type Input struct {
	DocumentID        string
	FileName          string
	TargetDescription string
	Data              []byte
}

// Result is the stored blob and the version created from it.
type Result struct {
	StorageKey string           `json:"storageKey"`
	MimeType   string           `json:"mimeType"`
	SizeBytes  int64            `json:"sizeBytes"`
	Version    versions.Version `json:"version"`
}

// Ingest saves the file, extracts its text and creates a version for the document.
func (s *Service) Ingest(ctx context.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.DocumentID) == "" {
		return Result{}, fmt.Errorf("%w: document id is required", versions.ErrInvalidInput)
	}
	key, size, mimeType, err := s.Store.Save(ctx, in.DocumentID, in.FileName, bytes.NewReader(in.Data))
	if err != nil {
		return Result{}, fmt.Errorf("store upload: %w", err)
	}

	text, err := extract.Text(ctx, s.Store, key, mimeType, in.FileName)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyDocument
	}

	var target *string
	if td := strings.TrimSpace(in.TargetDescription); td != "" {
		target = &td
	}
	v, err := s.Versions.CreateVersion(ctx, versions.CreateInput{
		DocumentID:        in.DocumentID,
		Content:           text,
		TargetDescription: target,
		Metadata: map[string]any{
			"source":       "upload",
			"fileName":     in.FileName,
			"mimeType":     mimeType,
			"storageKey":   key,
			"extractedKey": key + extract.ExtractedSuffix,
		},
	})
	if err != nil {
		return Result{}, err
	}

	telemetry.Info("uploads.ingested", map[string]any{
		"document_id": in.DocumentID,
		"version_id":  v.ID,
		"mime_type":   mimeType,
		"size_bytes":  size,
	})
	return Result{StorageKey: key, MimeType: mimeType, SizeBytes: size, Version: v}, nil
}
