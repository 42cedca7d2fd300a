package versions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-review/internal/diff"
	"resume-review/internal/review"
	"resume-review/internal/sections"
	"resume-review/internal/shared/metrics"
	"resume-review/internal/shared/telemetry"
	"resume-review/internal/shared/util"
)

// Service is the document version store.
type Service struct {
	Repo      Repo
	Segmenter sections.Segmenter
	Now       func() time.Time

	locks util.KeyLock
}

// CreateInput describes a new version.
type CreateInput struct {
	DocumentID        string
	Content           string
	ReviewResult      *review.Result
	TargetDescription *string
	// Score overrides the score derived from ReviewResult.OverallScore.
	Score    *float64
	Metadata map[string]any
}

// CreateVersion segments the content, diffs it against the current version and appends it as
// the new current version. Writes to one document are serialized.
func (s *Service) CreateVersion(ctx context.Context, in CreateInput) (Version, error) {
	documentID := strings.TrimSpace(in.DocumentID)
	if documentID == "" {
		return Version{}, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	if in.Score != nil && (*in.Score < 0 || *in.Score > 100) {
		return Version{}, fmt.Errorf("%w: score must be between 0 and 100", ErrInvalidInput)
	}

	unlock := s.locks.Lock(documentID)
	defer unlock()

	secs := s.Segmenter.Segment(in.Content)
	createdAt := s.now().UTC().Truncate(time.Microsecond)

	var changes []diff.Change
	prev, err := s.Repo.GetCurrent(ctx, documentID)
	switch {
	case err == nil:
		changes = diff.Sections(s.Segmenter.Segment(prev.Content), secs)
		if !createdAt.After(prev.CreatedAt) {
			createdAt = prev.CreatedAt.Add(time.Microsecond)
		}
	case errors.Is(err, ErrNotFound):
	default:
		return Version{}, err
	}

	if changes == nil {
		changes = []diff.Change{}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Version{}, fmt.Errorf("version id: %w", err)
	}

	v := Version{
		ID:                id.String(),
		DocumentID:        documentID,
		Content:           in.Content,
		Sections:          secs,
		TargetDescription: in.TargetDescription,
		Score:             in.Score,
		Metadata:          cloneMetadata(in.Metadata),
		Changes:           changes,
		CreatedAt:         createdAt,
	}
	if in.ReviewResult != nil {
		res := in.ReviewResult.Clone()
		v.ReviewResult = &res
		if v.Score == nil && res.OverallScore != nil {
			score := *res.OverallScore
			v.Score = &score
		}
	}

	saved, err := s.Repo.Create(ctx, v.clone())
	if err != nil {
		return Version{}, err
	}
	saved.Sections = secs

	metrics.IncVersionsCreated()
	counts := diff.Count(changes)
	telemetry.Info("versions.created", map[string]any{
		"document_id":   documentID,
		"version_id":    saved.ID,
		"seq":           saved.Seq,
		"additions":     counts[diff.KindAddition],
		"deletions":     counts[diff.KindDeletion],
		"modifications": counts[diff.KindModification],
	})
	return saved, nil
}

// GetVersion returns a version by id.
func (s *Service) GetVersion(ctx context.Context, versionID string) (Version, error) {
	v, err := s.Repo.GetByID(ctx, versionID)
	if err != nil {
		return Version{}, err
	}
	return s.hydrate(v), nil
}

// GetCurrentVersion returns the current version of a document.
func (s *Service) GetCurrentVersion(ctx context.Context, documentID string) (Version, error) {
	v, err := s.Repo.GetCurrent(ctx, documentID)
	if err != nil {
		return Version{}, err
	}
	return s.hydrate(v), nil
}

// GetAllVersions returns every version of a document, newest first.
func (s *Service) GetAllVersions(ctx context.Context, documentID string) ([]Version, error) {
	list, err := s.Repo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	for i := range list {
		list[i] = s.hydrate(list[i])
	}
	return list, nil
}

// CompareVersions diffs two versions, re-deriving both section mappings from content.
func (s *Service) CompareVersions(ctx context.Context, fromID, toID string) (Diff, error) {
	from, err := s.Repo.GetByID(ctx, fromID)
	if err != nil {
		return Diff{}, err
	}
	to, err := s.Repo.GetByID(ctx, toID)
	if err != nil {
		return Diff{}, err
	}

	out := Diff{
		FromVersionID: from.ID,
		ToVersionID:   to.ID,
		Changes:       diff.Sections(s.Segmenter.Segment(from.Content), s.Segmenter.Segment(to.Content)),
	}
	if out.Changes == nil {
		out.Changes = []diff.Change{}
	}
	if from.Score != nil && to.Score != nil {
		delta := *to.Score - *from.Score
		out.ScoreDelta = &delta
	}
	return out, nil
}

// GetVersionHistory returns the listing projection of a document's versions, newest first.
func (s *Service) GetVersionHistory(ctx context.Context, documentID string) ([]HistoryEntry, error) {
	list, err := s.Repo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	out := make([]HistoryEntry, 0, len(list))
	for _, v := range list {
		out = append(out, HistoryEntry{
			VersionID:         v.ID,
			CreatedAt:         v.CreatedAt,
			Score:             v.Score,
			TargetDescription: v.TargetDescription,
		})
	}
	return out, nil
}

// GetImprovementMetrics compares each version's score with its immediate predecessor and the
// newest score with the oldest. Pairs missing a score are skipped.
func (s *Service) GetImprovementMetrics(ctx context.Context, documentID string) (ImprovementMetrics, error) {
	list, err := s.Repo.ListByDocument(ctx, documentID)
	if err != nil {
		return ImprovementMetrics{}, err
	}
	if len(list) == 0 {
		return ImprovementMetrics{}, ErrNotFound
	}
	return improvementMetrics(list), nil
}

func improvementMetrics(newestFirst []Version) ImprovementMetrics {
	out := ImprovementMetrics{PerVersionImprovement: []VersionImprovement{}}
	if len(newestFirst) < 2 {
		return out
	}
	for i := 0; i+1 < len(newestFirst); i++ {
		cur, prev := newestFirst[i], newestFirst[i+1]
		if cur.Score == nil || prev.Score == nil {
			continue
		}
		out.PerVersionImprovement = append(out.PerVersionImprovement, VersionImprovement{
			VersionID:         cur.ID,
			PreviousVersionID: prev.ID,
			Improvement:       *cur.Score - *prev.Score,
		})
	}
	newest, oldest := newestFirst[0], newestFirst[len(newestFirst)-1]
	if newest.Score != nil && oldest.Score != nil {
		out.OverallImprovement = *newest.Score - *oldest.Score
	}
	return out
}

// RestoreVersion commits the content of a past version as the new current version. The
// restored version keeps the original review result, score and target description.
func (s *Service) RestoreVersion(ctx context.Context, versionID string, metadata map[string]any) (Version, error) {
	src, err := s.Repo.GetByID(ctx, versionID)
	if err != nil {
		return Version{}, err
	}
	meta := cloneMetadata(metadata)
	meta["restoredFrom"] = src.ID
	return s.CreateVersion(ctx, CreateInput{
		DocumentID:        src.DocumentID,
		Content:           src.Content,
		ReviewResult:      src.ReviewResult,
		TargetDescription: src.TargetDescription,
		Score:             src.Score,
		Metadata:          meta,
	})
}

func (s *Service) hydrate(v Version) Version {
	v.Sections = s.Segmenter.Segment(v.Content)
	if v.Metadata == nil {
		v.Metadata = map[string]any{}
	}
	return v
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
