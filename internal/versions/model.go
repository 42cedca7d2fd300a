package versions

import (
	"time"

	"resume-review/internal/diff"
	"resume-review/internal/review"
	"resume-review/internal/sections"
)

// Version is an immutable snapshot of a document.
type Version struct {
	ID                string            `json:"versionId"`
	DocumentID        string            `json:"documentId"`
	Seq               int               `json:"seq"`
	Content           string            `json:"content"`
	Sections          sections.Sections `json:"sections"`
	TargetDescription *string           `json:"targetDescription,omitempty"`
	ReviewResult      *review.Result    `json:"reviewResult,omitempty"`
	Score             *float64          `json:"score,omitempty"`
	Metadata          map[string]any    `json:"metadata"`
	Changes           []diff.Change     `json:"changes"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// Diff is the section-level comparison of two versions.
type Diff struct {
	FromVersionID string        `json:"fromVersionId"`
	ToVersionID   string        `json:"toVersionId"`
	Changes       []diff.Change `json:"changes"`
	ScoreDelta    *float64      `json:"scoreDelta,omitempty"`
}

// HistoryEntry is the listing projection of a version.
type HistoryEntry struct {
	VersionID         string    `json:"versionId"`
	CreatedAt         time.Time `json:"createdAt"`
	Score             *float64  `json:"score,omitempty"`
	TargetDescription *string   `json:"targetDescription,omitempty"`
}

// VersionImprovement is the score change of one version against its predecessor.
type VersionImprovement struct {
	VersionID         string  `json:"versionId"`
	PreviousVersionID string  `json:"previousVersionId"`
	Improvement       float64 `json:"improvement"`
}

// ImprovementMetrics summarizes score movement across a document's history.
type ImprovementMetrics struct {
	OverallImprovement    float64              `json:"overallImprovement"`
	PerVersionImprovement []VersionImprovement `json:"perVersionImprovement"`
}

// clone returns a copy that shares no mutable state with v.
func (v Version) clone() Version {
	out := v
	if v.TargetDescription != nil {
		s := *v.TargetDescription
		out.TargetDescription = &s
	}
	if v.ReviewResult != nil {
		r := v.ReviewResult.Clone()
		out.ReviewResult = &r
	}
	if v.Score != nil {
		s := *v.Score
		out.Score = &s
	}
	out.Metadata = cloneMetadata(v.Metadata)
	if v.Changes != nil {
		out.Changes = append([]diff.Change(nil), v.Changes...)
	}
	out.Sections = sections.FromEntries(v.Sections.Entries())
	return out
}

func cloneMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
