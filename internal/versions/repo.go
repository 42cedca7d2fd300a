package versions

import "context"

// Repo persists versions. Create assigns Seq and makes the version current for its document.
type Repo interface {
	Create(ctx context.Context, v Version) (Version, error)
	GetByID(ctx context.Context, versionID string) (Version, error)
	GetCurrent(ctx context.Context, documentID string) (Version, error)
	// ListByDocument returns versions newest-first; an unknown document yields an empty slice.
	ListByDocument(ctx context.Context, documentID string) ([]Version, error)
}
