package reviews

import "context"

// Repo defines persistence operations for review sessions.
type Repo interface {
	Create(ctx context.Context, session Session) error
	GetByID(ctx context.Context, sessionID string) (Session, error)
	Update(ctx context.Context, session Session) error
	ListByDocument(ctx context.Context, documentID string) ([]Session, error)
}
