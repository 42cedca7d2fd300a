package versions

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu      sync.RWMutex
	seq     int
	byID    map[string]Version
	history map[string][]string // documentID -> version ids in creation order
	current map[string]string   // documentID -> current version id
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]Version),
		history: make(map[string][]string),
		current: make(map[string]string),
	}
}

// Create appends v to its document history and makes it current.
func (r *MemoryRepo) Create(ctx context.Context, v Version) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[v.ID]; exists {
		return Version{}, ErrInvalidInput
	}
	r.seq++
	v.Seq = r.seq
	stored := v.clone()
	r.byID[v.ID] = stored
	r.history[v.DocumentID] = append(r.history[v.DocumentID], v.ID)
	r.current[v.DocumentID] = v.ID
	return stored.clone(), nil
}

// GetByID returns a version by id.
func (r *MemoryRepo) GetByID(ctx context.Context, versionID string) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byID[versionID]
	if !ok {
		return Version{}, ErrNotFound
	}
	return v.clone(), nil
}

// GetCurrent returns the current version of a document.
func (r *MemoryRepo) GetCurrent(ctx context.Context, documentID string) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.current[documentID]
	if !ok {
		return Version{}, ErrNotFound
	}
	return r.byID[id].clone(), nil
}

// ListByDocument returns a document's versions, newest first.
func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string) ([]Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	ids := r.history[documentID]
	out := make([]Version, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id].clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Seq > out[j].Seq
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
