package partner

import (
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
	"github.com/google/uuid"
)

// EditStore persists edits. Deleted edits are invisible to both finders.
type EditStore interface {
	Save(ctx context.Context, e *Edit) (*Edit, error)
	Update(ctx context.Context, e *Edit) (*Edit, error)
	FindByID(ctx context.Context, id string) (*Edit, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Edit, error)
}

func editNotFound(id string) error {
	return apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "restaurant edit %s not found", id)
}

type MemoryEditStore struct {
	mu    sync.RWMutex
	edits map[string]*Edit
	order []string
}

func NewMemoryEditStore() *MemoryEditStore {
	return &MemoryEditStore{edits: make(map[string]*Edit)}
}

func (s *MemoryEditStore) Save(ctx context.Context, e *Edit) (*Edit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := e.clone()
	c.ID = uuid.NewString()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	s.edits[c.ID] = c
	s.order = append(s.order, c.ID)
	return c.clone(), nil
}

func (s *MemoryEditStore) Update(ctx context.Context, e *Edit) (*Edit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.edits[e.ID]
	if !ok || prev.IsDeleted {
		return nil, editNotFound(e.ID)
	}
	c := e.clone()
	c.CreatedAt = prev.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	s.edits[c.ID] = c
	return c.clone(), nil
}

func (s *MemoryEditStore) FindByID(ctx context.Context, id string) (*Edit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edits[id]
	if !ok || e.IsDeleted {
		return nil, editNotFound(id)
	}
	return e.clone(), nil
}

func (s *MemoryEditStore) ListByOwner(ctx context.Context, ownerID string) ([]*Edit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*Edit{}
	for _, id := range s.order {
		if e := s.edits[id]; e.OwnerID == ownerID && !e.IsDeleted {
			out = append(out, e.clone())
		}
	}
	return out, nil
}
