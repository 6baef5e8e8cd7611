package restaurant

import (
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
	"github.com/google/uuid"
)

// Store is the record of truth for restaurants. FindAll and FindByID skip
// soft-deleted records.
type Store interface {
	FindAll(ctx context.Context) ([]*Restaurant, error)
	FindByID(ctx context.Context, id string) (*Restaurant, error)
	Save(ctx context.Context, r *Restaurant) (*Restaurant, error)
	Update(ctx context.Context, r *Restaurant) (*Restaurant, error)
}

func notFound(id string) error {
	return apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "restaurant %s not found", id)
}

// MemoryStore is an in-process Store used for local development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Restaurant
	order   []string
	now     func() time.Time
}

func NewMemoryStore(seed ...*Restaurant) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]*Restaurant),
		now:     time.Now,
	}
	for _, r := range seed {
		s.put(r.Clone())
	}
	return s
}

func (s *MemoryStore) put(r *Restaurant) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, ok := s.records[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.records[r.ID] = r
}

func (s *MemoryStore) FindAll(ctx context.Context) ([]*Restaurant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Restaurant, 0, len(s.order))
	for _, id := range s.order {
		if r := s.records[id]; !r.IsDeleted {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok || r.IsDeleted {
		return nil, notFound(id)
	}
	return r.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, r *Restaurant) (*Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := r.Clone()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if _, exists := s.records[rec.ID]; exists {
		return nil, apperrors.Newf(apperrors.ErrAlreadyExists, http.StatusConflict, "restaurant %s already exists", rec.ID)
	}
	now := s.now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	s.put(rec)
	return rec.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, r *Restaurant) (*Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.records[r.ID]
	if !ok {
		return nil, notFound(r.ID)
	}
	rec := r.Clone()
	rec.CreatedAt = prev.CreatedAt
	rec.UpdatedAt = s.now().UTC()
	s.records[rec.ID] = rec
	return rec.Clone(), nil
}
