package user

import (
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
	"github.com/google/uuid"
)

type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewMemoryStore(seed ...*User) *MemoryStore {
	s := &MemoryStore{users: make(map[string]*User)}
	for _, u := range seed {
		c := *u
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		s.users[c.ID] = &c
	}
	return s
}

func (s *MemoryStore) Save(ctx context.Context, u *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.UID == u.UID {
			return nil, apperrors.Newf(apperrors.ErrAlreadyExists, http.StatusConflict, "user with uid %s already exists", u.UID)
		}
	}
	c := *u
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	s.users[c.ID] = &c
	out := c
	return &out, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*User, error) {
	return s.find(func(u *User) bool { return u.ID == id }, "id", id)
}

func (s *MemoryStore) FindByUID(ctx context.Context, uid string) (*User, error) {
	return s.find(func(u *User) bool { return u.UID == uid }, "uid", uid)
}

func (s *MemoryStore) FindByPhone(ctx context.Context, phone string) (*User, error) {
	return s.find(func(u *User) bool { return u.PhoneNumber == phone }, "phone number", phone)
}

func (s *MemoryStore) find(match func(*User) bool, field, value string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, notFound(field, value)
}

func notFound(field, value string) error {
	return apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "no user with %s %s", field, value)
}
