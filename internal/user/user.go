// Package user manages partner accounts. A user is identified internally by
// ID, externally by the UID issued by the sign-in provider, and looked up by
// phone number during onboarding.
package user

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
)

type User struct {
	ID          string    `json:"id"`
	UID         string    `json:"uid"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phoneNumber"`
	IsAdmin     bool      `json:"isAdmin"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store persists users. Finders return ErrNotFound when nothing matches.
type Store interface {
	Save(ctx context.Context, u *User) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUID(ctx context.Context, uid string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store) *Service {
	return &Service{
		store:  store,
		logger: slog.Default().With("component", "user-service"),
	}
}

// CreateInput is the sign-up payload. Admin rights are never taken from it.
type CreateInput struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	u := &User{
		UID:         strings.TrimSpace(in.UID),
		Name:        strings.TrimSpace(in.Name),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
	}
	switch {
	case u.UID == "":
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "uid is required")
	case u.Name == "":
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "name is required")
	case u.PhoneNumber == "":
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "phoneNumber is required")
	}

	saved, err := s.store.Save(ctx, u)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", "user_id", saved.ID, "uid", saved.UID)
	return saved, nil
}

func (s *Service) GetByUID(ctx context.Context, uid string) (*User, error) {
	return s.store.FindByUID(ctx, uid)
}

// Authenticate resolves the user ID sent by partner clients.
func (s *Service) Authenticate(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, apperrors.New(apperrors.ErrForbidden, http.StatusForbidden, "this route requires an authenticated user")
	}
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		if apperrors.HTTPStatusCode(err) == http.StatusNotFound {
			return nil, apperrors.New(apperrors.ErrForbidden, http.StatusForbidden, "invalid user id in request headers")
		}
		return nil, err
	}
	return u, nil
}

// IsNewUser reports whether no account uses phone. The existing account is
// returned otherwise.
func (s *Service) IsNewUser(ctx context.Context, phone string) (*User, bool, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, false, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "phoneNumber is required")
	}
	u, err := s.store.FindByPhone(ctx, phone)
	if err != nil {
		if apperrors.HTTPStatusCode(err) == http.StatusNotFound {
			return nil, true, nil
		}
		return nil, false, err
	}
	return u, false, nil
}
