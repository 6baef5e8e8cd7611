package user

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/postgres"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           UUID PRIMARY KEY,
		uid          TEXT NOT NULL UNIQUE,
		name         TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		is_admin     BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS users_phone_idx ON users (phone_number)`,
}

type PostgresStore struct {
	db *postgres.Client
}

func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, u *User) (*User, error) {
	c := *u
	c.ID = uuid.NewString()
	err := s.db.DB.QueryRowContext(ctx,
		`INSERT INTO users (id, uid, name, phone_number, is_admin)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		c.ID, c.UID, c.Name, c.PhoneNumber, c.IsAdmin,
	).Scan(&c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, apperrors.Newf(apperrors.ErrAlreadyExists, http.StatusConflict, "user with uid %s already exists", c.UID)
		}
		return nil, apperrors.Newf(apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "inserting user: %v", err)
	}
	return &c, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound("id", id)
	}
	return s.findOne(ctx, "id", id)
}

func (s *PostgresStore) FindByUID(ctx context.Context, uid string) (*User, error) {
	return s.findOne(ctx, "uid", uid)
}

func (s *PostgresStore) FindByPhone(ctx context.Context, phone string) (*User, error) {
	return s.findOne(ctx, "phone_number", phone)
}

// findOne looks a user up by column, which must be one of the constant
// names above.
func (s *PostgresStore) findOne(ctx context.Context, column, value string) (*User, error) {
	var u User
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, uid, name, phone_number, is_admin, created_at FROM users WHERE `+column+` = $1
		 ORDER BY created_at LIMIT 1`, value,
	).Scan(&u.ID, &u.UID, &u.Name, &u.PhoneNumber, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(column, value)
	}
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "querying user: %v", err)
	}
	return &u, nil
}
