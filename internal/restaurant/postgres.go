package restaurant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/postgres"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Schema holds the DDL for the restaurants table. Records are stored whole as
// JSONB; only the columns the store filters or sorts on are broken out.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS restaurants (
		id         UUID PRIMARY KEY,
		data       JSONB NOT NULL,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS restaurants_active_idx ON restaurants (created_at) WHERE NOT is_deleted`,
}

// PostgresStore persists restaurants in PostgreSQL through lib/pq.
type PostgresStore struct {
	db *postgres.Client
}

func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{db: db}
}

func unavailable(op string, err error) error {
	return apperrors.Newf(apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "%s: %v", op, err)
}

func (s *PostgresStore) FindAll(ctx context.Context) ([]*Restaurant, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data, created_at, updated_at FROM restaurants WHERE NOT is_deleted ORDER BY created_at, id`)
	if err != nil {
		return nil, unavailable("querying restaurants", err)
	}
	defer rows.Close()

	var out []*Restaurant
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating restaurants", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Restaurant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(id)
	}
	row := s.db.DB.QueryRowContext(ctx,
		`SELECT data, created_at, updated_at FROM restaurants WHERE id = $1 AND NOT is_deleted`, id)
	r, err := scanRestaurant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	return r, err
}

func (s *PostgresStore) Save(ctx context.Context, r *Restaurant) (*Restaurant, error) {
	rec := r.Clone()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding restaurant: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO restaurants (id, data, is_deleted, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		rec.ID, data, rec.IsDeleted, now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, apperrors.Newf(apperrors.ErrAlreadyExists, http.StatusConflict, "restaurant %s already exists", rec.ID)
		}
		return nil, unavailable("inserting restaurant", err)
	}
	return rec, nil
}

func (s *PostgresStore) Update(ctx context.Context, r *Restaurant) (*Restaurant, error) {
	if _, err := uuid.Parse(r.ID); err != nil {
		return nil, notFound(r.ID)
	}
	rec := r.Clone()
	rec.UpdatedAt = time.Now().UTC()

	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT created_at FROM restaurants WHERE id = $1 FOR UPDATE`, rec.ID).Scan(&rec.CreatedAt); err != nil {
			return err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding restaurant: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE restaurants SET data = $2, is_deleted = $3, updated_at = $4 WHERE id = $1`,
			rec.ID, data, rec.IsDeleted, rec.UpdatedAt)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(rec.ID)
	}
	if err != nil {
		return nil, unavailable("updating restaurant", err)
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRestaurant(row scanner) (*Restaurant, error) {
	var (
		data    []byte
		created time.Time
		updated time.Time
	)
	if err := row.Scan(&data, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, unavailable("scanning restaurant", err)
	}
	var r Restaurant
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding restaurant: %w", err)
	}
	r.CreatedAt, r.UpdatedAt = created, updated
	return &r, nil
}
