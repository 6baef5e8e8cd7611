package partner

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
)

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS restaurant_edits (
		id            UUID PRIMARY KEY,
		owner_id      TEXT NOT NULL,
		restaurant_id TEXT NOT NULL,
		data          JSONB NOT NULL,
		is_deleted    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS restaurant_edits_owner_idx ON restaurant_edits (owner_id) WHERE NOT is_deleted`,
}

type PostgresEditStore struct {
	db *postgres.Client
}

func NewPostgresEditStore(db *postgres.Client) *PostgresEditStore {
	return &PostgresEditStore{db: db}
}

func unavailable(op string, err error) error {
	return apperrors.Newf(apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "%s: %v", op, err)
}

func (s *PostgresEditStore) Save(ctx context.Context, e *Edit) (*Edit, error) {
	c := e.clone()
	c.ID = uuid.NewString()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding edit: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO restaurant_edits (id, owner_id, restaurant_id, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		c.ID, c.OwnerID, c.RestaurantID, data, now)
	if err != nil {
		return nil, unavailable("inserting edit", err)
	}
	return c, nil
}

func (s *PostgresEditStore) Update(ctx context.Context, e *Edit) (*Edit, error) {
	if _, err := uuid.Parse(e.ID); err != nil {
		return nil, editNotFound(e.ID)
	}
	c := e.clone()
	c.UpdatedAt = time.Now().UTC()

	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT created_at FROM restaurant_edits WHERE id = $1 AND NOT is_deleted FOR UPDATE`,
			c.ID).Scan(&c.CreatedAt); err != nil {
			return err
		}
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encoding edit: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE restaurant_edits SET data = $2, is_deleted = $3, updated_at = $4 WHERE id = $1`,
			c.ID, data, c.IsDeleted, c.UpdatedAt)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, editNotFound(c.ID)
	}
	if err != nil {
		return nil, unavailable("updating edit", err)
	}
	return c, nil
}

func (s *PostgresEditStore) FindByID(ctx context.Context, id string) (*Edit, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, editNotFound(id)
	}
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM restaurant_edits WHERE id = $1 AND NOT is_deleted`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, editNotFound(id)
	}
	if err != nil {
		return nil, unavailable("querying edit", err)
	}
	return decodeEdit(data)
}

func (s *PostgresEditStore) ListByOwner(ctx context.Context, ownerID string) ([]*Edit, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data FROM restaurant_edits WHERE owner_id = $1 AND NOT is_deleted ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, unavailable("listing edits", err)
	}
	defer rows.Close()

	out := []*Edit{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, unavailable("scanning edit", err)
		}
		e, err := decodeEdit(data)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating edits", err)
	}
	return out, nil
}

func decodeEdit(data []byte) (*Edit, error) {
	var e Edit
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decoding edit: %w", err)
	}
	return &e, nil
}
