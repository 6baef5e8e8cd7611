package cache

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/logger"
)

// Writer is a restaurant.Store that keeps the cache in step with writes.
// The store is written first; a failed cache upsert after a successful
// write is logged and left for the next reset to repair.
type Writer struct {
	store  restaurant.Store
	cache  *Cache
	logger *slog.Logger
}

func NewWriter(store restaurant.Store, cache *Cache) *Writer {
	return &Writer{
		store:  store,
		cache:  cache,
		logger: slog.Default().With("component", "cache-writer"),
	}
}

func (w *Writer) FindAll(ctx context.Context) ([]*restaurant.Restaurant, error) {
	return w.store.FindAll(ctx)
}

func (w *Writer) FindByID(ctx context.Context, id string) (*restaurant.Restaurant, error) {
	return w.store.FindByID(ctx, id)
}

func (w *Writer) Save(ctx context.Context, r *restaurant.Restaurant) (*restaurant.Restaurant, error) {
	saved, err := w.store.Save(ctx, r)
	if err != nil {
		return nil, err
	}
	w.upsert(ctx, saved)
	return saved, nil
}

func (w *Writer) Update(ctx context.Context, r *restaurant.Restaurant) (*restaurant.Restaurant, error) {
	updated, err := w.store.Update(ctx, r)
	if err != nil {
		return nil, err
	}
	w.upsert(ctx, updated)
	return updated, nil
}

func (w *Writer) upsert(ctx context.Context, r *restaurant.Restaurant) {
	if err := w.cache.Upsert(ctx, r); err != nil {
		w.logger.Error("cache upsert after store write failed",
			"request_id", logger.RequestID(ctx),
			"restaurant_id", r.ID,
			"error", err,
		)
	}
}
