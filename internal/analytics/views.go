package analytics

import (
	"context"
	"log/slog"
)

// CounterStore is the subset of the Redis client used for view counts.
type CounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	MGetInt(ctx context.Context, keys ...string) ([]int64, error)
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ViewCounter keeps a per-restaurant view count under prefix+id. A nil
// ViewCounter ignores views and reports zero counts, so the directory runs
// without Redis.
type ViewCounter struct {
	store  CounterStore
	prefix string
	logger *slog.Logger
}

func NewViewCounter(store CounterStore, prefix string) *ViewCounter {
	return &ViewCounter{
		store:  store,
		prefix: prefix,
		logger: slog.Default().With("component", "view-counter"),
	}
}

// Record counts one view of restaurantID. Failures are logged only.
func (v *ViewCounter) Record(ctx context.Context, restaurantID string) {
	if v == nil {
		return
	}
	if _, err := v.store.Incr(ctx, v.prefix+restaurantID); err != nil {
		v.logger.Warn("failed to count restaurant view", "restaurant_id", restaurantID, "error", err)
	}
}

// Counts returns the view count of each id.
func (v *ViewCounter) Counts(ctx context.Context, ids ...string) (map[string]int64, error) {
	out := make(map[string]int64, len(ids))
	if v == nil || len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = v.prefix + id
	}
	vals, err := v.store.MGetInt(ctx, keys...)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		out[id] = vals[i]
	}
	return out, nil
}

// Reset deletes every view counter and returns how many were removed.
func (v *ViewCounter) Reset(ctx context.Context) (int64, error) {
	if v == nil {
		return 0, nil
	}
	n, err := v.store.FlushByPattern(ctx, v.prefix+"*")
	if err != nil {
		return n, err
	}
	v.logger.Info("view counters reset", "deleted", n)
	return n, nil
}
