package resilience

import (
	"context"
	"net/http"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
)

// WithTimeout gives fn at most d. When the deadline passes first the call
// is abandoned and an ErrTimeout AppError is returned; fn keeps running in
// the background until it notices its context. A zero d applies no limit.
func WithTimeout(ctx context.Context, d time.Duration, name string, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- fn(ctx) }()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return apperrors.Newf(apperrors.ErrTimeout, http.StatusGatewayTimeout, "%s exceeded %v", name, d)
		}
		return ctx.Err()
	}
}
