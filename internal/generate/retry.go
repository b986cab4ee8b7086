package generate

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/docweaver/docweaver/internal/provider"
)

// isTransient reports whether a synthesis error is worth retrying: rate
// limits, server-side failures, timeouts, and network errors. Other client
// errors are permanent and fail the snippet immediately.
func isTransient(err error) bool {
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsTransient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

// backoffDelay returns the sleep before the given retry, doubling from base
// per completed attempt and capped at ceiling. attempt is 1-based.
func backoffDelay(attempt int, base, ceiling time.Duration) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	if d > ceiling {
		return ceiling
	}
	return d
}

// sleepCtx waits for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
