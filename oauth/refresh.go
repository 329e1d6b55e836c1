// Package oauth schedules periodic Twitch token maintenance. Each wake-up runs a caller-supplied
// job (normally chat.Channel.LoadTokens, which refreshes tokens near expiry and re-persists
// them). Wake-ups are jittered so several bot instances sharing a database do not refresh in
// lockstep.
package oauth

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

const (
	defaultInterval = time.Hour
	jobTimeout      = 30 * time.Second
)

// RefreshJob performs one maintenance pass.
type RefreshJob func(ctx context.Context) error

// StartRefresher runs job roughly every interval until ctx is cancelled. The returned channel is
// closed when the goroutine exits.
func StartRefresher(ctx context.Context, name string, interval time.Duration, job RefreshJob) <-chan struct{} {
	if interval <= 0 {
		interval = defaultInterval
	}
	done := make(chan struct{})
	//nolint:gosec // G404: scheduling jitter only
	initial := time.Duration(rand.Int63n(int64(interval/2) + 1))
	go func() {
		defer close(done)
		wait := initial
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			runJob(ctx, name, job)
			wait = nextDelay(interval)
		}
	}()
	return done
}

// nextDelay is interval +/- 20%, never below half the interval.
func nextDelay(interval time.Duration) time.Duration {
	spread := int64(interval / 5)
	if spread <= 0 {
		return interval
	}
	//nolint:gosec // G404: scheduling jitter only
	d := interval + time.Duration(rand.Int63n(spread*2)-spread)
	if d < interval/2 {
		d = interval / 2
	}
	return d
}

func runJob(ctx context.Context, name string, job RefreshJob) {
	jctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()
	if err := job(jctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("token refresh failed", slog.String("job", name), slog.Any("err", err), slog.String("component", "oauth"))
		return
	}
	slog.Debug("token refresh pass complete", slog.String("job", name), slog.String("component", "oauth"))
}
