package oauth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartRefresherRunsRepeatedly(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := StartRefresher(ctx, "twitch", 20*time.Millisecond, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("job context has no deadline")
		}
		calls.Add(1)
		return nil
	})

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("job ran %d times, want at least 3", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop after cancel")
	}
}

func TestStartRefresherSurvivesErrors(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := StartRefresher(ctx, "twitch", 10*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return errors.New("twitch unavailable")
	})
	time.Sleep(150 * time.Millisecond)
	cancel()
	<-done
	if calls.Load() < 2 {
		t.Errorf("job ran %d times after errors, want >= 2", calls.Load())
	}
}

func TestStartRefresherCancelledBeforeFirstRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	done := StartRefresher(ctx, "twitch", time.Hour, func(context.Context) error {
		called = true
		return nil
	})
	<-done
	if called {
		t.Error("job ran after cancellation")
	}
}

func TestNextDelayBounds(t *testing.T) {
	interval := time.Minute
	for i := 0; i < 200; i++ {
		d := nextDelay(interval)
		if d < 48*time.Second || d > 72*time.Second {
			t.Fatalf("nextDelay() = %v outside +/-20%%", d)
		}
	}
	if nextDelay(2) != 2 {
		t.Error("tiny interval should not be jittered")
	}
}
