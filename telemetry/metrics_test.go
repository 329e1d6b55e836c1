package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	first := RiotRequests
	Init()
	if RiotRequests != first {
		t.Fatal("Init re-registered metrics")
	}
	if PollCycles == nil || PresenceTransitions == nil || InGameGauge == nil || PollCycleDuration == nil {
		t.Fatal("metrics not initialized")
	}
}

func TestObserveRiotRequest(t *testing.T) {
	Init()
	before := testutil.ToFloat64(RiotRequests.WithLabelValues("spectator", "not_found"))
	ObserveRiotRequest("spectator", "not_found", 20*time.Millisecond)
	after := testutil.ToFloat64(RiotRequests.WithLabelValues("spectator", "not_found"))
	if after-before != 1 {
		t.Errorf("counter delta = %v, want 1", after-before)
	}
}

func TestGauges(t *testing.T) {
	Init()
	SetInGame(true)
	if v := testutil.ToFloat64(InGameGauge); v != 1 {
		t.Errorf("in game gauge = %v, want 1", v)
	}
	SetInGame(false)
	if v := testutil.ToFloat64(InGameGauge); v != 0 {
		t.Errorf("in game gauge = %v, want 0", v)
	}
	SetChatConnected(true)
	if v := testutil.ToFloat64(ChatConnectedGauge); v != 1 {
		t.Errorf("chat gauge = %v, want 1", v)
	}
}

func TestIncNilSafe(t *testing.T) {
	Inc(nil, "x")
	setBool(nil, true)
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	Init()
	d := TimeFunc(PollCycleDuration, func() { time.Sleep(5 * time.Millisecond) })
	if d < 5*time.Millisecond {
		t.Errorf("TimeFunc() = %v, want >= 5ms", d)
	}
	if d := TimeFunc(nil, func() {}); d < 0 {
		t.Errorf("TimeFunc(nil) = %v", d)
	}
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if GetCorrelation(ctx) != "" {
		t.Fatal("expected empty correlation")
	}
	ctx = WithCorrelation(ctx, "abc")
	if GetCorrelation(ctx) != "abc" {
		t.Fatalf("GetCorrelation() = %q", GetCorrelation(ctx))
	}
	if LoggerWithCorr(ctx) == nil {
		t.Fatal("nil logger")
	}
	ctx = NewCorrelation(context.Background())
	if len(GetCorrelation(ctx)) != 36 {
		t.Errorf("NewCorrelation id = %q, want uuid", GetCorrelation(ctx))
	}
}
