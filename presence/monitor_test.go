package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/ingame-bot/riotapi"
)

var testIdentity = TrackedIdentity{GameName: "Tracked", TagLine: "EUW", Platform: "euw1"}

type fakeResolver struct {
	mu sync.Mutex

	accounts []riotapi.Result[riotapi.Account] // consumed in order, last one repeats
	profile  riotapi.Result[riotapi.Profile]
	games    []riotapi.Result[riotapi.Game] // consumed in order, NotFound once exhausted
	panicOn  int                            // 1-based ActiveGame call that panics

	accountCalls, profileCalls, gameCalls int
	lastProfileID                         string
}

func newFakeResolver(readings ...bool) *fakeResolver {
	r := &fakeResolver{
		accounts: []riotapi.Result[riotapi.Account]{{Outcome: riotapi.OK, Status: 200, Value: riotapi.Account{PUUID: "acct-puuid", GameName: "Tracked", TagLine: "EUW"}}},
		profile:  riotapi.Result[riotapi.Profile]{Outcome: riotapi.OK, Status: 200, Value: riotapi.Profile{PUUID: "prof-puuid", SummonerLevel: 30}},
	}
	for i, active := range readings {
		r.games = append(r.games, gameResult(active, int64(i+1)))
	}
	return r
}

func gameResult(active bool, id int64) riotapi.Result[riotapi.Game] {
	if active {
		return riotapi.Result[riotapi.Game]{Outcome: riotapi.OK, Status: 200, Value: riotapi.Game{GameID: id, GameMode: "CLASSIC"}}
	}
	return riotapi.Result[riotapi.Game]{Outcome: riotapi.NotFound, Status: 404}
}

func (f *fakeResolver) ResolveAccount(ctx context.Context, name, tag string) riotapi.Result[riotapi.Account] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountCalls++
	res := f.accounts[0]
	if len(f.accounts) > 1 {
		f.accounts = f.accounts[1:]
	}
	return res
}

func (f *fakeResolver) FetchProfile(ctx context.Context, puuid string) riotapi.Result[riotapi.Profile] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	return f.profile
}

func (f *fakeResolver) ActiveGame(ctx context.Context, profileID string) riotapi.Result[riotapi.Game] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gameCalls++
	f.lastProfileID = profileID
	if f.panicOn > 0 && f.gameCalls == f.panicOn {
		panic("boom")
	}
	if len(f.games) == 0 {
		return riotapi.Result[riotapi.Game]{Outcome: riotapi.NotFound, Status: 404}
	}
	res := f.games[0]
	f.games = f.games[1:]
	return res
}

func (f *fakeResolver) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accountCalls, f.profileCalls, f.gameCalls
}

type recorder struct {
	mu    sync.Mutex
	edges []Edge
	err   error
}

func (r *recorder) Observe(ctx context.Context, t Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges = append(r.edges, t.Edge)
	return r.err
}

func (r *recorder) count(e Edge) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.edges {
		if got == e {
			n++
		}
	}
	return n
}

func runCycles(t *testing.T, m *Monitor, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := m.safeCycle(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i+1, err)
		}
	}
}

func TestEdgeOnlyNotification(t *testing.T) {
	r := newFakeResolver(false, false, true, true, false, true)
	rec := &recorder{}
	m := NewMonitor(testIdentity, r, WithObservers(rec))
	runCycles(t, m, 6)

	want := []Edge{EdgeStart, EdgeEnd, EdgeStart}
	if len(rec.edges) != len(want) {
		t.Fatalf("edges = %v, want %v", rec.edges, want)
	}
	for i := range want {
		if rec.edges[i] != want[i] {
			t.Fatalf("edges = %v, want %v", rec.edges, want)
		}
	}
	if rec.count(EdgeStart) != 2 || rec.count(EdgeEnd) != 1 {
		t.Errorf("start=%d end=%d, want 2 and 1", rec.count(EdgeStart), rec.count(EdgeEnd))
	}
	if snap := m.Snapshot(); !snap.Active || snap.Game == nil || snap.Game.GameID != 6 {
		t.Errorf("final snapshot = %+v, want active game 6", snap)
	}
}

func TestInitialInactiveFiresNothing(t *testing.T) {
	r := newFakeResolver(false, false, false)
	rec := &recorder{}
	m := NewMonitor(testIdentity, r, WithObservers(rec))

	if snap := m.Snapshot(); snap.Observed {
		t.Fatal("fresh state should not be observed")
	}
	runCycles(t, m, 3)
	if len(rec.edges) != 0 {
		t.Fatalf("edges = %v, want none", rec.edges)
	}
	snap := m.Snapshot()
	if !snap.Observed || snap.Active {
		t.Errorf("snapshot = %+v, want observed and inactive", snap)
	}
}

func TestResolutionMemoized(t *testing.T) {
	r := newFakeResolver(true, true, false, false, true)
	m := NewMonitor(testIdentity, r)
	runCycles(t, m, 5)

	accounts, profiles, games := r.counts()
	if accounts != 1 || profiles != 1 {
		t.Errorf("resolution calls = %d/%d, want 1/1", accounts, profiles)
	}
	if games != 5 {
		t.Errorf("ActiveGame calls = %d, want 5", games)
	}
	if r.lastProfileID != "prof-puuid" {
		t.Errorf("queried profile %q, want prof-puuid", r.lastProfileID)
	}
	snap := m.Snapshot()
	if snap.AccountID != "acct-puuid" || snap.ProfileID != "prof-puuid" || !snap.Resolved {
		t.Errorf("snapshot ids = %+v", snap)
	}
}

func TestResolutionFailureRetriedNextCycle(t *testing.T) {
	r := newFakeResolver(true)
	r.accounts = []riotapi.Result[riotapi.Account]{
		{Outcome: riotapi.TransportError},
		{Outcome: riotapi.OK, Status: 200, Value: riotapi.Account{PUUID: "acct-puuid"}},
	}
	rec := &recorder{}
	m := NewMonitor(testIdentity, r, WithObservers(rec))

	runCycles(t, m, 1)
	if _, _, games := r.counts(); games != 0 {
		t.Fatalf("ActiveGame called %d times before resolution", games)
	}
	if m.Snapshot().Resolved {
		t.Fatal("state resolved after failed lookup")
	}

	runCycles(t, m, 1)
	accounts, _, games := r.counts()
	if accounts != 2 || games != 1 {
		t.Errorf("after retry: accounts=%d games=%d, want 2 and 1", accounts, games)
	}
	if rec.count(EdgeStart) != 1 {
		t.Errorf("start edges = %d, want 1", rec.count(EdgeStart))
	}
}

func TestProfileFailureLeavesUnresolved(t *testing.T) {
	r := newFakeResolver(true)
	r.profile = riotapi.Result[riotapi.Profile]{Outcome: riotapi.NotFound, Status: 404}
	m := NewMonitor(testIdentity, r)
	runCycles(t, m, 2)
	if m.Snapshot().Resolved || m.Snapshot().AccountID != "" {
		t.Fatalf("snapshot = %+v, want unresolved with empty ids", m.Snapshot())
	}
}

func TestFailedQueriesCountAsAbsent(t *testing.T) {
	for _, outcome := range []riotapi.Outcome{riotapi.Unauthorized, riotapi.TransportError, riotapi.Unexpected, riotapi.NotFound} {
		r := newFakeResolver(true)
		r.games = append(r.games, riotapi.Result[riotapi.Game]{Outcome: outcome})
		rec := &recorder{}
		m := NewMonitor(testIdentity, r, WithObservers(rec))
		runCycles(t, m, 2)
		if rec.count(EdgeEnd) != 1 {
			t.Errorf("%v: end edges = %d, want 1", outcome, rec.count(EdgeEnd))
		}
	}
}

func TestObserverErrorDoesNotStopCycle(t *testing.T) {
	r := newFakeResolver(true, false, true)
	failing := &recorder{err: errors.New("chat down")}
	ok := &recorder{}
	m := NewMonitor(testIdentity, r, WithObservers(failing, ok))
	runCycles(t, m, 3)
	if len(ok.edges) != 3 || len(failing.edges) != 3 {
		t.Errorf("observer deliveries = %d/%d, want 3/3", len(failing.edges), len(ok.edges))
	}
}

func TestRunBackoffSelection(t *testing.T) {
	r := newFakeResolver(false, false, false, false)
	r.panicOn = 2

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var sleeps []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		if len(sleeps) == 3 {
			cancel()
			return ctx.Err()
		}
		return nil
	}
	m := NewMonitor(testIdentity, r, WithSleep(sleep))

	err := m.Run(ctx)
	if !errors.Is(err, context.Canceled) || !IsShutdown(err) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	want := []time.Duration{60 * time.Second, 120 * time.Second, 60 * time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", sleeps, want)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Fatalf("sleeps = %v, want %v", sleeps, want)
		}
	}
}

func TestPanicDoesNotMutateState(t *testing.T) {
	r := newFakeResolver(true)
	r.panicOn = 2
	m := NewMonitor(testIdentity, r)
	runCycles(t, m, 1)
	before := m.Snapshot()
	if err := m.safeCycle(context.Background()); err == nil {
		t.Fatal("expected panic to surface as error")
	}
	after := m.Snapshot()
	if after.Active != before.Active || !after.ObservedAt.Equal(before.ObservedAt) {
		t.Errorf("state changed across panic: %+v -> %+v", before, after)
	}
}

func TestRunStopsPromptlyOnCancel(t *testing.T) {
	r := newFakeResolver()
	m := NewMonitor(testIdentity, r, WithInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		if _, _, games := r.counts(); games > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first cycle never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTimestampRecordedEachCycle(t *testing.T) {
	r := newFakeResolver(false, false)
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMonitor(testIdentity, r, WithClock(func() time.Time { return clock }))
	runCycles(t, m, 1)
	if !m.Snapshot().ObservedAt.Equal(clock) {
		t.Fatalf("ObservedAt = %v", m.Snapshot().ObservedAt)
	}
	clock = clock.Add(time.Minute)
	runCycles(t, m, 1)
	if !m.Snapshot().ObservedAt.Equal(clock) {
		t.Fatalf("ObservedAt = %v, want %v", m.Snapshot().ObservedAt, clock)
	}
}
