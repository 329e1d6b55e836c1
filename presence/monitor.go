package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/ingame-bot/riotapi"
	"github.com/onnwee/ingame-bot/telemetry"
)

const (
	tracerName          = "ingame-bot/presence"
	DefaultInterval     = 60 * time.Second
	DefaultErrorBackoff = 120 * time.Second
)

// Resolver is the subset of riotapi.Client the monitor uses.
type Resolver interface {
	ResolveAccount(ctx context.Context, gameName, tagLine string) riotapi.Result[riotapi.Account]
	FetchProfile(ctx context.Context, puuid string) riotapi.Result[riotapi.Profile]
	ActiveGame(ctx context.Context, profileID string) riotapi.Result[riotapi.Game]
}

// Transition is delivered to observers on every edge.
type Transition struct {
	Edge     Edge
	Identity TrackedIdentity
	At       time.Time
	Game     *riotapi.Game
}

// Observer receives edges. Errors are logged by the monitor and never stop the loop.
type Observer interface {
	Observe(ctx context.Context, t Transition) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, t Transition) error

func (f ObserverFunc) Observe(ctx context.Context, t Transition) error { return f(ctx, t) }

// Monitor polls the Riot API for one identity and fans edges out to observers.
type Monitor struct {
	identity     TrackedIdentity
	resolver     Resolver
	state        *State
	observers    []Observer
	interval     time.Duration
	errorBackoff time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
	now          func() time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the wait after a completed cycle.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithErrorBackoff sets the wait after a cycle that failed or panicked.
func WithErrorBackoff(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.errorBackoff = d
		}
	}
}

// WithObservers appends edge observers.
func WithObservers(obs ...Observer) Option {
	return func(m *Monitor) { m.observers = append(m.observers, obs...) }
}

// WithSleep replaces the context-aware sleep between cycles.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Monitor) { m.sleep = fn }
}

// WithClock replaces time.Now for observation timestamps.
func WithClock(fn func() time.Time) Option {
	return func(m *Monitor) { m.now = fn }
}

// NewMonitor builds a monitor for id. Observers and timings come from opts.
func NewMonitor(id TrackedIdentity, r Resolver, opts ...Option) *Monitor {
	m := &Monitor{
		identity:     id,
		resolver:     r,
		state:        NewState(id),
		interval:     DefaultInterval,
		errorBackoff: DefaultErrorBackoff,
		sleep:        sleepCtx,
		now:          time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Identity returns the tracked identity.
func (m *Monitor) Identity() TrackedIdentity { return m.identity }

// Snapshot returns the current shared state.
func (m *Monitor) Snapshot() Snapshot { return m.state.Snapshot() }

// Run polls until ctx is cancelled and then returns ctx.Err(). Cycles never overlap.
func (m *Monitor) Run(ctx context.Context) error {
	log := slog.Default().With(slog.String("component", "presence"))
	log.Info("presence monitor started",
		slog.String("identity", m.identity.String()),
		slog.String("platform", m.identity.Platform),
		slog.Duration("interval", m.interval))
	for {
		wait := m.interval
		if err := m.safeCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			telemetry.Inc(telemetry.PollCycles, "error")
			log.Error("presence cycle failed", slog.Any("err", err), slog.Duration("retry_in", m.errorBackoff))
			wait = m.errorBackoff
		}
		if err := m.sleep(ctx, wait); err != nil {
			log.Info("presence monitor stopped")
			return err
		}
	}
}

func (m *Monitor) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("presence cycle panic: %v", r)
		}
	}()
	var cycleErr error
	telemetry.TimeFunc(telemetry.PollCycleDuration, func() { cycleErr = m.cycle(ctx) })
	return cycleErr
}

// cycle resolves the identity if needed, queries the active game and emits at most one edge.
func (m *Monitor) cycle(ctx context.Context) error {
	ctx = telemetry.NewCorrelation(ctx)
	ctx, span := telemetry.StartSpan(ctx, tracerName, "presence.cycle",
		attribute.String("presence.identity", m.identity.String()))
	defer span.End()
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "presence"))

	if !m.state.Resolved() {
		account, profile, status := m.resolve(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if status != 0 {
			telemetry.Inc(telemetry.PollCycles, "unresolved")
			log.Warn("could not resolve tracked identity, retrying next cycle",
				slog.String("identity", m.identity.String()), slog.String("status", status.String()))
			return nil
		}
		m.state.setResolved(account.PUUID, profileID(account, profile))
		log.Info("resolved tracked identity",
			slog.String("identity", m.identity.String()),
			slog.Int64("summoner_level", profile.SummonerLevel))
	}

	res := m.resolver.ActiveGame(ctx, m.state.ProfileID())
	if err := ctx.Err(); err != nil {
		return err
	}
	active := res.Outcome == riotapi.OK
	var game *riotapi.Game
	if active {
		g := res.Value
		game = &g
	}
	now := m.now()
	edge := m.state.observe(active, game, now)
	telemetry.SetInGame(active)
	telemetry.Inc(telemetry.PollCycles, "ok")
	span.SetAttributes(attribute.Bool("presence.active", active), attribute.String("presence.edge", edge.String()))

	if edge == 0 {
		log.Debug("presence unchanged", slog.Bool("in_game", active))
		return nil
	}
	telemetry.Inc(telemetry.PresenceTransitions, edge.String())
	attrs := []any{slog.String("edge", edge.String()), slog.String("identity", m.identity.String())}
	if game != nil {
		attrs = append(attrs, slog.Int64("game_id", game.GameID), slog.String("mode", game.GameMode), slog.Int("queue", game.QueueID))
	}
	log.Info("presence changed", attrs...)
	m.notify(ctx, Transition{Edge: edge, Identity: m.identity, At: now, Game: game})
	return nil
}

func (m *Monitor) notify(ctx context.Context, t Transition) {
	for _, o := range m.observers {
		if err := o.Observe(ctx, t); err != nil {
			telemetry.LoggerWithCorr(ctx).Error("presence observer failed",
				slog.String("edge", t.Edge.String()), slog.Any("err", err), slog.String("component", "presence"))
		}
	}
}

// resolve runs account then profile lookup. A non-zero status names the stage that failed.
func (m *Monitor) resolve(ctx context.Context) (riotapi.Account, riotapi.Profile, CheckStatus) {
	acc := m.resolver.ResolveAccount(ctx, m.identity.GameName, m.identity.TagLine)
	if !acc.OK() || acc.Value.PUUID == "" {
		return riotapi.Account{}, riotapi.Profile{}, CheckAccountNotFound
	}
	prof := m.resolver.FetchProfile(ctx, acc.Value.PUUID)
	if !prof.OK() {
		return acc.Value, riotapi.Profile{}, CheckProfileNotFound
	}
	return acc.Value, prof.Value, 0
}

// profileID is the key spectator-v5 accepts: the profile's PUUID, falling back to the account's.
func profileID(acc riotapi.Account, prof riotapi.Profile) string {
	if prof.PUUID != "" {
		return prof.PUUID
	}
	return acc.PUUID
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsShutdown reports whether err is the result of Run stopping on cancellation.
func IsShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
