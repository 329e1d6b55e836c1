// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	PollCycles          *prometheus.CounterVec // result=ok|unresolved|error
	PresenceTransitions *prometheus.CounterVec // edge=start|end
	RiotRequests        *prometheus.CounterVec // endpoint, outcome
	ChatMessages        *prometheus.CounterVec // result=ok|error
	TokenUpserts        *prometheus.CounterVec // result=ok|error
	TokenRefreshes      *prometheus.CounterVec // result=ok|error
	HTTPRequests        *prometheus.CounterVec // route, code

	// Histograms (seconds)
	RiotRequestDuration *prometheus.HistogramVec
	PollCycleDuration   prometheus.Observer

	// Gauges
	InGameGauge        prometheus.Gauge // 1=in game,0=not
	ChatConnectedGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{Name: "presence_poll_cycles_total", Help: "Presence poll cycles by result"}, []string{"result"})
		PresenceTransitions = promauto.NewCounterVec(prometheus.CounterOpts{Name: "presence_transitions_total", Help: "Presence edges observed"}, []string{"edge"})
		RiotRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "riot_requests_total", Help: "Riot API requests by endpoint and outcome"}, []string{"endpoint", "outcome"})
		ChatMessages = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chat_messages_sent_total", Help: "Chat messages sent by result"}, []string{"result"})
		TokenUpserts = promauto.NewCounterVec(prometheus.CounterOpts{Name: "token_upserts_total", Help: "Credential upserts by result"}, []string{"result"})
		TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{Name: "token_refreshes_total", Help: "OAuth refresh grants by result"}, []string{"result"})
		HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by route and status code"}, []string{"route", "code"})
		RiotRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "riot_request_duration_seconds", Help: "Riot API request duration seconds", Buckets: prometheus.DefBuckets}, []string{"endpoint"})
		PollCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "presence_poll_cycle_duration_seconds", Help: "Presence poll cycle duration seconds", Buckets: prometheus.DefBuckets})
		InGameGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "presence_in_game", Help: "Tracked identity in game=1 not=0"})
		ChatConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_connected", Help: "Twitch chat connected=1 disconnected=0"})
	})
}

// Inc increments a labelled counter when metrics are initialized.
func Inc(c *prometheus.CounterVec, labels ...string) {
	if c != nil {
		c.WithLabelValues(labels...).Inc()
	}
}

// ObserveRiotRequest records one Riot API call.
func ObserveRiotRequest(endpoint, outcome string, d time.Duration) {
	Inc(RiotRequests, endpoint, outcome)
	if RiotRequestDuration != nil {
		RiotRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
	}
}

// SetInGame sets the presence gauge.
func SetInGame(active bool) { setBool(InGameGauge, active) }

// SetChatConnected sets the chat connection gauge.
func SetChatConnected(connected bool) { setBool(ChatConnectedGauge, connected) }

func setBool(g prometheus.Gauge, v bool) {
	if g == nil {
		return
	}
	if v {
		g.Set(1)
	} else {
		g.Set(0)
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// NewCorrelation embeds a fresh random correlation id.
func NewCorrelation(ctx context.Context) context.Context {
	return WithCorrelation(ctx, uuid.NewString())
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
