// Package server exposes the bot's HTTP surface: liveness and readiness probes, a JSON view of the
// presence state, Prometheus metrics and the Twitch authorization flow that feeds tokens to chat.
// Every request gets a correlation id (X-Correlation-ID, generated when absent) and a span.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"

	"github.com/onnwee/ingame-bot/presence"
	"github.com/onnwee/ingame-bot/twitchapi"
)

const stateTTL = 10 * time.Minute

// PresenceSource provides the cached presence state.
type PresenceSource interface {
	Snapshot() presence.Snapshot
}

// ChatStatus reports the chat session.
type ChatStatus interface {
	Connected() bool
	HasBotToken() bool
	AccountCount() int
	AddToken(ctx context.Context, accessToken, refreshToken string) (*twitchapi.Validation, error)
}

// Authorizer runs the authorization code grant.
type Authorizer interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Pinger checks the token database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators behind the routes. Any of them may be nil; the routes that need a
// missing dependency answer 503.
type Deps struct {
	Presence PresenceSource
	Chat     ChatStatus
	OAuth    Authorizer
	DB       Pinger
}

// Handlers holds route handlers and the pending OAuth states.
type Handlers struct {
	deps   Deps
	states *ttlcache.Cache[string, struct{}]
}

// NewHandlers starts the state cache janitor; it stops when ctx is cancelled.
func NewHandlers(ctx context.Context, deps Deps) *Handlers {
	states := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](stateTTL),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go states.Start()
	go func() {
		<-ctx.Done()
		states.Stop()
	}()
	return &Handlers{deps: deps, states: states}
}

// NewRouter returns the HTTP handler with all routes and middleware.
func NewRouter(ctx context.Context, deps Deps) http.Handler {
	h := NewHandlers(ctx, deps)

	r := mux.NewRouter()
	r.Use(correlationMiddleware)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HandleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.HandleReadyz).Methods(http.MethodGet)
	r.HandleFunc("/status", h.HandleStatus).Methods(http.MethodGet)
	r.HandleFunc("/auth/twitch/start", h.HandleTwitchOAuthStart).Methods(http.MethodGet)
	r.HandleFunc("/auth/twitch/callback", h.HandleTwitchOAuthCallback).Methods(http.MethodGet)

	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(false),
	)(handlers.ProxyHeaders(r))
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
// An addr ending in ":0" picks a free port; the bound address is logged.
func Start(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	slog.Info("http server listening", slog.String("addr", ln.Addr().String()), slog.String("component", "http"))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err), slog.String("component", "http"))
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server error", slog.Any("err", err), slog.String("component", "http"))
		return err
	}
	return nil
}
