package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err), slog.String("component", "http"))
	}
}

// HandleHealthz is the liveness probe: the process is up and the token database answers.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.deps.DB != nil {
		if err := h.deps.DB.Ping(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz reports ready once the database answers, the bot is connected to chat and the
// tracked identity has been resolved. The first failing check is named in the response.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error {
			if h.deps.DB == nil {
				return errors.New("not configured")
			}
			return h.deps.DB.Ping(r.Context())
		}},
		{"chat", func() error {
			switch {
			case h.deps.Chat == nil:
				return errors.New("not configured")
			case !h.deps.Chat.HasBotToken():
				return errors.New("bot account not authorized")
			case !h.deps.Chat.Connected():
				return errors.New("not connected")
			}
			return nil
		}},
		{"presence", func() error {
			if h.deps.Presence == nil {
				return errors.New("not configured")
			}
			if !h.deps.Presence.Snapshot().Resolved {
				return errors.New("tracked identity not resolved")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
