package server

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/onnwee/ingame-bot/telemetry"
)

// HandleTwitchOAuthStart redirects to Twitch with a single-use state valid for ten minutes.
func (h *Handlers) HandleTwitchOAuthStart(w http.ResponseWriter, r *http.Request) {
	if h.deps.OAuth == nil {
		http.Error(w, "oauth not configured (need TWITCH_CLIENT_ID + TWITCH_CLIENT_SECRET)", http.StatusServiceUnavailable)
		return
	}
	st := uuid.NewString()
	h.states.Set(st, struct{}{}, stateTTL)
	http.Redirect(w, r, h.deps.OAuth.AuthCodeURL(st), http.StatusFound)
}

// HandleTwitchOAuthCallback exchanges the code and hands the token pair to chat, which validates
// and persists it.
func (h *Handlers) HandleTwitchOAuthCallback(w http.ResponseWriter, r *http.Request) {
	log := telemetry.LoggerWithCorr(r.Context()).With(slog.String("component", "oauth"))
	if h.deps.OAuth == nil || h.deps.Chat == nil {
		http.Error(w, "oauth not configured", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		log.Warn("twitch authorization denied", slog.String("error", e), slog.String("description", q.Get("error_description")))
		http.Error(w, "authorization denied: "+e, http.StatusBadRequest)
		return
	}
	code, st := q.Get("code"), q.Get("state")
	if code == "" || st == "" {
		http.Error(w, "missing code/state", http.StatusBadRequest)
		return
	}
	item, ok := h.states.GetAndDelete(st)
	if !ok || item == nil || item.IsExpired() {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	tok, err := h.deps.OAuth.Exchange(r.Context(), code)
	if err != nil {
		log.Error("twitch code exchange failed", slog.Any("err", err))
		http.Error(w, "code exchange failed", http.StatusBadGateway)
		return
	}
	v, err := h.deps.Chat.AddToken(r.Context(), tok.AccessToken, tok.RefreshToken)
	if err != nil {
		if v == nil {
			log.Error("twitch token rejected", slog.Any("err", err))
			http.Error(w, "token validation failed", http.StatusBadGateway)
			return
		}
		log.Error("token store failed", slog.String("user_id", v.UserID), slog.Any("err", err))
		http.Error(w, "token store failed", http.StatusInternalServerError)
		return
	}
	log.Info("twitch account authorized", slog.String("user_id", v.UserID), slog.String("login", v.Login))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"user_id": v.UserID,
		"login":   v.Login,
		"scopes":  v.Scopes,
	})
}
