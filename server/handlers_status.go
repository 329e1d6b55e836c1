package server

import (
	"net/http"
	"time"
)

type gameStatus struct {
	GameID    int64      `json:"game_id"`
	GameMode  string     `json:"game_mode,omitempty"`
	GameType  string     `json:"game_type,omitempty"`
	QueueID   int        `json:"queue_id"`
	MapID     int        `json:"map_id"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

type presenceStatus struct {
	Identity   string      `json:"identity"`
	Platform   string      `json:"platform"`
	Resolved   bool        `json:"resolved"`
	Observed   bool        `json:"observed"`
	InGame     bool        `json:"in_game"`
	ObservedAt *time.Time  `json:"observed_at,omitempty"`
	Game       *gameStatus `json:"game,omitempty"`
}

type chatStatus struct {
	Connected bool `json:"connected"`
	BotToken  bool `json:"bot_token"`
	Accounts  int  `json:"accounts"`
}

type statusResponse struct {
	Presence *presenceStatus `json:"presence,omitempty"`
	Chat     *chatStatus     `json:"chat,omitempty"`
}

// HandleStatus returns the cached presence state and chat session as JSON. It never calls Riot.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var resp statusResponse
	if h.deps.Presence != nil {
		s := h.deps.Presence.Snapshot()
		ps := &presenceStatus{
			Identity: s.Identity.String(),
			Platform: s.Identity.Platform,
			Resolved: s.Resolved,
			Observed: s.Observed,
			InGame:   s.Active,
		}
		if !s.ObservedAt.IsZero() {
			at := s.ObservedAt.UTC()
			ps.ObservedAt = &at
		}
		if s.Game != nil {
			gs := &gameStatus{
				GameID:   s.Game.GameID,
				GameMode: s.Game.GameMode,
				GameType: s.Game.GameType,
				QueueID:  s.Game.QueueID,
				MapID:    s.Game.MapID,
			}
			if st := s.Game.StartedAt(); !st.IsZero() {
				gs.StartedAt = &st
			}
			ps.Game = gs
		}
		resp.Presence = ps
	}
	if h.deps.Chat != nil {
		resp.Chat = &chatStatus{
			Connected: h.deps.Chat.Connected(),
			BotToken:  h.deps.Chat.HasBotToken(),
			Accounts:  h.deps.Chat.AccountCount(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
