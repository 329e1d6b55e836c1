// Package notify mirrors presence transitions to external systems: a Redis key plus pub/sub
// channel, and a retained MQTT topic. Both are optional and configured from the environment.
package notify

import (
	"encoding/json"
	"time"

	"github.com/onnwee/ingame-bot/presence"
)

// Event is the JSON document published for every transition.
type Event struct {
	Identity string    `json:"identity"`
	Platform string    `json:"platform"`
	InGame   bool      `json:"in_game"`
	Edge     string    `json:"edge"`
	At       time.Time `json:"at"`
	GameID   int64     `json:"game_id,omitempty"`
	GameMode string    `json:"game_mode,omitempty"`
	QueueID  int       `json:"queue_id,omitempty"`
	Started  time.Time `json:"game_started_at,omitzero"`
}

// NewEvent flattens a transition.
func NewEvent(t presence.Transition) Event {
	ev := Event{
		Identity: t.Identity.String(),
		Platform: t.Identity.Platform,
		InGame:   t.Edge == presence.EdgeStart,
		Edge:     t.Edge.String(),
		At:       t.At.UTC(),
	}
	if t.Game != nil {
		ev.GameID = t.Game.GameID
		ev.GameMode = t.Game.GameMode
		ev.QueueID = t.Game.QueueID
		ev.Started = t.Game.StartedAt().UTC()
	}
	return ev
}

func (e Event) marshal() ([]byte, error) { return json.Marshal(e) }
