package chat

import (
	"context"
	"fmt"

	"github.com/onnwee/ingame-bot/presence"
)

// Sender delivers one chat line.
type Sender interface {
	Send(ctx context.Context, channel, text string) error
}

// AnnouncementText is the single message sent when the tracked player enters a game.
func AnnouncementText(gameName string) string {
	return fmt.Sprintf("GAME STARTING: %s just entered a game!", gameName)
}

// Announcer posts the announcement on start edges. End edges are ignored.
type Announcer struct {
	Sender  Sender
	Channel string
}

func (a *Announcer) Observe(ctx context.Context, t presence.Transition) error {
	if t.Edge != presence.EdgeStart {
		return nil
	}
	if err := a.Sender.Send(ctx, a.Channel, AnnouncementText(t.Identity.GameName)); err != nil {
		return fmt.Errorf("announce game start: %w", err)
	}
	return nil
}
