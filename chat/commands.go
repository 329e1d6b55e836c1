package chat

import (
	"context"
	"fmt"
	"strings"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/ingame-bot/presence"
)

// Command is one parsed chat command.
type Command struct {
	Name      string
	Args      []string
	Channel   string
	User      string
	MessageID string
}

// CommandFunc answers a command. An empty reply sends nothing.
type CommandFunc func(ctx context.Context, cmd Command) string

// Handle registers fn under name (without prefix, case-insensitive).
func (c *Channel) Handle(name string, fn CommandFunc) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	c.commands[strings.ToLower(name)] = fn
}

func (c *Channel) parseCommand(msg twitch.PrivateMessage) (Command, CommandFunc, bool) {
	text := strings.TrimSpace(msg.Message)
	if !strings.HasPrefix(text, c.opts.Prefix) {
		return Command{}, nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(text, c.opts.Prefix))
	if len(fields) == 0 {
		return Command{}, nil, false
	}
	name := strings.ToLower(fields[0])
	c.cmdMu.RLock()
	fn, ok := c.commands[name]
	c.cmdMu.RUnlock()
	if !ok {
		return Command{}, nil, false
	}
	return Command{
		Name:      name,
		Args:      fields[1:],
		Channel:   msg.Channel,
		User:      msg.User.Name,
		MessageID: msg.ID,
	}, fn, true
}

// PresenceSource is what the presence commands read.
type PresenceSource interface {
	Snapshot() presence.Snapshot
	Check(ctx context.Context) presence.CheckResult
}

// RegisterPresenceCommands adds !gamestatus (cached state) and !retrievegamestatus (fresh check).
func RegisterPresenceCommands(c *Channel, src PresenceSource) {
	c.Handle("gamestatus", func(ctx context.Context, cmd Command) string {
		return GameStatusReply(src.Snapshot())
	})
	c.Handle("retrievegamestatus", func(ctx context.Context, cmd Command) string {
		return CheckReply(src.Check(ctx))
	})
}

// GameStatusReply renders the cached presence state.
func GameStatusReply(s presence.Snapshot) string {
	name := s.Identity.GameName
	switch {
	case !s.Resolved:
		return fmt.Sprintf("Could not find summoner: %s", name)
	case s.Active:
		return fmt.Sprintf("%s is currently in game!", name)
	default:
		return fmt.Sprintf("%s is not in game", name)
	}
}

// CheckReply renders the result of an on-demand check.
func CheckReply(r presence.CheckResult) string {
	id := r.Identity
	switch r.Status {
	case presence.CheckAccountNotFound:
		return fmt.Sprintf("Could not find Riot ID: %s", id)
	case presence.CheckProfileNotFound:
		return fmt.Sprintf("Could not find summoner data for %s", id)
	case presence.CheckInGame:
		return fmt.Sprintf("%s is currently in game!", id.GameName)
	case presence.CheckNotInGame:
		return fmt.Sprintf("%s is not in game", id.GameName)
	default:
		return "Error checking game status"
	}
}
