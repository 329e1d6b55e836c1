package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/ingame-bot/twitchapi"
)

// StreamLister reports the live streams of a channel login.
type StreamLister interface {
	GetStreams(ctx context.Context, login string) ([]twitchapi.Stream, error)
}

// GreetingText is sent when the broadcaster goes live.
func GreetingText(broadcaster string) string {
	return fmt.Sprintf("Hi... %s! You are live!", broadcaster)
}

// LiveWatcher polls Helix and greets the broadcaster on each offline to live change.
// The first poll only records the baseline, so a restart mid-stream greets nobody.
type LiveWatcher struct {
	Streams  StreamLister
	Sender   Sender
	Channel  string
	Interval time.Duration

	live        bool
	initialized bool
}

// Run polls until ctx is cancelled.
func (w *LiveWatcher) Run(ctx context.Context) {
	if w.Channel == "" {
		slog.Info("live watcher: channel empty; abort", slog.String("component", "chat_live"))
		return
	}
	every := w.Interval
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	slog.Info("live watcher: started poller", slog.Duration("interval", every), slog.String("component", "chat_live"))
	for {
		w.poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *LiveWatcher) poll(ctx context.Context) {
	streams, err := w.Streams.GetStreams(ctx, w.Channel)
	if err != nil {
		slog.Debug("live watcher: streams req", slog.Any("err", err), slog.String("component", "chat_live"))
		return
	}
	live := len(streams) > 0
	wasLive, first := w.live, !w.initialized
	w.live, w.initialized = live, true
	if !live || wasLive || first {
		return
	}
	name := streams[0].UserName
	if name == "" {
		name = w.Channel
	}
	slog.Info("live watcher: stream went live", slog.String("channel", w.Channel), slog.String("title", streams[0].Title), slog.String("component", "chat_live"))
	if err := w.Sender.Send(ctx, w.Channel, GreetingText(name)); err != nil {
		slog.Error("live watcher: greeting failed", slog.Any("err", err), slog.String("component", "chat_live"))
	}
}
