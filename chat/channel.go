package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/ingame-bot/telemetry"
)

// ErrNotConnected is wrapped in a TransportError when sending before the IRC session is up.
var ErrNotConnected = errors.New("chat not connected")

// TransportError reports a chat operation that could not reach Twitch.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return "chat " + e.Op + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// IRC is the subset of *twitch.Client the channel drives.
type IRC interface {
	OnConnect(func())
	OnPrivateMessage(func(twitch.PrivateMessage))
	Join(channels ...string)
	Say(channel, text string)
	SetIRCToken(ircToken string)
	Connect() error
	Disconnect() error
}

// IRCFactory builds an IRC client for a login and an "oauth:"-prefixed token.
type IRCFactory func(username, oauthToken string) IRC

func defaultIRC(username, oauthToken string) IRC { return twitch.NewClient(username, oauthToken) }

const (
	defaultReconnectDelay = 10 * time.Second
	commandTimeout        = 30 * time.Second
)

// Options configures a Channel.
type Options struct {
	// Channel is the login of the chat to join.
	Channel string
	// BotID or BotUsername identifies which stored token drives IRC. BotID wins when both are set.
	BotID       string
	BotUsername string
	// Prefix starts a command; defaults to "!".
	Prefix         string
	ReconnectDelay time.Duration
	// Echo receives one "[channel] - user: text" line per inbound message; defaults to stdout.
	Echo io.Writer
	// NewIRC defaults to go-twitch-irc.
	NewIRC IRCFactory
}

type account struct {
	login   string
	access  string
	refresh string
}

// Channel owns the Twitch chat session: it keeps the authorized accounts, connects the bot
// account to IRC, echoes inbound messages and dispatches prefixed commands.
type Channel struct {
	opts   Options
	tokens TokenAPI
	store  CredentialLoader
	hook   AuthorizeHook

	mu        sync.RWMutex
	irc       IRC
	connected bool
	accounts  map[string]account
	botToken  string
	botLogin  string
	baseCtx   context.Context

	botReady     chan struct{}
	botReadyOnce sync.Once
	ready        chan struct{}
	readyOnce    sync.Once

	cmdMu    sync.RWMutex
	commands map[string]CommandFunc

	echoMu sync.Mutex
}

// NewChannel wires a channel. hook runs after every successful AddToken (typically TokenStore.Upsert).
func NewChannel(opts Options, tokens TokenAPI, store CredentialLoader, hook AuthorizeHook) *Channel {
	if opts.Prefix == "" {
		opts.Prefix = "!"
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.Echo == nil {
		opts.Echo = os.Stdout
	}
	if opts.NewIRC == nil {
		opts.NewIRC = defaultIRC
	}
	opts.Channel = strings.ToLower(strings.TrimPrefix(opts.Channel, "#"))
	return &Channel{
		opts:     opts,
		tokens:   tokens,
		store:    store,
		hook:     hook,
		accounts: make(map[string]account),
		botReady: make(chan struct{}),
		ready:    make(chan struct{}),
		commands: make(map[string]CommandFunc),
		baseCtx:  context.Background(),
	}
}

// Name returns the joined channel login.
func (c *Channel) Name() string { return c.opts.Channel }

// Ready is closed on the first successful IRC connection.
func (c *Channel) Ready() <-chan struct{} { return c.ready }

// Connected reports whether the IRC session is currently up.
func (c *Channel) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Run waits for a bot token, then keeps the IRC session connected until ctx is cancelled.
func (c *Channel) Run(ctx context.Context) error {
	log := slog.Default().With(slog.String("component", "chat"))
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	select {
	case <-c.botReady:
	default:
		log.Warn("no bot token yet; authorize the bot account via /auth/twitch/start",
			slog.String("bot", c.opts.BotUsername))
		select {
		case <-c.botReady:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		irc := c.newSession()
		errCh := make(chan error, 1)
		go func() { errCh <- irc.Connect() }()

		select {
		case <-ctx.Done():
			_ = irc.Disconnect()
			select {
			case <-errCh:
			case <-time.After(5 * time.Second):
			}
			c.setConnected(false)
			log.Info("chat disconnected")
			return ctx.Err()
		case err := <-errCh:
			c.setConnected(false)
			log.Warn("chat connection lost, reconnecting", slog.Any("err", err), slog.Duration("delay", c.opts.ReconnectDelay))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.ReconnectDelay):
		}
	}
}

func (c *Channel) newSession() IRC {
	c.mu.Lock()
	login := c.botLogin
	if login == "" {
		login = c.opts.BotUsername
	}
	irc := c.opts.NewIRC(login, "oauth:"+c.botToken)
	c.irc = irc
	c.mu.Unlock()

	irc.OnConnect(func() {
		c.setConnected(true)
		c.readyOnce.Do(func() { close(c.ready) })
		slog.Info("chat connected", slog.String("channel", c.opts.Channel), slog.String("bot", login), slog.String("component", "chat"))
	})
	irc.OnPrivateMessage(c.handleMessage)
	irc.Join(c.opts.Channel)
	return irc
}

func (c *Channel) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
	telemetry.SetChatConnected(v)
}

// Send writes text to a chat channel. It fails with a TransportError while disconnected.
func (c *Channel) Send(ctx context.Context, channel, text string) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	c.mu.RLock()
	irc, connected := c.irc, c.connected
	c.mu.RUnlock()
	if irc == nil || !connected {
		telemetry.Inc(telemetry.ChatMessages, "error")
		return &TransportError{Op: "send", Err: ErrNotConnected}
	}
	irc.Say(strings.TrimPrefix(channel, "#"), text)
	telemetry.Inc(telemetry.ChatMessages, "ok")
	return nil
}

func (c *Channel) handleMessage(msg twitch.PrivateMessage) {
	c.echoMu.Lock()
	fmt.Fprintf(c.opts.Echo, "[%s] - %s: %s\n", msg.Channel, msg.User.Name, msg.Message)
	c.echoMu.Unlock()

	cmd, fn, ok := c.parseCommand(msg)
	if !ok {
		return
	}
	c.mu.RLock()
	base := c.baseCtx
	c.mu.RUnlock()
	go func() {
		ctx, cancel := context.WithTimeout(telemetry.NewCorrelation(base), commandTimeout)
		defer cancel()
		log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "chat"))
		log.Info("chat command", slog.String("command", cmd.Name), slog.String("user", cmd.User))
		reply := fn(ctx, cmd)
		if reply == "" {
			return
		}
		if err := c.Send(ctx, cmd.Channel, reply); err != nil {
			log.Error("failed to send command reply", slog.String("command", cmd.Name), slog.Any("err", err))
		}
	}()
}
