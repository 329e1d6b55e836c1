// Command ingame-bot watches one Riot ID and tells a Twitch chat when that player enters a game.
// It:
//   - Loads configuration (env, optional .env and CONFIG_FILE) and initializes structured logging.
//   - Opens the token database (SQLite or Postgres) and runs versioned migrations.
//   - Restores stored Twitch tokens, connects the bot account to chat and answers
//     !gamestatus / !retrievegamestatus.
//   - Polls the Riot API once chat is up and announces every game start; transitions are also
//     mirrored to Redis and MQTT when configured.
//   - Greets the broadcaster when the channel goes live.
//   - Exposes /healthz, /readyz, /status, /metrics and the Twitch authorization flow over HTTP.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/ingame-bot/chat"
	"github.com/onnwee/ingame-bot/config"
	"github.com/onnwee/ingame-bot/crypto"
	"github.com/onnwee/ingame-bot/db"
	"github.com/onnwee/ingame-bot/notify"
	"github.com/onnwee/ingame-bot/oauth"
	"github.com/onnwee/ingame-bot/presence"
	"github.com/onnwee/ingame-bot/riotapi"
	"github.com/onnwee/ingame-bot/server"
	"github.com/onnwee/ingame-bot/telemetry"
	"github.com/onnwee/ingame-bot/twitchapi"
)

var version = "dev"

func main() {
	// Local dev convenience only; production relies on real env.
	_ = godotenv.Load()

	lvl, ok := parseLevel(os.Getenv("LOG_LEVEL"))
	handler, format := newLogHandler(os.Stdout, lvl, os.Getenv("LOG_FORMAT"))
	slog.SetDefault(slog.New(handler))
	if !ok {
		slog.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format), slog.String("version", version))

	if err := run(); err != nil {
		slog.Error("ingame-bot exited with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := errors.Join(cfg.ValidateChatReady(), cfg.ValidateRiotReady()); err != nil {
		return err
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("ingame-bot", version)
	if err != nil {
		return fmt.Errorf("tracing initialization failed: %w", err)
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tokens
	dbx, err := db.Connect(ctx, cfg.DBDsn)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if err := dbx.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()
	if err := db.Prepare(ctx, dbx); err != nil {
		return fmt.Errorf("failed to prepare db: %w", err)
	}
	var cipher *crypto.TokenCipher
	if cfg.EncryptionKey != "" {
		if cipher, err = crypto.NewTokenCipher(cfg.EncryptionKey); err != nil {
			return fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
		}
	} else {
		slog.Warn("ENCRYPTION_KEY not set; tokens are stored in plaintext", slog.String("component", "db"))
	}
	store := db.NewTokenStore(dbx, cipher)

	// Chat
	twitchOAuth := twitchapi.NewOAuth(cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TwitchRedirectURI, cfg.Scopes())
	channel := chat.NewChannel(chat.Options{
		Channel:     cfg.TwitchChannel,
		BotID:       cfg.TwitchBotID,
		BotUsername: cfg.TwitchBotUsername,
		Prefix:      cfg.CommandPrefix,
	}, twitchOAuth, store, store.Upsert)

	// Presence
	riot := riotapi.New(cfg.RiotAPIKey, cfg.RiotRegion)
	riot.Timeout = cfg.RiotHTTPTimeout
	observers := []presence.Observer{&chat.Announcer{Sender: channel, Channel: channel.Name()}}
	if cfg.RedisURL != "" {
		client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		redisObs := notify.NewRedisObserver(client)
		defer redisObs.Close()
		observers = append(observers, redisObs)
	}
	if cfg.MQTTBroker != "" {
		client, err := notify.DialMQTT(cfg.MQTTBroker, "ingame-bot-"+cfg.TwitchChannel)
		if err != nil {
			return err
		}
		mqttObs := notify.NewMQTTObserver(client, cfg.MQTTTopic)
		defer mqttObs.Close()
		observers = append(observers, mqttObs)
	}
	identity := presence.TrackedIdentity{GameName: cfg.RiotGameName, TagLine: cfg.RiotTagLine, Platform: cfg.RiotRegion}
	monitor := presence.NewMonitor(identity, riot,
		presence.WithInterval(cfg.PollInterval),
		presence.WithErrorBackoff(cfg.PollErrorBackoff),
		presence.WithObservers(observers...))
	chat.RegisterPresenceCommands(channel, monitor)

	if err := channel.LoadTokens(ctx); err != nil {
		slog.Warn("some stored tokens could not be restored", slog.Any("err", err), slog.String("component", "chat"))
	}
	oauth.StartRefresher(ctx, "twitch", cfg.TokenRefreshInterval, channel.LoadTokens)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := channel.Run(ctx); err != nil && !presence.IsShutdown(err) {
			slog.Error("chat stopped", slog.Any("err", err), slog.String("component", "chat"))
		}
	}()
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-channel.Ready():
		}
		if riot.ValidateKey(ctx) {
			slog.Info("riot api key accepted", slog.String("key", riot.KeyPrefix()), slog.String("component", "presence"))
		} else {
			slog.Warn("riot api key rejected or unreachable; polling anyway", slog.String("key", riot.KeyPrefix()), slog.String("component", "presence"))
		}
		if err := monitor.Run(ctx); err != nil && !presence.IsShutdown(err) {
			slog.Error("presence monitor stopped", slog.Any("err", err), slog.String("component", "presence"))
		}
	}()
	go func() {
		defer wg.Done()
		helix := &twitchapi.HelixClient{
			AppTokens: twitchapi.NewAppTokenSource(ctx, cfg.TwitchClientID, cfg.TwitchClientSecret, nil),
			ClientID:  cfg.TwitchClientID,
		}
		(&chat.LiveWatcher{Streams: helix, Sender: channel, Channel: channel.Name(), Interval: cfg.LivePollInterval}).Run(ctx)
	}()

	router := server.NewRouter(ctx, server.Deps{Presence: monitor, Chat: channel, OAuth: twitchOAuth, DB: store})
	srvErr := server.Start(ctx, cfg.HTTPAddr, router)
	if srvErr != nil {
		stop()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		slog.Warn("shutdown timed out waiting for workers")
	}
	slog.Info("ingame-bot stopped")
	return srvErr
}
