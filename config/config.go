// Package config loads environment variables (and an optional config file) into a typed Config.
// It applies defaults so the binary can start locally with only the Twitch and Riot credentials set.
// For required credentials use ValidateChatReady and ValidateRiotReady.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Twitch
	TwitchClientID     string
	TwitchClientSecret string
	TwitchBotID        string
	TwitchOwnerID      string
	TwitchBotUsername  string
	TwitchChannel      string
	TwitchRedirectURI  string
	TwitchScopes       string
	CommandPrefix      string

	// Riot
	RiotAPIKey      string
	RiotGameName    string
	RiotTagLine     string
	RiotRegion      string
	RiotHTTPTimeout time.Duration

	// Presence loop
	PollInterval     time.Duration
	PollErrorBackoff time.Duration

	// Database
	DBDsn         string
	EncryptionKey string

	// Surfaces
	HTTPAddr             string
	RedisURL             string
	MQTTBroker           string
	MQTTTopic            string
	LivePollInterval     time.Duration
	TokenRefreshInterval time.Duration
}

var defaults = map[string]any{
	"TWITCH_SCOPES":          "chat:read chat:edit user:bot user:write:chat",
	"TWITCH_REDIRECT_URI":    "http://localhost:4343/auth/twitch/callback",
	"COMMAND_PREFIX":         "!",
	"RIOT_REGION":            "euw1",
	"RIOT_HTTP_TIMEOUT":      10 * time.Second,
	"POLL_INTERVAL":          60 * time.Second,
	"POLL_ERROR_BACKOFF":     120 * time.Second,
	"DB_DSN":                 "sqlite://tokens.db",
	"HTTP_ADDR":              ":4343",
	"MQTT_TOPIC":             "presence/tracked",
	"LIVE_POLL_INTERVAL":     60 * time.Second,
	"TOKEN_REFRESH_INTERVAL": time.Hour,
}

// Load reads configuration from the environment, layered over CONFIG_FILE when set.
// It doesn't fail if credentials are missing; callers validate what they need.
func Load() (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		TwitchClientID:     v.GetString("TWITCH_CLIENT_ID"),
		TwitchClientSecret: v.GetString("TWITCH_CLIENT_SECRET"),
		TwitchBotID:        v.GetString("TWITCH_BOT_ID"),
		TwitchOwnerID:      v.GetString("TWITCH_OWNER_ID"),
		TwitchBotUsername:  strings.ToLower(v.GetString("TWITCH_BOT_USERNAME")),
		TwitchChannel:      strings.ToLower(strings.TrimPrefix(v.GetString("TWITCH_CHANNEL"), "#")),
		TwitchRedirectURI:  v.GetString("TWITCH_REDIRECT_URI"),
		TwitchScopes:       v.GetString("TWITCH_SCOPES"),
		CommandPrefix:      v.GetString("COMMAND_PREFIX"),

		RiotAPIKey:   v.GetString("RIOT_API_KEY"),
		RiotGameName: v.GetString("RIOT_GAME_NAME"),
		RiotTagLine:  strings.TrimPrefix(v.GetString("RIOT_TAG_LINE"), "#"),
		RiotRegion:   strings.ToLower(v.GetString("RIOT_REGION")),

		DBDsn:         v.GetString("DB_DSN"),
		EncryptionKey: v.GetString("ENCRYPTION_KEY"),

		HTTPAddr:   v.GetString("HTTP_ADDR"),
		RedisURL:   v.GetString("REDIS_URL"),
		MQTTBroker: v.GetString("MQTT_BROKER"),
		MQTTTopic:  v.GetString("MQTT_TOPIC"),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"RIOT_HTTP_TIMEOUT", &cfg.RiotHTTPTimeout},
		{"POLL_INTERVAL", &cfg.PollInterval},
		{"POLL_ERROR_BACKOFF", &cfg.PollErrorBackoff},
		{"LIVE_POLL_INTERVAL", &cfg.LivePollInterval},
		{"TOKEN_REFRESH_INTERVAL", &cfg.TokenRefreshInterval},
	}
	for _, d := range durations {
		val, err := duration(v, d.key)
		if err != nil {
			return nil, err
		}
		*d.dst = val
	}

	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "!"
	}
	return cfg, nil
}

// duration parses a Go duration string ("90s", "2m"). Non-positive values fall back to the default.
func duration(v *viper.Viper, key string) (time.Duration, error) {
	def, _ := defaults[key].(time.Duration)
	var raw string
	switch val := v.Get(key).(type) {
	case nil:
		return def, nil
	case time.Duration:
		if val <= 0 {
			return def, nil
		}
		return val, nil
	case string:
		raw = strings.TrimSpace(val)
	default:
		raw = fmt.Sprint(val)
	}
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (want Go duration like 60s): %w", key, err)
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// ValidateChatReady checks the fields the Twitch chat connection needs.
func (c *Config) ValidateChatReady() error {
	var missing []string
	if c.TwitchClientID == "" {
		missing = append(missing, "TWITCH_CLIENT_ID")
	}
	if c.TwitchClientSecret == "" {
		missing = append(missing, "TWITCH_CLIENT_SECRET")
	}
	if c.TwitchBotUsername == "" && c.TwitchBotID == "" {
		missing = append(missing, "TWITCH_BOT_USERNAME or TWITCH_BOT_ID")
	}
	if c.TwitchChannel == "" {
		missing = append(missing, "TWITCH_CHANNEL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing twitch env: require %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateRiotReady checks the fields the presence monitor needs.
func (c *Config) ValidateRiotReady() error {
	var missing []string
	if c.RiotAPIKey == "" {
		missing = append(missing, "RIOT_API_KEY")
	}
	if c.RiotGameName == "" {
		missing = append(missing, "RIOT_GAME_NAME")
	}
	if c.RiotTagLine == "" {
		missing = append(missing, "RIOT_TAG_LINE")
	}
	if c.RiotRegion == "" {
		missing = append(missing, "RIOT_REGION")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing riot env: require %s", strings.Join(missing, ", "))
	}
	return nil
}

// Scopes splits TwitchScopes on whitespace or commas.
func (c *Config) Scopes() []string {
	return strings.FieldsFunc(c.TwitchScopes, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
}
