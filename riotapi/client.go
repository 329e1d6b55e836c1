// Package riotapi is a small Riot Games API client for the lookups the presence monitor needs:
// Riot ID to account (account-v1), account to profile (summoner-v4) and active game (spectator-v5).
//
// Calls never return Go errors. Every failure is reported as a Result whose Outcome says what
// happened, and is logged here with the status code and a truncated key prefix.
package riotapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/ingame-bot/telemetry"
)

const (
	tracerName     = "ingame-bot/riotapi"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// Endpoint names used for logs, spans and metric labels.
const (
	EndpointAccount   = "account"
	EndpointSummoner  = "summoner"
	EndpointSpectator = "spectator"
	EndpointValidate  = "validate_key"
)

// Client calls the Riot API for one platform shard (e.g. euw1) with one API key.
type Client struct {
	APIKey   string
	Platform string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Timeout bounds each request; defaults to 10s.
	Timeout time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// New returns a client for platform (e.g. "euw1", "na1").
func New(apiKey, platform string) *Client {
	return &Client{APIKey: apiKey, Platform: strings.ToLower(platform), Timeout: defaultTimeout}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

func (c *Client) log() *slog.Logger {
	l := c.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With(slog.String("component", "riotapi"))
}

// KeyPrefix is the loggable form of the API key: at most the first 10 characters.
func (c *Client) KeyPrefix() string {
	if len(c.APIKey) <= 10 {
		return c.APIKey + "..."
	}
	return c.APIKey[:10] + "..."
}

func (c *Client) regionalBase() string {
	return "https://" + RegionalCluster(c.Platform) + ".api.riotgames.com"
}

func (c *Client) platformBase() string {
	return "https://" + c.Platform + ".api.riotgames.com"
}

// ValidateKey probes account-v1 with a throwaway Riot ID. Only a 403 or a transport failure
// marks the key invalid; a 404 for the probe identity still proves the key is accepted.
func (c *Client) ValidateKey(ctx context.Context) bool {
	u := c.regionalBase() + "/riot/account/v1/accounts/by-riot-id/test/NA1"
	res := get[Account](ctx, c, EndpointValidate, u)
	switch res.Outcome {
	case Unauthorized, TransportError:
		return false
	default:
		c.log().Info("riot api key accepted", slog.Int("status", res.Status), slog.String("key_prefix", c.KeyPrefix()))
		return true
	}
}

// ResolveAccount looks up a Riot ID (gameName#tagLine) on the regional cluster.
func (c *Client) ResolveAccount(ctx context.Context, gameName, tagLine string) Result[Account] {
	u := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.regionalBase(), url.PathEscape(gameName), url.PathEscape(tagLine))
	return get[Account](ctx, c, EndpointAccount, u)
}

// FetchProfile loads the summoner-v4 profile of an account on the client's platform.
func (c *Client) FetchProfile(ctx context.Context, puuid string) Result[Profile] {
	u := fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s", c.platformBase(), url.PathEscape(puuid))
	return get[Profile](ctx, c, EndpointSummoner, u)
}

// ActiveGame queries spectator-v5 for the profile's current game. NotFound means "not in game".
func (c *Client) ActiveGame(ctx context.Context, profileID string) Result[Game] {
	u := fmt.Sprintf("%s/lol/spectator/v5/active-games/by-summoner/%s", c.platformBase(), url.PathEscape(profileID))
	return get[Game](ctx, c, EndpointSpectator, u)
}

func get[T any](ctx context.Context, c *Client, endpoint, rawURL string) Result[T] {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "riot."+endpoint,
		attribute.String("riot.endpoint", endpoint),
		attribute.String("riot.platform", c.Platform))
	defer span.End()

	start := time.Now()
	res := fetch[T](ctx, c, rawURL)
	telemetry.ObserveRiotRequest(endpoint, res.Outcome.String(), time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", res.Status), attribute.String("riot.outcome", res.Outcome.String()))

	logger := c.log().With(
		slog.String("endpoint", endpoint),
		slog.Int("status", res.Status),
		slog.String("key_prefix", c.KeyPrefix()))
	if corr := telemetry.GetCorrelation(ctx); corr != "" {
		logger = logger.With(slog.String("corr", corr))
	}
	switch res.Outcome {
	case OK:
		logger.Debug("riot request ok", slog.Duration("took", time.Since(start)))
		telemetry.SetSpanSuccess(span)
	case NotFound:
		logger.Info("riot resource not found")
	case Unauthorized:
		logger.Error("riot api key is invalid or expired")
		telemetry.RecordError(span, res.Err)
	case TransportError:
		logger.Error("riot request failed", slog.Any("err", res.Err))
		telemetry.RecordError(span, res.Err)
	default:
		logger.Error("unexpected riot response", slog.Any("err", res.Err))
		telemetry.RecordError(span, res.Err)
	}
	return res
}

func fetch[T any](ctx context.Context, c *Client, rawURL string) Result[T] {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result[T]{Outcome: Unexpected, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("X-Riot-Token", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http().Do(req)
	if err != nil {
		return Result[T]{Outcome: TransportError, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	res := Result[T]{Status: resp.StatusCode}
	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(&res.Value); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				res.Outcome = TransportError
			} else {
				res.Outcome = Unexpected
			}
			res.Err = fmt.Errorf("decode response: %w", err)
			return res
		}
		res.Outcome = OK
	case resp.StatusCode == http.StatusNotFound:
		res.Outcome = NotFound
	case resp.StatusCode == http.StatusForbidden:
		res.Outcome = Unauthorized
		res.Err = fmt.Errorf("riot api returned %d", resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		res.Outcome = Unexpected
		res.Err = fmt.Errorf("riot api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return res
}
