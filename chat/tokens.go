package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/ingame-bot/db"
	"github.com/onnwee/ingame-bot/telemetry"
	"github.com/onnwee/ingame-bot/twitchapi"
)

// refreshWindow is how close to expiry a loaded token may be before it is refreshed.
const refreshWindow = 15 * time.Minute

// TokenAPI validates and refreshes Twitch user tokens.
type TokenAPI interface {
	Validate(ctx context.Context, accessToken string) (*twitchapi.Validation, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// CredentialLoader reads every stored credential.
type CredentialLoader interface {
	LoadAll(ctx context.Context) ([]db.Credential, error)
}

// AuthorizeHook persists a newly authorized token pair for a Twitch user id.
type AuthorizeHook func(ctx context.Context, userID, accessToken, refreshToken string) error

// AddToken validates a user token, makes it available to the channel and hands it to the
// authorization hook. A hook failure is returned; the token stays usable in memory.
func (c *Channel) AddToken(ctx context.Context, accessToken, refreshToken string) (*twitchapi.Validation, error) {
	v, err := c.tokens.Validate(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	c.remember(v, accessToken, refreshToken)
	slog.Info("added token",
		slog.String("user_id", v.UserID),
		slog.String("login", v.Login),
		slog.String("token", twitchapi.MaskToken(accessToken)),
		slog.String("component", "chat"))

	if c.hook != nil {
		if err := c.hook(ctx, v.UserID, accessToken, refreshToken); err != nil {
			telemetry.Inc(telemetry.TokenUpserts, "error")
			return v, fmt.Errorf("store token for %s: %w", v.UserID, err)
		}
		telemetry.Inc(telemetry.TokenUpserts, "ok")
	}
	return v, nil
}

// LoadTokens re-adds every stored credential. Tokens Twitch rejects, or that expire within
// refreshWindow, are refreshed first. Failures of individual accounts are joined and returned
// after all accounts were tried.
func (c *Channel) LoadTokens(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	creds, err := c.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	var errs []error
	for _, cred := range creds {
		if err := c.loadOne(ctx, cred); err != nil {
			slog.Warn("could not restore stored token",
				slog.String("account_id", cred.AccountID), slog.Any("err", err), slog.String("component", "chat"))
			errs = append(errs, fmt.Errorf("account %s: %w", cred.AccountID, err))
		}
	}
	slog.Info("loaded stored tokens", slog.Int("count", len(creds)), slog.Int("failed", len(errs)), slog.String("component", "chat"))
	return errors.Join(errs...)
}

func (c *Channel) loadOne(ctx context.Context, cred db.Credential) error {
	v, err := c.AddToken(ctx, cred.AccessToken, cred.RefreshToken)
	switch {
	case errors.Is(err, twitchapi.ErrInvalidToken):
	case err != nil:
		return err
	case v.ExpiresWithin(refreshWindow):
	default:
		return nil
	}

	tok, err := c.tokens.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		telemetry.Inc(telemetry.TokenRefreshes, "error")
		return err
	}
	telemetry.Inc(telemetry.TokenRefreshes, "ok")
	_, err = c.AddToken(ctx, tok.AccessToken, tok.RefreshToken)
	return err
}

func (c *Channel) remember(v *twitchapi.Validation, access, refresh string) {
	c.mu.Lock()
	c.accounts[v.UserID] = account{login: v.Login, access: access, refresh: refresh}
	isBot := c.isBot(v)
	var irc IRC
	if isBot {
		c.botToken = access
		c.botLogin = strings.ToLower(v.Login)
		irc = c.irc
	}
	c.mu.Unlock()

	if !isBot {
		return
	}
	if irc != nil {
		irc.SetIRCToken("oauth:" + access)
	}
	c.botReadyOnce.Do(func() { close(c.botReady) })
}

func (c *Channel) isBot(v *twitchapi.Validation) bool {
	if c.opts.BotID != "" {
		return v.UserID == c.opts.BotID
	}
	return c.opts.BotUsername != "" && strings.EqualFold(v.Login, c.opts.BotUsername)
}

// AccountCount returns how many Twitch accounts have a usable token.
func (c *Channel) AccountCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.accounts)
}

// HasBotToken reports whether the bot account has been authorized.
func (c *Channel) HasBotToken() bool {
	select {
	case <-c.botReady:
		return true
	default:
		return false
	}
}
