package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"
)

const defaultValidateURL = "https://id.twitch.tv/oauth2/validate"

// ErrInvalidToken is returned by Validate when Twitch rejects the access token (HTTP 401).
var ErrInvalidToken = errors.New("twitch rejected the access token")

// Validation is the body of a successful /oauth2/validate call.
type Validation struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	UserID    string   `json:"user_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int      `json:"expires_in"`
}

// ExpiresWithin reports whether the token expires within d. Tokens without an expiry never do.
func (v *Validation) ExpiresWithin(d time.Duration) bool {
	return v.ExpiresIn > 0 && time.Duration(v.ExpiresIn)*time.Second < d
}

// OAuth wraps the Twitch authorization code and refresh grants plus token validation.
type OAuth struct {
	Config      *oauth2.Config
	HTTPClient  *http.Client
	ValidateURL string
}

// NewOAuth configures the Twitch endpoint. Twitch expects client credentials in the form body.
func NewOAuth(clientID, clientSecret, redirectURI string, scopes []string) *OAuth {
	ep := twitch.Endpoint
	ep.AuthStyle = oauth2.AuthStyleInParams
	return &OAuth{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     ep,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
		},
		ValidateURL: defaultValidateURL,
	}
}

func (o *OAuth) http() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return http.DefaultClient
}

func (o *OAuth) oauthCtx(ctx context.Context) context.Context {
	if o.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, o.HTTPClient)
	}
	return ctx
}

// AuthCodeURL builds the user authorization URL carrying state.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.Config.AuthCodeURL(state, oauth2.SetAuthURLParam("force_verify", "true"))
}

// Exchange trades an authorization code for a user token pair.
func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.New("missing authorization code")
	}
	tok, err := o.Config.Exchange(o.oauthCtx(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("twitch auth code exchange failed: %w", err)
	}
	return tok, nil
}

// Refresh runs the refresh_token grant. The returned token keeps the old refresh token when
// Twitch does not rotate it.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, errors.New("missing refresh token")
	}
	tok, err := o.Config.TokenSource(o.oauthCtx(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("twitch refresh failed: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// Validate asks Twitch who owns accessToken. A 401 yields ErrInvalidToken.
func (o *OAuth) Validate(ctx context.Context, accessToken string) (*Validation, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}
	u := o.ValidateURL
	if u == "" {
		u = defaultValidateURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+accessToken)
	resp, err := o.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrInvalidToken
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("twitch validate failed: %s: %s", resp.Status, string(b))
	}
	var v Validation
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode validate response: %w", err)
	}
	if v.UserID == "" {
		return nil, fmt.Errorf("twitch validate response without user id")
	}
	return &v, nil
}

// MaskToken renders a token for logs: "***" plus its last 6 characters.
func MaskToken(tok string) string {
	if len(tok) <= 6 {
		return "***"
	}
	return "***" + tok[len(tok)-6:]
}
