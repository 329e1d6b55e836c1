package twitchapi

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/twitch"
)

// NewAppTokenSource returns a cached client-credentials token source for Helix calls.
// ctx must outlive the source; it is used for every token fetch.
// NOTE: app tokens cannot be used for chat; chat needs a user (bot) token from the code grant.
func NewAppTokenSource(ctx context.Context, clientID, clientSecret string, hc *http.Client) oauth2.TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     twitch.Endpoint.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if hc != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
	}
	return cfg.TokenSource(ctx)
}
