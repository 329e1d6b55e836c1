package twitchapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func TestHelixClient_GetStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/helix/streams" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" || r.Header.Get("Client-Id") != "cid" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		switch r.URL.Query().Get("user_login") {
		case "livechan":
			_, _ = w.Write([]byte(`{"data":[{"id":"1","user_login":"livechan","user_name":"LiveChan","type":"live","title":"ranked","started_at":"2025-01-01T10:00:00Z"}]}`))
		default:
			_, _ = w.Write([]byte(`{"data":[]}`))
		}
	}))
	defer srv.Close()

	client := &HelixClient{
		AppTokens:  oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}),
		ClientID:   "cid",
		HTTPClient: rewritingClient(srv.URL),
	}
	ctx := context.Background()
	streams, err := client.GetStreams(ctx, "livechan")
	if err != nil {
		t.Fatalf("GetStreams: %v", err)
	}
	if len(streams) != 1 || streams[0].UserName != "LiveChan" || streams[0].StartedAt.IsZero() {
		t.Fatalf("streams = %+v", streams)
	}

	streams, err = client.GetStreams(ctx, "offline")
	if err != nil || len(streams) != 0 {
		t.Fatalf("offline GetStreams = %+v, %v", streams, err)
	}

	if _, err := client.GetStreams(ctx, ""); err == nil {
		t.Error("expected error for empty login")
	}
}

func TestHelixClient_GetStreamsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	client := &HelixClient{
		AppTokens:  oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"}),
		HTTPClient: rewritingClient(srv.URL),
	}
	if _, err := client.GetStreams(context.Background(), "x"); err == nil {
		t.Fatal("expected error on 401")
	}
	if _, err := (&HelixClient{}).GetStreams(context.Background(), "x"); err == nil {
		t.Fatal("expected error without token source")
	}
}
