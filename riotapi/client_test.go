package riotapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

// rewriteTransport sends every request to the test server, keeping the original host in a header.
type rewriteTransport struct {
	target *url.URL
	mu     sync.Mutex
	hosts  []string
}

func (r *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	r.hosts = append(r.hosts, req.URL.Host)
	r.mu.Unlock()
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

// levelRecorder is a slog.Handler capturing the level of every record.
type levelRecorder struct {
	mu     sync.Mutex
	levels []slog.Level
	msgs   []string
}

func (h *levelRecorder) Enabled(context.Context, slog.Level) bool { return true }
func (h *levelRecorder) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.levels = append(h.levels, r.Level)
	h.msgs = append(h.msgs, r.Message)
	return nil
}
func (h *levelRecorder) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *levelRecorder) WithGroup(string) slog.Handler      { return h }

func (h *levelRecorder) maxLevel() slog.Level {
	h.mu.Lock()
	defer h.mu.Unlock()
	max := slog.LevelDebug
	for _, l := range h.levels {
		if l > max {
			max = l
		}
	}
	return max
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *rewriteTransport, *levelRecorder) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	target, _ := url.Parse(srv.URL)
	rt := &rewriteTransport{target: target}
	rec := &levelRecorder{}
	c := New("RGAPI-0123456789-abcdef", "euw1")
	c.HTTPClient = &http.Client{Transport: rt}
	c.Logger = slog.New(rec)
	return c, rt, rec
}

func TestResolveAccount(t *testing.T) {
	c, rt, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Riot-Token") != "RGAPI-0123456789-abcdef" {
			t.Errorf("missing X-Riot-Token header")
		}
		if r.URL.EscapedPath() != "/riot/account/v1/accounts/by-riot-id/Hide%20on%20bush/KR1" {
			t.Errorf("path = %s", r.URL.EscapedPath())
		}
		_, _ = w.Write([]byte(`{"puuid":"p-1","gameName":"Hide on bush","tagLine":"KR1"}`))
	})
	res := c.ResolveAccount(context.Background(), "Hide on bush", "KR1")
	if !res.OK() || res.Value.PUUID != "p-1" {
		t.Fatalf("ResolveAccount() = %+v", res)
	}
	if rt.hosts[0] != "europe.api.riotgames.com" {
		t.Errorf("account lookup went to %s, want regional host", rt.hosts[0])
	}
}

func TestFetchProfileAndActiveGameUsePlatformHost(t *testing.T) {
	c, rt, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/lol/summoner/v4/summoners/by-puuid/"):
			_, _ = w.Write([]byte(`{"id":"s-1","puuid":"p-1","summonerLevel":300}`))
		case strings.HasPrefix(r.URL.Path, "/lol/spectator/v5/active-games/by-summoner/"):
			_, _ = w.Write([]byte(`{"gameId":42,"gameMode":"CLASSIC","gameQueueConfigId":420,"gameStartTime":1700000000000}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()
	prof := c.FetchProfile(ctx, "p-1")
	if !prof.OK() || prof.Value.PUUID != "p-1" || prof.Value.SummonerLevel != 300 {
		t.Fatalf("FetchProfile() = %+v", prof)
	}
	game := c.ActiveGame(ctx, "p-1")
	if !game.OK() || game.Value.GameID != 42 || game.Value.QueueID != 420 {
		t.Fatalf("ActiveGame() = %+v", game)
	}
	if game.Value.StartedAt().IsZero() {
		t.Error("StartedAt() is zero")
	}
	for _, h := range rt.hosts {
		if h != "euw1.api.riotgames.com" {
			t.Errorf("request went to %s, want platform host", h)
		}
	}
}

func TestActiveGameNotFoundIsInfo(t *testing.T) {
	c, _, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	res := c.ActiveGame(context.Background(), "p-1")
	if res.Outcome != NotFound || res.Status != http.StatusNotFound {
		t.Fatalf("ActiveGame() = %+v, want NotFound", res)
	}
	if lvl := rec.maxLevel(); lvl >= slog.LevelError {
		t.Errorf("404 logged at %v, want below error", lvl)
	}
}

func TestFailSoftOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   Outcome
	}{
		{"forbidden", http.StatusForbidden, Unauthorized},
		{"not found", http.StatusNotFound, NotFound},
		{"rate limited", http.StatusTooManyRequests, Unexpected},
		{"server error", http.StatusInternalServerError, Unexpected},
		{"unauthorized is unexpected", http.StatusUnauthorized, Unexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"status":{"message":"nope"}}`))
			})
			ctx := context.Background()
			if got := c.ResolveAccount(ctx, "a", "b").Outcome; got != tt.want {
				t.Errorf("ResolveAccount outcome = %v, want %v", got, tt.want)
			}
			if got := c.FetchProfile(ctx, "p").Outcome; got != tt.want {
				t.Errorf("FetchProfile outcome = %v, want %v", got, tt.want)
			}
			if got := c.ActiveGame(ctx, "p").Outcome; got != tt.want {
				t.Errorf("ActiveGame outcome = %v, want %v", got, tt.want)
			}
			if tt.want == Unauthorized && rec.maxLevel() != slog.LevelError {
				t.Errorf("403 should be logged at error")
			}
		})
	}
}

func TestMalformedBodyIsUnexpected(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	res := c.ActiveGame(context.Background(), "p")
	if res.Outcome != Unexpected || res.Err == nil {
		t.Fatalf("ActiveGame() = %+v, want Unexpected", res)
	}
}

func TestTransportErrorAndTimeout(t *testing.T) {
	block := make(chan struct{})
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	defer close(block)
	c.Timeout = 50 * time.Millisecond
	start := time.Now()
	res := c.ActiveGame(context.Background(), "p")
	if res.Outcome != TransportError {
		t.Fatalf("ActiveGame() outcome = %v, want TransportError", res.Outcome)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeout not honoured")
	}

	c2 := New("k", "na1")
	c2.HTTPClient = &http.Client{Transport: &rewriteTransport{target: &url.URL{Scheme: "http", Host: "127.0.0.1:1"}}}
	c2.Logger = slog.New(&levelRecorder{})
	if res := c2.FetchProfile(context.Background(), "p"); res.Outcome != TransportError {
		t.Fatalf("FetchProfile() outcome = %v, want TransportError", res.Outcome)
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, true},
		{http.StatusNotFound, true},
		{http.StatusForbidden, false},
		{http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/riot/account/v1/accounts/by-riot-id/test/NA1" {
				t.Errorf("probe path = %s", r.URL.Path)
			}
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{}`))
		})
		if got := c.ValidateKey(context.Background()); got != tt.want {
			t.Errorf("ValidateKey() with %d = %v, want %v", tt.status, got, tt.want)
		}
	}

	c := New("k", "euw1")
	c.HTTPClient = &http.Client{Transport: &rewriteTransport{target: &url.URL{Scheme: "http", Host: "127.0.0.1:1"}}}
	c.Logger = slog.New(&levelRecorder{})
	if c.ValidateKey(context.Background()) {
		t.Error("ValidateKey() should be false on transport failure")
	}
}

func TestKeyPrefix(t *testing.T) {
	if got := New("RGAPI-0123456789", "euw1").KeyPrefix(); got != "RGAPI-0123..." {
		t.Errorf("KeyPrefix() = %q", got)
	}
	if got := New("short", "euw1").KeyPrefix(); got != "short..." {
		t.Errorf("KeyPrefix() = %q", got)
	}
}

func TestRegionalCluster(t *testing.T) {
	tests := map[string]string{"euw1": "europe", "NA1": "americas", "kr": "asia", "unknown": "americas"}
	for in, want := range tests {
		if got := RegionalCluster(in); got != want {
			t.Errorf("RegionalCluster(%q) = %q, want %q", in, got, want)
		}
	}
	if KnownPlatform("xx9") {
		t.Error("KnownPlatform(xx9) = true")
	}
}

func TestOutcomeString(t *testing.T) {
	if OK.String() != "ok" || Unauthorized.String() != "unauthorized" || Outcome(99).String() != "outcome(99)" {
		t.Error("unexpected Outcome strings")
	}
}
