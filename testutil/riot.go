package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/onnwee/ingame-bot/riotapi"
)

// MockRiotServer serves account-v1, summoner-v4 and spectator-v5 from in-memory state.
// Unknown Riot IDs and profiles answer 404, as does a profile without an active game.
type MockRiotServer struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]riotapi.Account // key: lower(name)/lower(tag)
	games    map[string]riotapi.Game    // key: puuid
	status   int                        // forced status for every request when non-zero
	requests map[string]int             // endpoint -> count
}

// NewMockRiotServer starts a server closed on test cleanup.
func NewMockRiotServer(t *testing.T) *MockRiotServer {
	t.Helper()
	m := &MockRiotServer{
		accounts: make(map[string]riotapi.Account),
		games:    make(map[string]riotapi.Game),
		requests: make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Close)
	return m
}

func accountKey(name, tag string) string { return strings.ToLower(name) + "/" + strings.ToLower(tag) }

// AddAccount registers a Riot ID. The summoner profile shares the account's PUUID.
func (m *MockRiotServer) AddAccount(gameName, tagLine, puuid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[accountKey(gameName, tagLine)] = riotapi.Account{PUUID: puuid, GameName: gameName, TagLine: tagLine}
}

// SetGame puts puuid in game g, or out of game when g is nil.
func (m *MockRiotServer) SetGame(puuid string, g *riotapi.Game) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g == nil {
		delete(m.games, puuid)
		return
	}
	m.games[puuid] = *g
}

// ForceStatus answers every request with code (0 restores normal behaviour).
func (m *MockRiotServer) ForceStatus(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = code
}

// Requests returns how often an endpoint (account, summoner, spectator) was hit.
func (m *MockRiotServer) Requests(endpoint string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[endpoint]
}

// Client returns a riotapi client whose requests all land on this server.
func (m *MockRiotServer) Client(platform string) *riotapi.Client {
	target, _ := url.Parse(m.URL)
	c := riotapi.New("RGAPI-test-key-0000", platform)
	c.HTTPClient = &http.Client{Transport: &rewriteTransport{target: target}}
	return c
}

func (m *MockRiotServer) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	endpoint := ""
	var body any
	found := false
	switch {
	case len(parts) == 7 && parts[0] == "riot" && parts[1] == "account":
		endpoint = "account"
		var acc riotapi.Account
		acc, found = m.accounts[accountKey(parts[5], parts[6])]
		body = acc
	case len(parts) == 6 && parts[1] == "summoner":
		endpoint = "summoner"
		puuid := parts[5]
		for _, acc := range m.accounts {
			if acc.PUUID == puuid {
				found = true
				body = riotapi.Profile{PUUID: puuid, SummonerLevel: 100, ProfileIconID: 1}
				break
			}
		}
	case len(parts) == 6 && parts[1] == "spectator":
		endpoint = "spectator"
		var g riotapi.Game
		g, found = m.games[parts[5]]
		body = g
	}
	m.requests[endpoint]++

	if r.Header.Get("X-Riot-Token") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if m.status != 0 {
		w.WriteHeader(m.status)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // test mock response
}

type rewriteTransport struct{ target *url.URL }

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}
