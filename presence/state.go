package presence

import (
	"fmt"
	"sync"
	"time"

	"github.com/onnwee/ingame-bot/riotapi"
)

// TrackedIdentity is the Riot ID being watched. It never changes after startup.
type TrackedIdentity struct {
	GameName string
	TagLine  string
	Platform string
}

func (id TrackedIdentity) String() string { return fmt.Sprintf("%s#%s", id.GameName, id.TagLine) }

// Edge is a change of the in-game flag.
type Edge int

const (
	EdgeStart Edge = iota + 1
	EdgeEnd
)

func (e Edge) String() string {
	switch e {
	case EdgeStart:
		return "start"
	case EdgeEnd:
		return "end"
	default:
		return "none"
	}
}

// Snapshot is a point-in-time copy of State.
type Snapshot struct {
	Identity   TrackedIdentity
	AccountID  string
	ProfileID  string
	Resolved   bool
	Observed   bool
	Active     bool
	ObservedAt time.Time
	Game       *riotapi.Game
}

// State is the shared presence record. The poll loop is its only writer.
type State struct {
	mu sync.RWMutex

	identity   TrackedIdentity
	accountID  string
	profileID  string
	observed   bool
	active     bool
	observedAt time.Time
	game       *riotapi.Game
}

// NewState returns an unresolved, unobserved state for id.
func NewState(id TrackedIdentity) *State { return &State{identity: id} }

// Resolved reports whether both identifiers are known.
func (s *State) Resolved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountID != "" && s.profileID != ""
}

// ProfileID returns the memoized profile id, empty until resolved.
func (s *State) ProfileID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profileID
}

// setResolved stores identifiers once. Later calls and empty values are ignored.
func (s *State) setResolved(accountID, profileID string) bool {
	if accountID == "" || profileID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accountID != "" && s.profileID != "" {
		return false
	}
	s.accountID, s.profileID = accountID, profileID
	return true
}

// observe records one reading and returns the edge it caused, or 0.
// An inactive reading before any active one never produces an edge.
func (s *State) observe(active bool, game *riotapi.Game, at time.Time) Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.active
	s.observed = true
	s.active = active
	s.observedAt = at
	if active {
		s.game = game
	} else {
		s.game = nil
	}
	switch {
	case active && !prev:
		return EdgeStart
	case !active && prev:
		return EdgeEnd
	default:
		return 0
	}
}

// Snapshot copies the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Identity:   s.identity,
		AccountID:  s.accountID,
		ProfileID:  s.profileID,
		Resolved:   s.accountID != "" && s.profileID != "",
		Observed:   s.observed,
		Active:     s.active,
		ObservedAt: s.observedAt,
	}
	if s.game != nil {
		g := *s.game
		snap.Game = &g
	}
	return snap
}
