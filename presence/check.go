package presence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/onnwee/ingame-bot/riotapi"
	"github.com/onnwee/ingame-bot/telemetry"
)

// CheckStatus is the answer of an on-demand check.
type CheckStatus int

const (
	CheckInGame CheckStatus = iota + 1
	CheckNotInGame
	CheckAccountNotFound
	CheckProfileNotFound
	CheckFailed
)

func (s CheckStatus) String() string {
	switch s {
	case CheckInGame:
		return "in_game"
	case CheckNotInGame:
		return "not_in_game"
	case CheckAccountNotFound:
		return "account_not_found"
	case CheckProfileNotFound:
		return "profile_not_found"
	case CheckFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// NotFound reports whether the identity itself could not be resolved.
func (s CheckStatus) NotFound() bool { return s == CheckAccountNotFound || s == CheckProfileNotFound }

// CheckResult is returned by Monitor.Check.
type CheckResult struct {
	Status   CheckStatus
	Identity TrackedIdentity
	Game     *riotapi.Game
}

// Check resolves the identity from scratch and queries its active game. It never touches the
// shared State, so it can run concurrently with the poll loop.
func (m *Monitor) Check(ctx context.Context) (res CheckResult) {
	res.Identity = m.identity
	defer func() {
		if r := recover(); r != nil {
			telemetry.LoggerWithCorr(ctx).Error("presence check panic",
				slog.Any("err", fmt.Errorf("%v", r)), slog.String("component", "presence"))
			res.Status = CheckFailed
			res.Game = nil
		}
	}()

	account, profile, status := m.resolve(ctx)
	if status != 0 {
		res.Status = status
		return res
	}
	game := m.resolver.ActiveGame(ctx, profileID(account, profile))
	if game.OK() {
		g := game.Value
		res.Status = CheckInGame
		res.Game = &g
		return res
	}
	res.Status = CheckNotInGame
	return res
}
