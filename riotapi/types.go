package riotapi

import "time"

// Account is the account-v1 view of a Riot ID.
type Account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// Profile is the summoner-v4 profile on one platform shard.
type Profile struct {
	ID            string `json:"id,omitempty"`
	PUUID         string `json:"puuid"`
	ProfileIconID int    `json:"profileIconId"`
	RevisionDate  int64  `json:"revisionDate"`
	SummonerLevel int64  `json:"summonerLevel"`
}

// Game is the spectator-v5 active game. Only its presence matters to the monitor;
// the fields are kept for logs and the status endpoint.
type Game struct {
	GameID        int64  `json:"gameId"`
	MapID         int    `json:"mapId"`
	GameMode      string `json:"gameMode"`
	GameType      string `json:"gameType"`
	QueueID       int    `json:"gameQueueConfigId"`
	PlatformID    string `json:"platformId"`
	GameStartTime int64  `json:"gameStartTime"`
	GameLength    int64  `json:"gameLength"`
}

// StartedAt converts GameStartTime (epoch millis) to a time; zero when the game has not loaded yet.
func (g Game) StartedAt() time.Time {
	if g.GameStartTime <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(g.GameStartTime).UTC()
}
