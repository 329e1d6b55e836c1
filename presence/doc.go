// Package presence tracks whether one Riot identity is in a live game.
//
// A Monitor owns the poll loop: it resolves the identity once (account, then profile), queries the
// active game every cycle, and reports start/end edges to its Observers. The shared State is
// written only by the loop; command handlers read it through Snapshot or run an independent Check.
//
// Outcomes other than riotapi.OK (not found, unauthorized, transport failure, unexpected status)
// all count as "not in game". A failing key or an outage therefore looks like the player leaving
// the game; the resulting end edge is never announced in chat.
package presence
