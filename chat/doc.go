// Package chat is the bot's Twitch side.
//
//   - Channel: holds the authorized Twitch accounts (AddToken, LoadTokens), keeps the bot account
//     connected to IRC, echoes every inbound message as "[channel] - user: text" and dispatches
//     prefixed commands to registered handlers. Send fails with a TransportError while offline.
//   - Announcer: a presence.Observer that posts the game-start announcement.
//   - LiveWatcher: polls Helix streams and greets the broadcaster when the channel goes live.
//
// The bot account is recognised by TWITCH_BOT_ID, or by TWITCH_BOT_USERNAME when no id is set.
// Its token comes either from the tokens table at startup or from the OAuth callback; Run blocks
// until one is available.
package chat
