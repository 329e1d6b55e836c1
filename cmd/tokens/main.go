// Command tokens inspects and maintains the bot's Twitch token table.
//
// Usage:
//
//	tokens list [--json]          show stored accounts with masked tokens
//	tokens encrypt [--dry-run]    seal rows still stored in plaintext (needs ENCRYPTION_KEY)
//	tokens migrate                apply schema migrations and print the version
//
// DB_DSN and ENCRYPTION_KEY are read from the environment (or --dsn / --key).
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
