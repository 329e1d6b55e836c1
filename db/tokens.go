package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/onnwee/ingame-bot/crypto"
)

// Credential is one row of the tokens table: the authorization material of one Twitch account.
type Credential struct {
	AccountID    string `db:"account_id"`
	AccessToken  string `db:"access_token"`
	RefreshToken string `db:"refresh_token"`
}

// TokenStore persists Credentials keyed by account id. Rows are upserted, never deleted.
// When a cipher is configured token values are sealed before they are written.
type TokenStore struct {
	db     *sqlx.DB
	cipher *crypto.TokenCipher
}

// NewTokenStore wraps dbx. cipher may be nil to store plaintext.
func NewTokenStore(dbx *sqlx.DB, cipher *crypto.TokenCipher) *TokenStore {
	return &TokenStore{db: dbx, cipher: cipher}
}

// EnsureSchema creates the tokens table if it does not exist.
func (s *TokenStore) EnsureSchema(ctx context.Context) error { return EnsureSchema(ctx, s.db) }

// Ping checks the underlying connection.
func (s *TokenStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

const upsertToken = `
INSERT INTO tokens (account_id, access_token, refresh_token)
VALUES (:account_id, :access_token, :refresh_token)
ON CONFLICT(account_id)
DO UPDATE
  SET access_token = excluded.access_token, refresh_token = excluded.refresh_token`

// Upsert inserts or replaces the credential for accountID. Last write wins.
func (s *TokenStore) Upsert(ctx context.Context, accountID, access, refresh string) error {
	if accountID == "" {
		return fmt.Errorf("upsert token: empty account id")
	}
	sealedAccess, err := s.cipher.Seal(access)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	sealedRefresh, err := s.cipher.Seal(refresh)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}
	row := Credential{AccountID: accountID, AccessToken: sealedAccess, RefreshToken: sealedRefresh}
	if _, err := s.db.NamedExecContext(ctx, upsertToken, row); err != nil {
		return fmt.Errorf("upsert token for %s: %w", accountID, err)
	}
	return nil
}

// LoadAll returns every stored credential with token values opened.
// Rows that cannot be opened (wrong or missing key) are skipped with a warning.
func (s *TokenStore) LoadAll(ctx context.Context) ([]Credential, error) {
	rows, err := s.Raw(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Credential, 0, len(rows))
	for _, r := range rows {
		access, err := s.cipher.Open(r.AccessToken)
		if err == nil {
			r.AccessToken = access
			r.RefreshToken, err = s.cipher.Open(r.RefreshToken)
		}
		if err != nil {
			slog.Warn("skipping unreadable token row", slog.String("account_id", r.AccountID), slog.Any("err", err), slog.String("component", "db_tokens"))
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Raw returns the rows exactly as stored, sealed values included.
func (s *TokenStore) Raw(ctx context.Context) ([]Credential, error) {
	var rows []Credential
	if err := s.db.SelectContext(ctx, &rows, `SELECT account_id, access_token, refresh_token FROM tokens ORDER BY account_id`); err != nil {
		return nil, fmt.Errorf("load tokens: %w", err)
	}
	return rows, nil
}

// Count returns the number of stored credentials.
func (s *TokenStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM tokens`); err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return n, nil
}

// SealPlaintext rewrites rows still stored in plaintext using the configured cipher and
// returns how many rows were (or, with dryRun, would be) rewritten.
func (s *TokenStore) SealPlaintext(ctx context.Context, dryRun bool) (int, error) {
	if !s.cipher.Enabled() {
		return 0, fmt.Errorf("seal tokens: %w", crypto.ErrKeyRequired)
	}
	rows, err := s.Raw(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range rows {
		if sealedOrEmpty(r.AccessToken) && sealedOrEmpty(r.RefreshToken) {
			continue
		}
		n++
		if dryRun {
			continue
		}
		access, err := s.cipher.Open(r.AccessToken)
		if err != nil {
			return n - 1, fmt.Errorf("open access token for %s: %w", r.AccountID, err)
		}
		refresh, err := s.cipher.Open(r.RefreshToken)
		if err != nil {
			return n - 1, fmt.Errorf("open refresh token for %s: %w", r.AccountID, err)
		}
		if err := s.Upsert(ctx, r.AccountID, access, refresh); err != nil {
			return n - 1, err
		}
	}
	return n, nil
}

func sealedOrEmpty(v string) bool { return v == "" || crypto.IsSealed(v) }
