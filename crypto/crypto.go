// Package crypto seals stored OAuth tokens with AES-256-GCM.
//
// Sealed values are text of the form "enc:v1:<base64(nonce || ciphertext || tag)>", so they fit the
// plain TEXT columns of the tokens table and can live next to rows written before a key was configured.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SealedPrefix marks a value produced by TokenCipher.Seal.
const SealedPrefix = "enc:v1:"

// ErrKeyRequired is returned when a sealed value is read without a configured key.
var ErrKeyRequired = errors.New("sealed token found but no encryption key configured")

// TokenCipher seals and opens token strings. A nil *TokenCipher passes values through unchanged,
// which is how the store runs when ENCRYPTION_KEY is unset.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher builds a cipher from a base64-encoded 32-byte key (openssl rand -base64 32).
func NewTokenCipher(base64Key string) (*TokenCipher, error) {
	if base64Key == "" {
		return nil, fmt.Errorf("encryption key is empty")
	}
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: base64 decode failed: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid encryption key: must be 32 bytes (256 bits), got %d bytes", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &TokenCipher{aead: aead}, nil
}

// Enabled reports whether values are sealed on write.
func (c *TokenCipher) Enabled() bool { return c != nil }

// Seal encrypts plaintext with a fresh random nonce. Empty strings stay empty.
func (c *TokenCipher) Seal(plaintext string) (string, error) {
	if c == nil || plaintext == "" {
		return plaintext, nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open returns the plaintext of a sealed value. Values without SealedPrefix are returned as-is.
func (c *TokenCipher) Open(stored string) (string, error) {
	if !IsSealed(stored) {
		return stored, nil
	}
	if c == nil {
		return "", ErrKeyRequired
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("base64 decode failed: %w", err)
	}
	n := c.aead.NonceSize()
	if len(raw) < n+c.aead.Overhead() {
		return "", fmt.Errorf("ciphertext too short: got %d bytes", len(raw))
	}
	plain, err := c.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		// no detail: the GCM error only says the tag did not verify
		return "", fmt.Errorf("decryption failed: authentication or integrity check failed")
	}
	return string(plain), nil
}

// IsSealed reports whether stored was produced by Seal.
func IsSealed(stored string) bool {
	return strings.HasPrefix(stored, SealedPrefix)
}
