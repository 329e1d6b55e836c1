package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func newKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestNewTokenCipher(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr string
	}{
		{"empty", "", "empty"},
		{"not base64", "!!!", "base64"},
		{"short key", base64.StdEncoding.EncodeToString([]byte("short")), "32 bytes"},
		{"valid", newKey(t), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewTokenCipher(tt.key)
			if tt.wantErr == "" {
				if err != nil || c == nil {
					t.Fatalf("NewTokenCipher() = %v, %v", c, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("NewTokenCipher() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSealOpen(t *testing.T) {
	c, err := NewTokenCipher(newKey(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, plain := range []string{"abc123", "oauth:" + strings.Repeat("x", 200), "üñíçødé"} {
		sealed, err := c.Seal(plain)
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if !IsSealed(sealed) {
			t.Fatalf("sealed value missing prefix: %q", sealed)
		}
		if strings.Contains(sealed, plain) {
			t.Fatalf("sealed value leaks plaintext")
		}
		got, err := c.Open(sealed)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if got != plain {
			t.Errorf("Open() = %q, want %q", got, plain)
		}
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	c, _ := NewTokenCipher(newKey(t))
	a, _ := c.Seal("same")
	b, _ := c.Seal("same")
	if a == b {
		t.Fatal("two seals of the same plaintext must differ")
	}
}

func TestOpenPassesPlaintextThrough(t *testing.T) {
	c, _ := NewTokenCipher(newKey(t))
	got, err := c.Open("legacy-plaintext")
	if err != nil || got != "legacy-plaintext" {
		t.Fatalf("Open(plain) = %q, %v", got, err)
	}
}

func TestNilCipher(t *testing.T) {
	var c *TokenCipher
	if c.Enabled() {
		t.Fatal("nil cipher reports enabled")
	}
	got, err := c.Seal("tok")
	if err != nil || got != "tok" {
		t.Fatalf("nil Seal = %q, %v", got, err)
	}
	if _, err := c.Open(SealedPrefix + "AAAA"); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("nil Open(sealed) error = %v, want ErrKeyRequired", err)
	}
}

func TestOpenWrongKeyAndTamper(t *testing.T) {
	c1, _ := NewTokenCipher(newKey(t))
	c2, _ := NewTokenCipher(newKey(t))
	sealed, _ := c1.Seal("secret")
	if _, err := c2.Open(sealed); err == nil {
		t.Error("expected wrong key to fail")
	}

	raw, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, SealedPrefix))
	raw[len(raw)-1] ^= 0xff
	tampered := SealedPrefix + base64.StdEncoding.EncodeToString(raw)
	if _, err := c1.Open(tampered); err == nil {
		t.Error("expected tampered ciphertext to fail")
	}

	if _, err := c1.Open(SealedPrefix + "AAAA"); err == nil {
		t.Error("expected short ciphertext to fail")
	}
}
