// Package crypto implements server-side password hashing and one-time token helpers.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for stored passwords.
const DefaultCost = 12

// ResetTokenLen is the number of random bytes in a password-reset token.
const ResetTokenLen = 36

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Hasher hashes passwords with bcrypt at a fixed cost; bcrypt embeds a per-record random salt.
type Hasher struct{ cost int }

// NewHasher returns a Hasher; a cost outside bcrypt's range falls back to DefaultCost.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return Hasher{cost: cost}
}

// maxPasswordBytes is the bcrypt input limit; longer passwords are cut to it.
const maxPasswordBytes = 72

// HashPassword returns the bcrypt hash of password. Only the first 72 bytes count.
func (h Hasher) HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword(clip(password), h.cost)
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
func (h Hasher) VerifyPassword(password string, hash []byte) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, clip(password)) == nil
}

func clip(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

// NewResetToken returns a fresh plaintext reset token (hex) and the digest to persist.
func NewResetToken() (plain, digest string, err error) {
	b, err := RandBytes(ResetTokenLen)
	if err != nil {
		return "", "", err
	}
	plain = hex.EncodeToString(b)
	return plain, Digest(plain), nil
}

// Digest returns the sha256 hex digest of a token. Only digests are stored.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// DigestEqual compares a presented token against a stored digest in constant time.
func DigestEqual(token, digest string) bool {
	if token == "" || digest == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Digest(token)), []byte(digest)) == 1
}
