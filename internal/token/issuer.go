// Package token issues and verifies HS256 session tokens.
package token

import (
	"errors"
	"time"

	"github.com/and161185/chirper/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer signs access and refresh tokens with separate keys.
type Issuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer constructs an Issuer.
func NewIssuer(accessKey, refreshKey []byte, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// AccessTTL returns the access token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// Access returns a signed access token for the account.
func (i *Issuer) Access(accountID uuid.UUID) (string, time.Time, error) {
	return i.sign(accountID, i.accessKey, i.accessTTL)
}

// Refresh returns a signed refresh token for the account.
func (i *Issuer) Refresh(accountID uuid.UUID) (string, time.Time, error) {
	return i.sign(accountID, i.refreshKey, i.refreshTTL)
}

// VerifyAccess checks an access token and returns its subject.
func (i *Issuer) VerifyAccess(tok string) (uuid.UUID, error) {
	return i.verify(tok, i.accessKey)
}

// VerifyRefresh checks a refresh token and returns its subject.
func (i *Issuer) VerifyRefresh(tok string) (uuid.UUID, error) {
	return i.verify(tok, i.refreshKey)
}

// sign creates an HS256 JWT; the random ID keeps two tokens issued in the same second distinct.
func (i *Issuer) sign(accountID uuid.UUID, key []byte, ttl time.Duration) (string, time.Time, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return "", time.Time{}, err
	}
	now := i.now()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		ID:        jti.String(),
		Subject:   accountID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(key)
	return signed, exp, err
}

// verify never tells the caller why a token was rejected.
func (i *Issuer) verify(tok string, key []byte) (uuid.UUID, error) {
	if tok == "" {
		return uuid.Nil, errs.ErrUnauthorized
	}
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return uuid.Nil, errs.ErrUnauthorized
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return id, nil
}
