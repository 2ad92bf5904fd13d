// Package token mints and inspects the opaque bearer tokens carried by the
// client session.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// DefaultValidity is the lifetime of a freshly minted token.
	DefaultValidity = 14 * 24 * time.Hour

	tokenByteLength = 32 // 256 bits
)

// Token is a minted bearer credential with its absolute expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Minter issues opaque bearer tokens. The token value is random; the expiry
// is the mint time plus a fixed validity window.
type Minter struct {
	validity time.Duration
	nowFunc  func() time.Time
}

// MinterOption modifies a Minter.
type MinterOption func(*Minter)

// WithValidity sets the token validity window.
func WithValidity(d time.Duration) MinterOption {
	return func(m *Minter) {
		m.validity = d
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) MinterOption {
	return func(m *Minter) {
		m.nowFunc = now
	}
}

// NewMinter creates a Minter with a 14 day default validity.
func NewMinter(options ...MinterOption) *Minter {
	m := &Minter{
		validity: DefaultValidity,
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Mint issues a new token/expiry pair.
func (m *Minter) Mint() (*Token, error) {
	tokenBytes := make([]byte, tokenByteLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, errors.Wrap(err, "[Minter.Mint] rand.Read")
	}

	return &Token{
		Value:     hex.EncodeToString(tokenBytes),
		ExpiresAt: m.nowFunc().Add(m.validity),
	}, nil
}

// Validity returns the configured validity window.
func (m *Minter) Validity() time.Duration {
	return m.validity
}

// ExpiryFromJWT extracts the exp claim from an externally issued JWT without
// verifying its signature. The client only adopts the lifetime; verification
// is the issuing provider's concern.
func ExpiryFromJWT(raw string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, errors.Wrap(err, "[ExpiryFromJWT] ParseUnverified")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return time.Time{}, errors.New("[ExpiryFromJWT] error extracting claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, errors.New("[ExpiryFromJWT] token missing exp claim")
	}
	return time.Unix(int64(exp), 0), nil
}
