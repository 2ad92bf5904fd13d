// Package session holds the client's authenticated-user/token/expiry triple:
// the single source of truth for "who is logged in", durably persisted and
// restored across process starts.
package session

import (
	"time"

	"github.com/aiacademy/academy-client/identity"
)

// Session is the authenticated-user/token/expiry triple. All fields are nil
// or zero when unauthenticated. Token and TokenExpiry are always set and
// cleared as a pair, never independently.
type Session struct {
	Identity    *identity.Identity // nil when unauthenticated
	Token       string             // opaque bearer credential
	TokenExpiry time.Time          // instant after which Token is invalid
}

// ExpiredAt reports whether the token has passed its expiry at the given
// instant. A session without an expiry is treated as expired.
func (s Session) ExpiredAt(now time.Time) bool {
	if s.TokenExpiry.IsZero() {
		return true
	}
	return now.After(s.TokenExpiry)
}

// ExpiresWithin reports whether the token's remaining validity at now is
// below the given threshold.
func (s Session) ExpiresWithin(now time.Time, threshold time.Duration) bool {
	if s.TokenExpiry.IsZero() {
		return false
	}
	return s.TokenExpiry.Before(now.Add(threshold))
}

// State is a fully-formed snapshot of the session plus the operation flags
// UI collaborators render from. Writers always replace the whole snapshot.
type State struct {
	Session

	IsAuthenticated bool  // derived at last check: identity and token present, expiry not passed
	Loading         bool  // an auth operation (or the initial restore) is in flight
	Err             error // last auth-operation failure, nil after any success
}

// Record is the durable form of the session: a single JSON object persisted
// under a fixed storage key. Expiry is epoch milliseconds on the wire.
type Record struct {
	User        identity.Identity `json:"user"`
	Token       string            `json:"token"`
	TokenExpiry int64             `json:"tokenExpiry"`
}

// NewRecord builds the durable record for an authenticated session.
func NewRecord(user identity.Identity, tok string, expiry time.Time) *Record {
	return &Record{
		User:        user,
		Token:       tok,
		TokenExpiry: expiry.UnixMilli(),
	}
}

// ExpiresAt returns the record's expiry as an absolute instant.
func (r *Record) ExpiresAt() time.Time {
	return time.UnixMilli(r.TokenExpiry)
}
