package identity

import (
	"context"
	"time"
)

// Identity is the authenticated user as seen by the client: an opaque
// reference plus the display fields the UI needs. The JSON tags match the
// persisted session record layout.
type Identity struct {
	ID        string `json:"id"`                     // Unique identifier for the user
	Name      string `json:"name"`                   // Display name
	Email     string `json:"email"`                  // User's email address
	AvatarURL string `json:"profileImage,omitempty"` // Profile image URL
}

// ProviderSession is the result of an external sign-in flow: the identity
// plus the provider-issued token and its lifetime. When this path is used the
// provider token's lifetime becomes the session's expiry.
type ProviderSession struct {
	Identity    Identity
	Token       string
	TokenExpiry time.Time
}

// Provider abstracts the identity backend. The static demo table and the
// external OIDC flow are interchangeable strategies behind this interface,
// selected by configuration.
type Provider interface {
	// Authenticate validates credentials and returns the matching identity.
	// Fails with errors.ErrInvalidCredentials when they don't match.
	Authenticate(ctx context.Context, email, password string) (*Identity, error)

	// Register creates a new identity. Fails with errors.ErrEmailAlreadyInUse
	// when the email is already present in the backing store.
	Register(ctx context.Context, name, email, password string) (*Identity, error)

	// SignIn runs the external provider flow (popup/redirect on the web,
	// browser handoff elsewhere). Providers without an external flow fail
	// with errors.ErrExternalAuthFailed.
	SignIn(ctx context.Context) (*ProviderSession, error)

	// SignOut is the best-effort provider-side sign-out. Callers log and
	// swallow failures; local session teardown never depends on it.
	SignOut(ctx context.Context) error
}
