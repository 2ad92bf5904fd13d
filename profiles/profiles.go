// Package profiles models the backing-store user profile that external
// sign-in upserts.
package profiles

import (
	"context"
	"time"
)

// Profile is the backing-store record for a user.
type Profile struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email"`
	PhotoURL  string    `json:"photoURL,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Repo defines the interface for profile storage.
type Repo interface {
	// Upsert creates the profile if absent. It is idempotent: an existing
	// profile is left untouched.
	Upsert(ctx context.Context, profile *Profile) error

	// Get retrieves a profile by user id, errors.ErrNotFound when absent.
	Get(ctx context.Context, uid string) (*Profile, error)
}
