package apiclient

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	clienterrors "github.com/aiacademy/academy-client/internal/errors"
	"github.com/aiacademy/academy-client/profiles"
)

// FamilyMember is a linked family account.
type FamilyMember struct {
	UID    string `json:"uid"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email"`
	Status string `json:"status,omitempty"`
}

// Profile fetches the current user's profile. The backend creates a default
// profile when none exists yet, so this call always yields one for a valid
// session.
func (c *Client) Profile(ctx context.Context) (*profiles.Profile, error) {
	var profile profiles.Profile
	if err := c.Do(ctx, http.MethodGet, "/settings", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile updates the current user's name and/or email. Empty fields
// are left unchanged.
func (c *Client) UpdateProfile(ctx context.Context, name, email string) error {
	body := map[string]string{}
	if name != "" {
		body["name"] = name
	}
	if email != "" {
		body["email"] = email
	}
	return c.Do(ctx, http.MethodPut, "/settings", body, nil)
}

// FamilyMembers lists the current user's linked family accounts.
func (c *Client) FamilyMembers(ctx context.Context) ([]FamilyMember, error) {
	var members []FamilyMember
	if err := c.Do(ctx, http.MethodGet, "/settings/family-members", nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// RequestFamilyMember sends a family-link invitation to the given email.
func (c *Client) RequestFamilyMember(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.Do(ctx, http.MethodPost, "/settings/family-request", body, nil)
}

// AcceptFamilyInvitation accepts a family-link invitation token.
func (c *Client) AcceptFamilyInvitation(ctx context.Context, invitationToken string) error {
	body := map[string]string{"token": invitationToken}
	return c.Do(ctx, http.MethodPost, "/settings/accept-invitation", body, nil)
}

// ProfileStore adapts the settings endpoints to profiles.Repo, for wiring
// the external sign-in's profile upsert to the backend instead of a local
// fake.
type ProfileStore struct {
	client *Client
}

var _ profiles.Repo = (*ProfileStore)(nil)

// NewProfileStore wraps a Client as a profiles.Repo.
func NewProfileStore(client *Client) *ProfileStore {
	return &ProfileStore{client: client}
}

// Upsert ensures the profile exists. The backend's settings read creates a
// default profile when absent and leaves an existing one untouched, which is
// exactly the idempotence Upsert requires.
func (s *ProfileStore) Upsert(ctx context.Context, _ *profiles.Profile) error {
	if _, err := s.client.Profile(ctx); err != nil {
		return errors.Wrap(err, "[ProfileStore.Upsert] Profile")
	}
	return nil
}

// Get fetches the current user's profile; uid must match the session user.
func (s *ProfileStore) Get(ctx context.Context, uid string) (*profiles.Profile, error) {
	profile, err := s.client.Profile(ctx)
	if err != nil {
		return nil, err
	}
	if profile.UID != uid {
		return nil, clienterrors.ErrNotFound
	}
	return profile, nil
}
