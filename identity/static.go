package identity

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	clienterrors "github.com/aiacademy/academy-client/internal/errors"
)

// SeedUser is a demo account loaded into a StaticProvider at construction.
type SeedUser struct {
	ID        string
	Name      string
	Email     string
	Password  string // plaintext, hashed at load time
	AvatarURL string
}

// DemoUsers is the default seed set for development builds.
var DemoUsers = []SeedUser{
	{
		ID:        "1",
		Name:      "Demo User",
		Email:     "user@example.com",
		Password:  "password123",
		AvatarURL: "https://images.unsplash.com/photo-1534528741775-53994a69daeb?auto=format&fit=crop&q=80&w=300",
	},
}

type staticUser struct {
	identity     Identity
	passwordHash string
}

// StaticProvider is an in-memory identity backend for demo and test builds.
// It has no external sign-in flow.
type StaticProvider struct {
	lock     sync.RWMutex
	byEmail  map[string]*staticUser
	nextSeed int
}

var _ Provider = (*StaticProvider)(nil)

// NewStaticProvider builds a provider seeded with the given demo users.
func NewStaticProvider(seed ...SeedUser) (*StaticProvider, error) {
	p := &StaticProvider{byEmail: make(map[string]*staticUser)}
	for _, s := range seed {
		hash, err := HashPassword(s.Password)
		if err != nil {
			return nil, errors.Wrap(err, "[NewStaticProvider] HashPassword")
		}
		id := s.ID
		if id == "" {
			id = uuid.New().String()
		}
		p.byEmail[s.Email] = &staticUser{
			identity: Identity{
				ID:        id,
				Name:      s.Name,
				Email:     s.Email,
				AvatarURL: s.AvatarURL,
			},
			passwordHash: hash,
		}
	}
	return p, nil
}

// Authenticate checks the credentials against the demo table.
func (p *StaticProvider) Authenticate(_ context.Context, email, password string) (*Identity, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	user, ok := p.byEmail[email]
	if !ok || !CheckPasswordHash(password, user.passwordHash) {
		return nil, clienterrors.ErrInvalidCredentials
	}
	found := user.identity
	return &found, nil
}

// Register creates a new demo user. The email must not already exist.
func (p *StaticProvider) Register(_ context.Context, name, email, password string) (*Identity, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if _, exists := p.byEmail[email]; exists {
		return nil, clienterrors.ErrEmailAlreadyInUse
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "[StaticProvider.Register] HashPassword")
	}

	user := &staticUser{
		identity: Identity{
			ID:        uuid.New().String(),
			Name:      name,
			Email:     email,
			AvatarURL: GeneratedAvatarURL(name),
		},
		passwordHash: hash,
	}
	p.byEmail[email] = user

	found := user.identity
	return &found, nil
}

// SignIn fails: the static provider has no external flow.
func (p *StaticProvider) SignIn(_ context.Context) (*ProviderSession, error) {
	return nil, errors.Wrap(clienterrors.ErrExternalAuthFailed, "[StaticProvider.SignIn] no external flow configured")
}

// SignOut is a no-op for the static provider.
func (p *StaticProvider) SignOut(_ context.Context) error {
	return nil
}

// GeneratedAvatarURL returns a deterministic placeholder avatar for users
// registered without a profile image.
func GeneratedAvatarURL(name string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=6366F1&color=fff", url.QueryEscape(name))
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash checks a plaintext password against a bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
