package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/aiacademy/academy-client/identity"
	clienterrors "github.com/aiacademy/academy-client/internal/errors"
	"github.com/aiacademy/academy-client/token"
)

// Store owns the session state. All reads and writes go through its mutex,
// and every writer installs a fully-formed State snapshot, so concurrent
// operation completions can never interleave into a torn session.
//
// Durable writes happen inside the same critical section, before the
// in-memory swap. A refresh completing after a logout finds the identity gone
// and discards its result instead of resurrecting the cleared record.
type Store struct {
	repo     Repo
	provider identity.Provider
	minter   *token.Minter
	nowFunc  func() time.Time

	mu    sync.Mutex
	state State
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// NewStore initializes a Store with required dependencies. The state starts
// loading until Restore has run.
func NewStore(repo Repo, provider identity.Provider, minter *token.Minter, options ...StoreOption) (*Store, error) {
	if repo == nil {
		return nil, errors.New("[NewStore] repo is required")
	}
	if provider == nil {
		return nil, errors.New("[NewStore] identity provider is required")
	}
	if minter == nil {
		return nil, errors.New("[NewStore] token minter is required")
	}

	s := &Store{
		repo:     repo,
		provider: provider,
		minter:   minter,
		nowFunc:  time.Now,
		state:    State{Loading: true},
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// Restore reads the persisted record on startup. An absent record leaves the
// store unauthenticated; a malformed or already-expired record is discarded
// and likewise leaves it unauthenticated; a valid one is adopted. The whole
// check-then-adopt-or-discard sequence runs under the lock. The malformed
// case is recovered silently and never surfaced.
func (s *Store) Restore() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.repo.Load()
	if err != nil {
		log.Debug().Err(err).Msg("discarding undecodable session record")
		if clearErr := s.repo.Clear(); clearErr != nil {
			log.Warn().Err(clearErr).Msg("failed to clear session record")
		}
		s.state = State{}
		return s.state
	}

	if record == nil {
		s.state = State{}
		return s.state
	}

	if s.nowFunc().After(record.ExpiresAt()) {
		if clearErr := s.repo.Clear(); clearErr != nil {
			log.Warn().Err(clearErr).Msg("failed to clear expired session record")
		}
		s.state = State{}
		return s.state
	}

	user := record.User
	s.state = State{
		Session: Session{
			Identity:    &user,
			Token:       record.Token,
			TokenExpiry: record.ExpiresAt(),
		},
		IsAuthenticated: true,
	}
	return s.state
}

// Login validates the credentials against the identity provider and, on
// success, mints a token pair, persists the session, and adopts it. On
// failure the store is left unauthenticated with the error captured in the
// state; nothing partial is persisted.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.beginOperation()

	user, err := s.provider.Authenticate(ctx, email, password)
	if err != nil {
		s.failLoggedOut(err)
		return errors.Wrap(err, "[Store.Login] Authenticate")
	}

	tok, err := s.minter.Mint()
	if err != nil {
		s.failLoggedOut(err)
		return errors.Wrap(err, "[Store.Login] Mint")
	}

	return s.adopt(user, tok.Value, tok.ExpiresAt, "[Store.Login]")
}

// Signup registers a new identity and then behaves like Login. A duplicate
// email fails with errors.ErrEmailAlreadyInUse and leaves the prior state
// untouched apart from the captured error.
func (s *Store) Signup(ctx context.Context, name, email, password string) error {
	s.beginOperation()

	user, err := s.provider.Register(ctx, name, email, password)
	if err != nil {
		s.failKeepSession(err)
		return errors.Wrap(err, "[Store.Signup] Register")
	}

	tok, err := s.minter.Mint()
	if err != nil {
		s.failKeepSession(err)
		return errors.Wrap(err, "[Store.Signup] Mint")
	}

	return s.adopt(user, tok.Value, tok.ExpiresAt, "[Store.Signup]")
}

// SignInWithProvider delegates to the external identity flow. The provider's
// token lifetime becomes the session expiry when it carries one; otherwise
// the store falls back to its own validity window. On provider failure or
// user cancellation the prior state is kept, with errors.ErrExternalAuthFailed
// captured.
func (s *Store) SignInWithProvider(ctx context.Context) error {
	s.beginOperation()

	providerSession, err := s.provider.SignIn(ctx)
	if err != nil {
		if !clienterrors.Is(err, clienterrors.ErrExternalAuthFailed) {
			err = errors.Wrap(clienterrors.ErrExternalAuthFailed, err.Error())
		}
		s.failKeepSession(err)
		return errors.Wrap(err, "[Store.SignInWithProvider] SignIn")
	}

	tok := providerSession.Token
	expiry := providerSession.TokenExpiry
	if tok == "" || expiry.IsZero() {
		minted, mintErr := s.minter.Mint()
		if mintErr != nil {
			s.failKeepSession(mintErr)
			return errors.Wrap(mintErr, "[Store.SignInWithProvider] Mint")
		}
		tok = minted.Value
		expiry = minted.ExpiresAt
	}

	user := providerSession.Identity
	return s.adopt(&user, tok, expiry, "[Store.SignInWithProvider]")
}

// Refresh mints a new token/expiry pair for the current identity. It is a
// no-op returning false when no identity is set and is otherwise
// unconditional; an already-expired old token does not block it. The result
// is discarded when the store went unauthenticated while the mint was in
// flight.
func (s *Store) Refresh(ctx context.Context) (bool, error) {
	_ = ctx // minting is local today; the signature matches the other operations

	s.mu.Lock()
	if s.state.Identity == nil {
		s.mu.Unlock()
		return false, nil
	}
	currentID := s.state.Identity.ID
	s.mu.Unlock()

	tok, err := s.minter.Mint()
	if err != nil {
		return false, errors.Wrap(err, "[Store.Refresh] Mint")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Logged out (or switched user) while the mint was in flight: drop the
	// stale result rather than resurrecting a cleared session.
	if s.state.Identity == nil || s.state.Identity.ID != currentID {
		log.Debug().Msg("discarding refresh result for ended session")
		return false, nil
	}

	if err := s.repo.Save(NewRecord(*s.state.Identity, tok.Value, tok.ExpiresAt)); err != nil {
		return false, errors.Wrap(err, "[Store.Refresh] repo.Save")
	}

	s.state = State{
		Session: Session{
			Identity:    s.state.Identity,
			Token:       tok.Value,
			TokenExpiry: tok.ExpiresAt,
		},
		IsAuthenticated: true,
	}
	return true, nil
}

// Logout signs out of the identity provider best-effort, clears the
// persisted record, and resets the state to unauthenticated with no error.
// It never fails.
func (s *Store) Logout(ctx context.Context) {
	if err := s.provider.SignOut(ctx); err != nil {
		log.Warn().Err(err).Msg("provider sign-out failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Clear(); err != nil {
		log.Warn().Err(err).Msg("failed to clear session record")
	}
	s.state = State{}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authenticated reports whether the store currently holds an authenticated
// session.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsAuthenticated
}

// Token returns the current bearer token, if any.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsAuthenticated || s.state.Token == "" {
		return "", false
	}
	return s.state.Token, true
}

// Expiry returns the current token expiry, if any.
func (s *Store) Expiry() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.TokenExpiry.IsZero() {
		return time.Time{}, false
	}
	return s.state.TokenExpiry, true
}

// adopt persists and installs an authenticated session. The durable write
// happens first; a persist failure leaves the store unauthenticated.
func (s *Store) adopt(user *identity.Identity, tok string, expiry time.Time, op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Save(NewRecord(*user, tok, expiry)); err != nil {
		s.state = State{Err: err}
		return errors.Wrap(err, op+" repo.Save")
	}

	s.state = State{
		Session: Session{
			Identity:    user,
			Token:       tok,
			TokenExpiry: expiry,
		},
		IsAuthenticated: true,
	}
	return nil
}

// beginOperation marks an auth operation in flight, clearing any prior error.
func (s *Store) beginOperation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = true
	s.state.Err = nil
}

// failLoggedOut records an operation failure and resets to unauthenticated.
func (s *Store) failLoggedOut(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{Err: err}
}

// failKeepSession records an operation failure without touching the current
// session fields.
func (s *Store) failKeepSession(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	s.state.Err = err
}
