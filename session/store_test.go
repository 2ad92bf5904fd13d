package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aiacademy/academy-client/identity"
	clienterrors "github.com/aiacademy/academy-client/internal/errors"
	"github.com/aiacademy/academy-client/session"
	"github.com/aiacademy/academy-client/session/repofakes"
	"github.com/aiacademy/academy-client/token"
)

const (
	testEmail    = "user@example.com"
	testPassword = "password123"
	testUserID   = "1"
)

// fakeClock is a settable clock shared by the store and the minter.
type fakeClock struct {
	lock sync.Mutex
	now  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

type testFixture struct {
	repo     *repofakes.FakeSessionRepo
	provider *identity.StaticProvider
	clock    *fakeClock
	store    *session.Store
}

// setupTestFixture builds a store over the fake repo and the demo user
// table. beforeMint, when set, runs inside every token mint (for racing
// operations against an in-flight refresh).
func setupTestFixture(t *testing.T, beforeMint func()) *testFixture {
	t.Helper()

	repo := repofakes.NewFakeSessionRepo()
	provider, err := identity.NewStaticProvider(identity.DemoUsers...)
	require.NoError(t, err)

	clock := newFakeClock()
	minter := token.NewMinter(token.WithNowFunc(func() time.Time {
		if beforeMint != nil {
			beforeMint()
		}
		return clock.Now()
	}))

	store, err := session.NewStore(repo, provider, minter, session.WithNowFunc(clock.Now))
	require.NoError(t, err)

	return &testFixture{
		repo:     repo,
		provider: provider,
		clock:    clock,
		store:    store,
	}
}

func requireLoggedOut(t *testing.T, state session.State) {
	t.Helper()
	require.False(t, state.IsAuthenticated)
	require.Nil(t, state.Identity)
	require.Empty(t, state.Token)
	require.True(t, state.TokenExpiry.IsZero())
}

func TestRestoreWithNoRecord(t *testing.T) {
	f := setupTestFixture(t, nil)

	state := f.store.Restore()

	requireLoggedOut(t, state)
	require.False(t, state.Loading)
	require.NoError(t, state.Err)
}

func TestRestoreWithValidRecord(t *testing.T) {
	f := setupTestFixture(t, nil)
	expiry := f.clock.Now().Add(24 * time.Hour)
	require.NoError(t, f.repo.Save(session.NewRecord(identity.Identity{
		ID:    testUserID,
		Name:  "Demo User",
		Email: testEmail,
	}, "t1", expiry)))

	state := f.store.Restore()

	require.True(t, state.IsAuthenticated)
	require.NotNil(t, state.Identity)
	require.Equal(t, testUserID, state.Identity.ID)
	require.Equal(t, "t1", state.Token)
	require.Equal(t, expiry.UnixMilli(), state.TokenExpiry.UnixMilli())
}

func TestRestoreWithExpiredRecordDiscardsIt(t *testing.T) {
	f := setupTestFixture(t, nil)
	expiry := f.clock.Now().Add(-time.Second)
	require.NoError(t, f.repo.Save(session.NewRecord(identity.Identity{ID: testUserID}, "t1", expiry)))

	state := f.store.Restore()

	requireLoggedOut(t, state)
	require.Nil(t, f.repo.Stored())
}

func TestRestoreWithMalformedRecordDiscardsIt(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.repo.LoadErr = clienterrors.ErrMalformedSession

	state := f.store.Restore()

	requireLoggedOut(t, state)
	require.NoError(t, state.Err) // recovered silently, never surfaced
	require.Equal(t, 1, f.repo.ClearCalls)
}

func TestLoginSuccess(t *testing.T) {
	f := setupTestFixture(t, nil)

	require.NoError(t, f.store.Login(context.Background(), testEmail, testPassword))

	state := f.store.Snapshot()
	require.True(t, state.IsAuthenticated)
	require.NotNil(t, state.Identity)
	require.Equal(t, testEmail, state.Identity.Email)
	require.NotEmpty(t, state.Token)
	require.Equal(t, f.clock.Now().Add(14*24*time.Hour), state.TokenExpiry)

	stored := f.repo.Stored()
	require.NotNil(t, stored)
	require.Equal(t, state.Token, stored.Token)
	require.Equal(t, state.Identity.ID, stored.User.ID)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := setupTestFixture(t, nil)

	err := f.store.Login(context.Background(), testEmail, "wrong-password")

	require.ErrorIs(t, err, clienterrors.ErrInvalidCredentials)
	state := f.store.Snapshot()
	require.False(t, state.IsAuthenticated)
	require.Nil(t, state.Identity)
	require.ErrorIs(t, state.Err, clienterrors.ErrInvalidCredentials)
	require.Zero(t, f.repo.SaveCalls)
}

func TestSignupCreatesNewUser(t *testing.T) {
	f := setupTestFixture(t, nil)

	require.NoError(t, f.store.Signup(context.Background(), "New User", "new@example.com", "secret123"))

	state := f.store.Snapshot()
	require.True(t, state.IsAuthenticated)
	require.Equal(t, "new@example.com", state.Identity.Email)
	require.Contains(t, state.Identity.AvatarURL, "ui-avatars.com")
	require.NotNil(t, f.repo.Stored())
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := setupTestFixture(t, nil)

	err := f.store.Signup(context.Background(), "Other", testEmail, "secret123")

	require.ErrorIs(t, err, clienterrors.ErrEmailAlreadyInUse)
	state := f.store.Snapshot()
	require.False(t, state.IsAuthenticated)
	require.Zero(t, f.repo.SaveCalls)
}

func TestRefreshReplacesTokenPairKeepsIdentity(t *testing.T) {
	f := setupTestFixture(t, nil)
	require.NoError(t, f.store.Login(context.Background(), testEmail, testPassword))
	before := f.store.Snapshot()

	f.clock.Advance(time.Hour)
	refreshed, err := f.store.Refresh(context.Background())

	require.NoError(t, err)
	require.True(t, refreshed)

	after := f.store.Snapshot()
	require.Equal(t, before.Identity, after.Identity)
	require.NotEqual(t, before.Token, after.Token)
	require.True(t, after.TokenExpiry.After(before.TokenExpiry))
	require.Equal(t, after.Token, f.repo.Stored().Token)
}

func TestRefreshWithoutIdentityIsNoOp(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.store.Restore()

	refreshed, err := f.store.Refresh(context.Background())

	require.NoError(t, err)
	require.False(t, refreshed)
	require.Zero(t, f.repo.SaveCalls)
}

func TestRefreshIgnoresExpiredOldToken(t *testing.T) {
	f := setupTestFixture(t, nil)
	require.NoError(t, f.store.Login(context.Background(), testEmail, testPassword))

	// Refresh is unconditional once an identity exists, even long past the
	// old token's expiry.
	f.clock.Advance(30 * 24 * time.Hour)
	refreshed, err := f.store.Refresh(context.Background())

	require.NoError(t, err)
	require.True(t, refreshed)
	require.True(t, f.store.Snapshot().TokenExpiry.After(f.clock.Now()))
}

func TestLogoutClearsEverything(t *testing.T) {
	f := setupTestFixture(t, nil)
	require.NoError(t, f.store.Login(context.Background(), testEmail, testPassword))

	f.store.Logout(context.Background())

	state := f.store.Snapshot()
	requireLoggedOut(t, state)
	require.NoError(t, state.Err)
	require.Nil(t, f.repo.Stored())
}

func TestLogoutWhenAlreadyLoggedOut(t *testing.T) {
	f := setupTestFixture(t, nil)

	f.store.Logout(context.Background())

	requireLoggedOut(t, f.store.Snapshot())
}

func TestRefreshCompletingAfterLogoutIsDiscarded(t *testing.T) {
	// The logout fires while the refresh's mint is in flight. The stale
	// result must not resurrect the cleared session or its record.
	var f *testFixture
	logoutDuringMint := false
	f = setupTestFixture(t, func() {
		if logoutDuringMint {
			logoutDuringMint = false
			f.store.Logout(context.Background())
		}
	})
	require.NoError(t, f.store.Login(context.Background(), testEmail, testPassword))

	logoutDuringMint = true
	refreshed, err := f.store.Refresh(context.Background())

	require.NoError(t, err)
	require.False(t, refreshed)
	requireLoggedOut(t, f.store.Snapshot())
	require.Nil(t, f.repo.Stored())
}

func TestSignInWithProviderFailureKeepsPriorState(t *testing.T) {
	f := setupTestFixture(t, nil)
	require.NoError(t, f.store.Login(context.Background(), testEmail, testPassword))
	before := f.store.Snapshot()

	// The static provider has no external flow, so this always fails.
	err := f.store.SignInWithProvider(context.Background())

	require.ErrorIs(t, err, clienterrors.ErrExternalAuthFailed)
	after := f.store.Snapshot()
	require.True(t, after.IsAuthenticated)
	require.Equal(t, before.Token, after.Token)
	require.Equal(t, before.Identity, after.Identity)
	require.ErrorIs(t, after.Err, clienterrors.ErrExternalAuthFailed)
}

func TestPersistFailureLeavesLoggedOut(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.repo.SaveErr = clienterrors.ErrInternal

	err := f.store.Login(context.Background(), testEmail, testPassword)

	require.Error(t, err)
	require.False(t, f.store.Snapshot().IsAuthenticated)
}
