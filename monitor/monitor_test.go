package monitor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/aiacademy/academy-client/monitor"
)

// fakeSession drives the monitor without a real store. Refresh pushes the
// expiry forward the way a real token mint does.
type fakeSession struct {
	lock          sync.Mutex
	authenticated bool
	expiry        time.Time
	refreshCalls  int
	logoutCalls   int
	refreshWindow time.Duration
}

func (s *fakeSession) Authenticated() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.authenticated
}

func (s *fakeSession) Expiry() (time.Time, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.expiry.IsZero() {
		return time.Time{}, false
	}
	return s.expiry, true
}

func (s *fakeSession) Refresh(context.Context) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.authenticated {
		return false, nil
	}
	s.refreshCalls++
	s.expiry = time.Now().Add(s.refreshWindow)
	return true, nil
}

func (s *fakeSession) Logout(context.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.logoutCalls++
	s.authenticated = false
	s.expiry = time.Time{}
}

func (s *fakeSession) counts() (refreshes, logouts int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.refreshCalls, s.logoutCalls
}

func newFakeSession(expiry time.Time) *fakeSession {
	return &fakeSession{
		authenticated: true,
		expiry:        expiry,
		refreshWindow: time.Hour,
	}
}

func TestStartRequiresAuthenticatedSession(t *testing.T) {
	sess := &fakeSession{}
	source := monitor.NewFanSource()
	m, err := monitor.New(sess, source)
	require.NoError(t, err)

	require.False(t, m.Start(context.Background()))
	require.Zero(t, source.ListenerCount())
}

func TestStartLogsOutAlreadyExpiredSession(t *testing.T) {
	sess := newFakeSession(time.Now().Add(-time.Minute))
	source := monitor.NewFanSource()
	m, err := monitor.New(sess, source)
	require.NoError(t, err)

	require.False(t, m.Start(context.Background()))

	_, logouts := sess.counts()
	require.Equal(t, 1, logouts)
	require.Zero(t, source.ListenerCount())
}

func TestIdleFireLogsOutExpiredSession(t *testing.T) {
	// Token outlives the start check but is expired by the time the idle
	// timer fires, with auto-refresh off and zero activity.
	sess := newFakeSession(time.Now().Add(20 * time.Millisecond))
	source := monitor.NewFanSource()
	m, err := monitor.New(sess, source,
		monitor.WithIdleTimeout(50*time.Millisecond),
		monitor.WithAutoRefresh(false),
	)
	require.NoError(t, err)
	require.True(t, m.Start(context.Background()))
	defer m.Stop()

	require.Eventually(t, func() bool {
		_, logouts := sess.counts()
		return logouts == 1
	}, time.Second, 10*time.Millisecond)

	refreshes, _ := sess.counts()
	require.Zero(t, refreshes)
}

func TestContinuousActivityWithAutoRefreshPreventsLogout(t *testing.T) {
	sess := newFakeSession(time.Now().Add(40 * time.Millisecond))
	source := monitor.NewFanSource()
	m, err := monitor.New(sess, source,
		monitor.WithIdleTimeout(30*time.Millisecond),
	)
	require.NoError(t, err)
	require.True(t, m.Start(context.Background()))
	defer m.Stop()

	// Each event both resets the idle timer and pushes the expiry forward.
	for i := 0; i < 10; i++ {
		source.Emit(monitor.SignalMouseMove)
		time.Sleep(10 * time.Millisecond)
	}

	refreshes, logouts := sess.counts()
	require.Zero(t, logouts)
	require.GreaterOrEqual(t, refreshes, 10)
	require.True(t, sess.Authenticated())
}

func TestActivityWithAutoRefreshDisabledDoesNotRefresh(t *testing.T) {
	sess := newFakeSession(time.Now().Add(time.Hour))
	source := monitor.NewFanSource()
	m, err := monitor.New(sess, source,
		monitor.WithAutoRefresh(false),
	)
	require.NoError(t, err)
	require.True(t, m.Start(context.Background()))
	defer m.Stop()

	source.Emit(monitor.SignalClick)
	source.Emit(monitor.SignalKeyDown)

	refreshes, _ := sess.counts()
	require.Zero(t, refreshes)
}

func TestRefreshLimitThrottlesActivityRefreshes(t *testing.T) {
	sess := newFakeSession(time.Now().Add(time.Hour))
	source := monitor.NewFanSource()
	m, err := monitor.New(sess, source,
		monitor.WithRefreshLimit(rate.Every(time.Hour), 1),
	)
	require.NoError(t, err)
	require.True(t, m.Start(context.Background()))
	defer m.Stop()

	for i := 0; i < 5; i++ {
		source.Emit(monitor.SignalScroll)
	}

	refreshes, _ := sess.counts()
	require.Equal(t, 1, refreshes)
}

func TestStopRemovesListenersAndTimer(t *testing.T) {
	sess := newFakeSession(time.Now().Add(time.Hour))
	source := monitor.NewFanSource()
	m, err := monitor.New(sess, source)
	require.NoError(t, err)
	require.True(t, m.Start(context.Background()))
	require.Equal(t, len(monitor.ActivitySignals()), source.ListenerCount())

	m.Stop()
	m.Stop() // idempotent

	require.Zero(t, source.ListenerCount())

	source.Emit(monitor.SignalClick)
	refreshes, _ := sess.counts()
	require.Zero(t, refreshes)
}

func TestOnNavigateRefreshesNearExpiry(t *testing.T) {
	sess := newFakeSession(time.Now().Add(10 * time.Minute))
	m, err := monitor.New(sess, monitor.NewFanSource())
	require.NoError(t, err)

	m.OnNavigate(context.Background(), "/dashboard")

	refreshes, _ := sess.counts()
	require.Equal(t, 1, refreshes)
}

func TestOnNavigateSkipsFreshToken(t *testing.T) {
	sess := newFakeSession(time.Now().Add(48 * time.Hour))
	m, err := monitor.New(sess, monitor.NewFanSource())
	require.NoError(t, err)

	m.OnNavigate(context.Background(), "/dashboard")

	refreshes, _ := sess.counts()
	require.Zero(t, refreshes)
}

func TestOnNavigateIgnoresUnauthenticated(t *testing.T) {
	sess := &fakeSession{}
	m, err := monitor.New(sess, monitor.NewFanSource())
	require.NoError(t, err)

	m.OnNavigate(context.Background(), "/courses")

	refreshes, logouts := sess.counts()
	require.Zero(t, refreshes)
	require.Zero(t, logouts)
}

func TestShouldRefresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	threshold := 30 * time.Minute

	require.False(t, monitor.ShouldRefresh(time.Time{}, now, threshold))
	require.True(t, monitor.ShouldRefresh(now.Add(10*time.Minute), now, threshold))
	require.True(t, monitor.ShouldRefresh(now.Add(-time.Minute), now, threshold))
	require.False(t, monitor.ShouldRefresh(now.Add(2*time.Hour), now, threshold))
}
