// Package monitor keeps the session fresh while the user is active and
// terminates it promptly once idle-expired. It owns its idle timer
// exclusively and tears down all listeners on stop.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultIdleTimeout is how long the user may be silent before the
	// expiry check fires.
	DefaultIdleTimeout = 30 * time.Minute

	// DefaultRefreshThreshold is the remaining-validity floor below which a
	// navigation triggers a proactive refresh.
	DefaultRefreshThreshold = 30 * time.Minute
)

// Session is the slice of the session store the monitor drives.
type Session interface {
	Authenticated() bool
	Expiry() (time.Time, bool)
	Refresh(ctx context.Context) (bool, error)
	Logout(ctx context.Context)
}

// Monitor watches user activity. Every qualifying signal resets the idle
// timer and, when auto-refresh is on, refreshes the session. When the idle
// timer fires with no intervening activity, the token expiry is re-checked
// and an expired session is logged out.
//
// With auto-refresh on, activity keeps pushing the expiry forward, so the
// idle firing normally finds the token still valid; in that configuration a
// logout only happens after the user has been silent for the token's full
// validity window. That interaction is intended.
type Monitor struct {
	session Session
	source  Source

	idleTimeout      time.Duration
	autoRefresh      bool
	refreshThreshold time.Duration
	limiter          *rate.Limiter
	nowFunc          func() time.Time

	mu       sync.Mutex
	ctx      context.Context
	timer    *time.Timer
	removers []func()
	active   bool
}

// Option modifies a Monitor.
type Option func(*Monitor)

// WithIdleTimeout sets the inactivity duration before the expiry check.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		m.idleTimeout = d
	}
}

// WithAutoRefresh enables or disables refresh-on-activity.
func WithAutoRefresh(enabled bool) Option {
	return func(m *Monitor) {
		m.autoRefresh = enabled
	}
}

// WithRefreshThreshold sets the remaining-validity floor for the
// navigation-driven proactive refresh.
func WithRefreshThreshold(d time.Duration) Option {
	return func(m *Monitor) {
		m.refreshThreshold = d
	}
}

// WithRefreshLimit throttles activity-driven refreshes. The web client
// refreshed on every single event; that behavior is kept as the default, and
// this option exists for hosts that want to cap the chatter.
func WithRefreshLimit(limit rate.Limit, burst int) Option {
	return func(m *Monitor) {
		m.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) Option {
	return func(m *Monitor) {
		m.nowFunc = now
	}
}

// New creates a Monitor over a session and an activity source. Auto-refresh
// defaults to on, the idle timeout to 30 minutes.
func New(sess Session, source Source, options ...Option) (*Monitor, error) {
	if sess == nil {
		return nil, errors.New("[monitor.New] session is required")
	}
	if source == nil {
		return nil, errors.New("[monitor.New] activity source is required")
	}

	m := &Monitor{
		session:          sess,
		source:           source,
		idleTimeout:      DefaultIdleTimeout,
		autoRefresh:      true,
		refreshThreshold: DefaultRefreshThreshold,
		nowFunc:          time.Now,
	}

	for _, opt := range options {
		opt(m)
	}

	return m, nil
}

// Start activates the monitor. It only acts while the session is
// authenticated: an unauthenticated session leaves it inactive, and a token
// already past its expiry is logged out immediately without arming anything.
// Returns whether the monitor is now running.
func (m *Monitor) Start(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return true
	}
	if !m.session.Authenticated() {
		return false
	}

	if m.sessionExpired() {
		m.session.Logout(ctx)
		return false
	}

	m.ctx = ctx
	m.active = true

	for _, kind := range ActivitySignals() {
		m.removers = append(m.removers, m.source.AddListener(kind, m.onActivity))
	}
	m.armTimerLocked()
	return true
}

// Stop deactivates the monitor: the idle timer is cancelled and every
// activity listener removed. The monitor also stops itself when it observes
// the session going unauthenticated. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// stopLocked tears down the timer and listeners. Caller holds m.mu.
func (m *Monitor) stopLocked() {
	if !m.active {
		return
	}
	m.active = false

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	for _, remove := range m.removers {
		remove()
	}
	m.removers = nil
}

// OnNavigate is the independent route-change check: when the token's
// remaining validity is below the threshold, refresh proactively. Safe to
// run redundantly alongside the activity path.
func (m *Monitor) OnNavigate(ctx context.Context, path string) {
	if !m.session.Authenticated() {
		return
	}
	expiry, ok := m.session.Expiry()
	if !ok {
		return
	}
	if !ShouldRefresh(expiry, m.nowFunc(), m.refreshThreshold) {
		return
	}

	if _, err := m.session.Refresh(ctx); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("navigation-driven refresh failed")
	}
}

// ShouldRefresh reports whether a token expiring at expiry should be
// refreshed now, given the remaining-validity threshold.
func ShouldRefresh(expiry, now time.Time, threshold time.Duration) bool {
	if expiry.IsZero() {
		return false
	}
	return expiry.Before(now.Add(threshold))
}

// onActivity resets the idle timer and, with auto-refresh on, refreshes the
// session. Refresh is coupled to every qualifying event unless a limiter was
// configured.
func (m *Monitor) onActivity(Signal) {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	if !m.session.Authenticated() {
		m.stopLocked()
		m.mu.Unlock()
		return
	}
	m.armTimerLocked()
	ctx := m.ctx
	refresh := m.autoRefresh && (m.limiter == nil || m.limiter.Allow())
	m.mu.Unlock()

	if !refresh {
		return
	}
	if _, err := m.session.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("activity-driven refresh failed")
	}
}

// onIdle fires after idleTimeout of silence: re-evaluate expiry and log out
// an expired session.
func (m *Monitor) onIdle() {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	if !m.session.Authenticated() {
		m.stopLocked()
		m.mu.Unlock()
		return
	}
	ctx := m.ctx
	expired := m.sessionExpired()
	m.mu.Unlock()

	if expired {
		log.Info().Msg("session idle-expired, logging out")
		m.session.Logout(ctx)
		m.Stop()
	}
}

func (m *Monitor) sessionExpired() bool {
	if !m.session.Authenticated() {
		return false
	}
	expiry, ok := m.session.Expiry()
	if !ok {
		return true
	}
	return m.nowFunc().After(expiry)
}

// armTimerLocked (re)arms the one-shot idle timer. Caller holds m.mu.
func (m *Monitor) armTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.idleTimeout, m.onIdle)
}
