package repofakes

import (
	"context"
	"sync"

	"github.com/aiacademy/academy-client/internal/errors"
	"github.com/aiacademy/academy-client/profiles"
)

var _ profiles.Repo = (*FakeProfileRepo)(nil)

// FakeProfileRepo is an in-memory profiles.Repo for tests.
type FakeProfileRepo struct {
	lock     sync.RWMutex
	profiles map[string]*profiles.Profile

	UpsertCalls  int
	UpsertErr    error
	CreatedCount int
}

func NewFakeProfileRepo() *FakeProfileRepo {
	return &FakeProfileRepo{profiles: make(map[string]*profiles.Profile)}
}

func (r *FakeProfileRepo) Upsert(_ context.Context, profile *profiles.Profile) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.UpsertCalls++
	if r.UpsertErr != nil {
		return r.UpsertErr
	}
	if _, exists := r.profiles[profile.UID]; exists {
		return nil // existing profile left untouched
	}
	copied := *profile
	r.profiles[profile.UID] = &copied
	r.CreatedCount++
	return nil
}

func (r *FakeProfileRepo) Get(_ context.Context, uid string) (*profiles.Profile, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	profile, ok := r.profiles[uid]
	if !ok {
		return nil, errors.ErrNotFound
	}
	copied := *profile
	return &copied, nil
}
