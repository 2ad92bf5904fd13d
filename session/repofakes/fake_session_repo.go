package repofakes

import (
	"sync"

	"github.com/aiacademy/academy-client/session"
)

var _ session.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory session.Repo for tests.
type FakeSessionRepo struct {
	lock   sync.RWMutex
	record *session.Record

	// Injectable failures
	SaveErr  error
	LoadErr  error
	ClearErr error

	// Call accounting
	SaveCalls  int
	ClearCalls int
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{}
}

func (r *FakeSessionRepo) Save(record *session.Record) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.SaveCalls++
	if r.SaveErr != nil {
		return r.SaveErr
	}
	copied := *record
	r.record = &copied
	return nil
}

func (r *FakeSessionRepo) Load() (*session.Record, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	if r.record == nil {
		return nil, nil
	}
	copied := *r.record
	return &copied, nil
}

func (r *FakeSessionRepo) Clear() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.ClearCalls++
	if r.ClearErr != nil {
		return r.ClearErr
	}
	r.record = nil
	return nil
}

// Stored returns the currently persisted record, or nil.
func (r *FakeSessionRepo) Stored() *session.Record {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.record == nil {
		return nil
	}
	copied := *r.record
	return &copied
}
