package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/platinummonkey/carebase/pkg/storage"
)

type fakeUserStore struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*storage.User
	findErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: make(map[int64]*storage.User)}
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeUserStore) FindByID(_ context.Context, id int64) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) Create(_ context.Context, user *storage.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == user.Email {
			return storage.ErrAlreadyExists
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.byID[user.ID] = &copied
	return nil
}

func (f *fakeUserStore) delete(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
}

type fakeRevokedTokenStore struct {
	mu      sync.Mutex
	rows    map[string]time.Time
	failErr error
}

func newFakeRevokedTokenStore() *fakeRevokedTokenStore {
	return &fakeRevokedTokenStore{rows: make(map[string]time.Time)}
}

func (f *fakeRevokedTokenStore) Insert(_ context.Context, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	if _, ok := f.rows[tokenHash]; !ok {
		f.rows[tokenHash] = expiresAt
	}
	return nil
}

func (f *fakeRevokedTokenStore) Exists(_ context.Context, tokenHash string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return false, f.failErr
	}
	expiresAt, ok := f.rows[tokenHash]
	return ok && now.Before(expiresAt), nil
}

func (f *fakeRevokedTokenStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, exp := range f.rows {
		if !now.Before(exp) {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

type failingRevocationStore struct{}

func (failingRevocationStore) Revoke(context.Context, string, time.Time) error {
	return errors.New("connection reset")
}

func (failingRevocationStore) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("connection reset")
}

func (failingRevocationStore) Backend() string { return "failing" }

type countingRecorder struct {
	mu          sync.Mutex
	outcomes    map[string]int
	revocations map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{outcomes: make(map[string]int), revocations: make(map[string]int)}
}

func (c *countingRecorder) RecordAuthOutcome(operation, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[operation+"/"+outcome]++
}

func (c *countingRecorder) RecordRevocation(backend string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revocations[backend]++
}

// fixedClock is a settable time source
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
