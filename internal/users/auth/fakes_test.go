// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/folio/internal/platform/constants"
	"github.com/taibuivan/folio/internal/platform/dberr"
	"github.com/taibuivan/folio/internal/platform/sec"
	"github.com/taibuivan/folio/internal/users/auth"
)

var errStoreDown = errors.New("connection refused")

// # Clock

type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.current
}

func (clock *fakeClock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.current = clock.current.Add(d)
}

// # In-memory repositories

type memoryUsers struct {
	mu     sync.Mutex
	byID   map[int64]*auth.User
	nextID int64
	err    error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[int64]*auth.User{}}
}

func (store *memoryUsers) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.err != nil {
		return nil, store.err
	}
	for _, user := range store.byID {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (store *memoryUsers) FindByID(_ context.Context, id int64) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.err != nil {
		return nil, store.err
	}
	user, ok := store.byID[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (store *memoryUsers) Create(_ context.Context, user *auth.User) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.err != nil {
		return store.err
	}
	for _, existing := range store.byID {
		if existing.Username == user.Username {
			return auth.ErrUsernameTaken
		}
	}
	store.nextID++
	user.ID = store.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	store.byID[user.ID] = &clone
	return nil
}

func (store *memoryUsers) delete(id int64) {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.byID, id)
}

type memorySessions struct {
	mu      sync.Mutex
	byToken map[string]*auth.Session
	nextID  int64
	err     error
}

func newMemorySessions() *memorySessions {
	return &memorySessions{byToken: map[string]*auth.Session{}}
}

func (store *memorySessions) Create(_ context.Context, session *auth.Session) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.err != nil {
		return store.err
	}
	if _, exists := store.byToken[session.Token]; exists {
		return errors.New("duplicate token")
	}
	store.nextID++
	session.ID = store.nextID
	clone := *session
	store.byToken[session.Token] = &clone
	return nil
}

func (store *memorySessions) FindActiveByToken(_ context.Context, token string, now time.Time) (*auth.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.err != nil {
		return nil, store.err
	}
	session, ok := store.byToken[token]
	if !ok || !session.ExpiresAt.After(now) {
		return nil, dberr.ErrNotFound
	}
	clone := *session
	return &clone, nil
}

func (store *memorySessions) DeleteByToken(_ context.Context, token string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.err != nil {
		return store.err
	}
	delete(store.byToken, token)
	return nil
}

func (store *memorySessions) DeleteAllForUser(_ context.Context, userID int64) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.err != nil {
		return 0, store.err
	}
	var deleted int64
	for token, session := range store.byToken {
		if session.UserID == userID {
			delete(store.byToken, token)
			deleted++
		}
	}
	return deleted, nil
}

func (store *memorySessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.err != nil {
		return 0, store.err
	}
	var deleted int64
	for token, session := range store.byToken {
		if !session.ExpiresAt.After(now) {
			delete(store.byToken, token)
			deleted++
		}
	}
	return deleted, nil
}

func (store *memorySessions) count() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.byToken)
}

func (store *memorySessions) setErr(err error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.err = err
}

// # Hasher spy

// countingHasher wraps the real hasher and counts bcrypt comparisons.
type countingHasher struct {
	*sec.PasswordHasher
	mu          sync.Mutex
	comparisons int
}

func (hasher *countingHasher) Verify(password, hash string) bool {
	hasher.mu.Lock()
	hasher.comparisons++
	hasher.mu.Unlock()
	return hasher.PasswordHasher.Verify(password, hash)
}

func (hasher *countingHasher) Burn(password string) {
	hasher.mu.Lock()
	hasher.comparisons++
	hasher.mu.Unlock()
	hasher.PasswordHasher.Burn(password)
}

func (hasher *countingHasher) Comparisons() int {
	hasher.mu.Lock()
	defer hasher.mu.Unlock()
	return hasher.comparisons
}

// # Throttle

type memoryThrottle struct {
	mu       sync.Mutex
	failures map[string]int
	err      error
}

func newMemoryThrottle() *memoryThrottle {
	return &memoryThrottle{failures: map[string]int{}}
}

func (throttle *memoryThrottle) Failures(_ context.Context, key string) (int, time.Duration, error) {
	throttle.mu.Lock()
	defer throttle.mu.Unlock()
	if throttle.err != nil {
		return 0, 0, throttle.err
	}
	return throttle.failures[key], 90 * time.Second, nil
}

func (throttle *memoryThrottle) RecordFailure(_ context.Context, key string, _ time.Duration) (int, error) {
	throttle.mu.Lock()
	defer throttle.mu.Unlock()
	if throttle.err != nil {
		return 0, throttle.err
	}
	throttle.failures[key]++
	return throttle.failures[key], nil
}

func (throttle *memoryThrottle) Reset(_ context.Context, key string) error {
	throttle.mu.Lock()
	defer throttle.mu.Unlock()
	if throttle.err != nil {
		return throttle.err
	}
	delete(throttle.failures, key)
	return nil
}

// # Observer

type recordingObserver struct {
	mu     sync.Mutex
	logins []string
	checks []string
	swept  int64
}

func (observer *recordingObserver) LoginAttempt(outcome string) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	observer.logins = append(observer.logins, outcome)
}

func (observer *recordingObserver) SessionCheck(outcome string) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	observer.checks = append(observer.checks, outcome)
}

func (observer *recordingObserver) SessionsSwept(count int64) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	observer.swept += count
}

// # Fixture

const (
	adminUsername = "admin"
	adminPassword = "correct-pw"
	testSecret    = "test-session-secret"
)

type fixture struct {
	service  *auth.Service
	users    *memoryUsers
	sessions *memorySessions
	hasher   *countingHasher
	codec    *sec.SessionCodec
	clock    *fakeClock
	throttle *memoryThrottle
	observer *recordingObserver
	admin    *auth.User
}

// newFixture builds a service over in-memory stores with one seeded admin (id 1).
func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := newFakeClock()
	codec, err := sec.NewSessionCodec([]byte(testSecret), constants.AuthIssuer, auth.SessionTTL, sec.WithClock(clock.Now))
	require.NoError(t, err)

	f := &fixture{
		users:    newMemoryUsers(),
		sessions: newMemorySessions(),
		hasher:   &countingHasher{PasswordHasher: sec.NewPasswordHasher(bcrypt.MinCost)},
		codec:    codec,
		clock:    clock,
		throttle: newMemoryThrottle(),
		observer: &recordingObserver{},
	}

	f.service = auth.NewService(f.users, f.sessions, f.hasher, f.codec,
		auth.WithClock(clock.Now),
		auth.WithLoginThrottle(f.throttle, 5, 15*time.Minute),
		auth.WithObserver(f.observer),
	)

	hash, err := f.hasher.Hash(adminPassword)
	require.NoError(t, err)
	f.admin = &auth.User{Username: adminUsername, PasswordHash: hash}
	require.NoError(t, f.users.Create(context.Background(), f.admin))

	return f
}
