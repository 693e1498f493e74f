// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for admin accounts.
//
// Lookups return [dberr.ErrNotFound] when no row matches.
type UserRepository interface {

	/*
		FindByUsername returns the account with the exact, case-sensitive username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or database failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or database failures
	*/
	FindByID(context context.Context, id int64) (*User, error)

	/*
		Create inserts a new account and fills in its ID and timestamps.

		Returns:
		  - error: ErrUsernameTaken on a unique violation, or database failures
	*/
	Create(context context.Context, user *User) error
}

// # Session Data Access

// SessionRepository defines the data access contract for bearer-token sessions.
type SessionRepository interface {

	// Create inserts a session row and fills in its ID and creation time.
	Create(context context.Context, session *Session) error

	/*
		FindActiveByToken returns the session matching token whose expiry is after now.

		Expired rows that have not been swept yet are treated as absent.

		Returns:
		  - *Session: Hydrated entity
		  - error: dberr.ErrNotFound or database failures
	*/
	FindActiveByToken(context context.Context, token string, now time.Time) (*Session, error)

	// DeleteByToken removes the matching session. Deleting nothing is not an error.
	DeleteByToken(context context.Context, token string) error

	// DeleteAllForUser removes every session of userID and returns how many.
	DeleteAllForUser(context context.Context, userID int64) (int64, error)

	// DeleteExpired removes sessions with expires_at <= now and returns how many.
	DeleteExpired(context context.Context, now time.Time) (int64, error)
}

// # Volatile Data Access

// LoginThrottle counts failed logins per key within a sliding-from-first-failure window.
type LoginThrottle interface {

	/*
		Failures returns the current failure count for key and the time left
		before the window resets.

		Returns:
		  - int: Failures recorded in the current window (0 if none)
		  - time.Duration: Remaining window, 0 if no window is open
		  - error: Connectivity errors
	*/
	Failures(context context.Context, key string) (int, time.Duration, error)

	// RecordFailure increments the counter, opening a window of the given length
	// on the first failure.
	RecordFailure(context context.Context, key string, window time.Duration) (int, error)

	// Reset clears the counter after a successful login.
	Reset(context context.Context, key string) error
}
