// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/folio/internal/platform/dberr"
)

// querier is the subset of [pgxpool.Pool] the repositories need.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// # User Repository

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	db querier
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(db querier) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const selectUserColumns = `SELECT id, username, password_hash, created_at, updated_at FROM users`

/*
FindByUsername retrieves a user record by their unique username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *User: Hydrated account entity
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	const query = selectUserColumns + ` WHERE username = $1`

	user, err := scanUser(repository.db.QueryRow(context, query, username))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_username_failed")
	}

	return user, nil
}

/*
FindByID retrieves a user record by primary key.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - *User: Hydrated account entity
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id int64) (*User, error) {
	const query = selectUserColumns + ` WHERE id = $1`

	user, err := scanUser(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_id_failed")
	}

	return user, nil
}

/*
Create persists a new user record.

Description: The database assigns the ID and both timestamps; they are
written back into user.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: ErrUsernameTaken on a duplicate username, or database errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	err := repository.db.QueryRow(context, query, user.Username, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// # Session Repository

// PostgresSessionRepository implements [SessionRepository] using pgx.
type PostgresSessionRepository struct {
	db querier
}

// NewSessionRepository creates a new PostgreSQL implementation of SessionRepository.
func NewSessionRepository(db querier) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

/*
Create persists a new session row for a successful login.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Storage failures
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	const query = `
		INSERT INTO sessions (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := repository.db.QueryRow(context, query, session.UserID, session.Token, session.ExpiresAt).
		Scan(&session.ID, &session.CreatedAt)

	if err != nil {
		return fmt.Errorf("postgres_session_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindActiveByToken resolves a bearer token into its unexpired session.

Description: The caller supplies now so expiry is judged by the same clock
as the token codec.

Parameters:
  - context: context.Context
  - token: string
  - now: time.Time

Returns:
  - *Session: Hydrated session
  - error: dberr.ErrNotFound or execution errors
*/
func (repository *PostgresSessionRepository) FindActiveByToken(context context.Context, token string, now time.Time) (*Session, error) {
	const query = `
		SELECT id, user_id, token, expires_at, created_at
		FROM sessions
		WHERE token = $1 AND expires_at > $2`

	session := &Session{}
	err := repository.db.QueryRow(context, query, token, now).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err != nil {
		return nil, dberr.Wrap(err, "postgres_session_repo_find_failed")
	}

	return session, nil
}

// DeleteByToken removes the session holding token, if any.
func (repository *PostgresSessionRepository) DeleteByToken(context context.Context, token string) error {
	const query = "DELETE FROM sessions WHERE token = $1"

	if _, err := repository.db.Exec(context, query, token); err != nil {
		return fmt.Errorf("postgres_session_repo_delete_failed: %w", err)
	}
	return nil
}

// DeleteAllForUser removes every session of a user.
func (repository *PostgresSessionRepository) DeleteAllForUser(context context.Context, userID int64) (int64, error) {
	const query = "DELETE FROM sessions WHERE user_id = $1"

	tag, err := repository.db.Exec(context, query, userID)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_all_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

/*
DeleteExpired permanently removes all sessions that have passed their expiration.

Parameters:
  - context: context.Context
  - now: time.Time

Returns:
  - int64: Rows removed
  - error: Cleanup failures
*/
func (repository *PostgresSessionRepository) DeleteExpired(context context.Context, now time.Time) (int64, error) {
	const query = "DELETE FROM sessions WHERE expires_at <= $1"

	tag, err := repository.db.Exec(context, query, now)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
