// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/folio/internal/platform/dberr"
	"github.com/taibuivan/folio/internal/users/auth"
)

// # Fake pgx querier

type fakeRow struct {
	values []any
	err    error
}

func (row fakeRow) Scan(dest ...any) error {
	if row.err != nil {
		return row.err
	}
	if len(dest) != len(row.values) {
		return errors.New("column count mismatch")
	}
	for i, value := range row.values {
		switch target := dest[i].(type) {
		case *int64:
			*target = value.(int64)
		case *string:
			*target = value.(string)
		case *time.Time:
			*target = value.(time.Time)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

type fakeQuerier struct {
	lastSQL  string
	lastArgs []any
	row      fakeRow
	tag      pgconn.CommandTag
	execErr  error
}

func (db *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.lastSQL, db.lastArgs = sql, args
	return db.tag, db.execErr
}

func (db *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.lastSQL, db.lastArgs = sql, args
	return db.row
}

var storedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

/*
TestUserRepository_FindByUsername hydrates a user and maps no rows to ErrNotFound.
*/
func TestUserRepository_FindByUsername(t *testing.T) {
	db := &fakeQuerier{row: fakeRow{values: []any{int64(1), "admin", "$2a$10$hash", storedAt, storedAt}}}
	repository := auth.NewUserRepository(db)

	user, err := repository.FindByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "$2a$10$hash", user.PasswordHash)
	assert.Contains(t, db.lastSQL, "WHERE username = $1")
	assert.Equal(t, []any{"admin"}, db.lastArgs)

	db.row = fakeRow{err: pgx.ErrNoRows}
	_, err = repository.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, dberr.ErrNotFound)

	_, err = repository.FindByID(context.Background(), 9)
	assert.ErrorIs(t, err, dberr.ErrNotFound)
	assert.Contains(t, db.lastSQL, "WHERE id = $1")
}

/*
TestUserRepository_FindByID_Failure keeps driver errors distinct from absence.
*/
func TestUserRepository_FindByID_Failure(t *testing.T) {
	db := &fakeQuerier{row: fakeRow{err: errStoreDown}}
	repository := auth.NewUserRepository(db)

	_, err := repository.FindByID(context.Background(), 1)
	assert.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, dberr.ErrNotFound)
}

/*
TestUserRepository_Create writes back generated columns and maps 23505.
*/
func TestUserRepository_Create(t *testing.T) {
	db := &fakeQuerier{row: fakeRow{values: []any{int64(7), storedAt, storedAt}}}
	repository := auth.NewUserRepository(db)

	user := &auth.User{Username: "editor", PasswordHash: "hash"}
	require.NoError(t, repository.Create(context.Background(), user))
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, storedAt, user.CreatedAt)
	assert.Equal(t, []any{"editor", "hash"}, db.lastArgs)

	db.row = fakeRow{err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}}
	err := repository.Create(context.Background(), &auth.User{Username: "editor", PasswordHash: "hash"})
	assert.ErrorIs(t, err, auth.ErrUsernameTaken)

	db.row = fakeRow{err: errStoreDown}
	err = repository.Create(context.Background(), &auth.User{Username: "other", PasswordHash: "hash"})
	assert.ErrorIs(t, err, errStoreDown)
}

/*
TestSessionRepository_FindActiveByToken filters on the caller's clock.
*/
func TestSessionRepository_FindActiveByToken(t *testing.T) {
	expires := storedAt.Add(7 * 24 * time.Hour)
	db := &fakeQuerier{row: fakeRow{values: []any{int64(3), int64(1), "token", expires, storedAt}}}
	repository := auth.NewSessionRepository(db)

	session, err := repository.FindActiveByToken(context.Background(), "token", storedAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), session.UserID)
	assert.Equal(t, expires, session.ExpiresAt)
	assert.Contains(t, db.lastSQL, "expires_at > $2")
	assert.Equal(t, []any{"token", storedAt}, db.lastArgs)

	db.row = fakeRow{err: pgx.ErrNoRows}
	_, err = repository.FindActiveByToken(context.Background(), "token", storedAt)
	assert.ErrorIs(t, err, dberr.ErrNotFound)
}

/*
TestSessionRepository_Create persists the expiry and reads back the id.
*/
func TestSessionRepository_Create(t *testing.T) {
	db := &fakeQuerier{row: fakeRow{values: []any{int64(11), storedAt}}}
	repository := auth.NewSessionRepository(db)

	session := &auth.Session{UserID: 1, Token: "token", ExpiresAt: storedAt.Add(time.Hour)}
	require.NoError(t, repository.Create(context.Background(), session))
	assert.Equal(t, int64(11), session.ID)
	assert.Equal(t, []any{int64(1), "token", storedAt.Add(time.Hour)}, db.lastArgs)
}

/*
TestSessionRepository_Deletes reports affected rows from the command tag.
*/
func TestSessionRepository_Deletes(t *testing.T) {
	db := &fakeQuerier{tag: pgconn.NewCommandTag("DELETE 3")}
	repository := auth.NewSessionRepository(db)

	require.NoError(t, repository.DeleteByToken(context.Background(), "token"))
	assert.Equal(t, []any{"token"}, db.lastArgs)

	deleted, err := repository.DeleteAllForUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Contains(t, db.lastSQL, "user_id = $1")

	deleted, err = repository.DeleteExpired(context.Background(), storedAt)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Contains(t, db.lastSQL, "expires_at <= $1")

	db.execErr = errStoreDown
	assert.ErrorIs(t, repository.DeleteByToken(context.Background(), "token"), errStoreDown)
	_, err = repository.DeleteExpired(context.Background(), storedAt)
	assert.ErrorIs(t, err, errStoreDown)
}
