// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"time"

	"github.com/taibuivan/folio/internal/platform/sec"
)

// # Domain Entities

// User is an admin account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never leaves the store layer.
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// Identity returns the public view of the account.
func (user *User) Identity() *sec.Identity {
	return &sec.Identity{UserID: user.ID, Username: user.Username}
}

// Session is a server-recorded grant bound to one bearer token.
type Session struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// # Field Identifiers

const (
	FieldUsername = "username"
	FieldPassword = "password"
	FieldDeleted  = "deleted"
)
