// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides the cryptographic primitives behind admin sessions.
//
// # Architecture
//
// This package isolates security-sensitive code (password hashing, token
// signing) from the session lifecycle. It knows nothing about cookies or
// storage: [SessionCodec] only proves that a token was minted by this server
// for a session, and [PasswordHasher] only proves knowledge of a password.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTypeSession is the type discriminator embedded in every session token.
const TokenTypeSession = "session"

// ErrInvalidToken is the single result for every verification failure:
// bad signature, expired, malformed, wrong algorithm, or wrong type.
var ErrInvalidToken = errors.New("sec: invalid session token")

// SessionClaims is the payload of a session bearer token.
type SessionClaims struct {
	jwt.RegisteredClaims

	UserID int64  `json:"userId"`
	Type   string `json:"type"`
}

// SessionCodec mints and verifies HS256 session tokens.
//
// The validity window is fixed at issuance; verification applies no leeway.
type SessionCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption configures a [SessionCodec].
type CodecOption func(*SessionCodec)

// WithClock overrides the wall clock used for issuance and verification.
func WithClock(now func() time.Time) CodecOption {
	return func(codec *SessionCodec) {
		if now != nil {
			codec.now = now
		}
	}
}

// NewSessionCodec creates a codec signing with secret.
func NewSessionCodec(secret []byte, issuer string, ttl time.Duration, opts ...CodecOption) (*SessionCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("sec: session secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("sec: session ttl must be positive, got %s", ttl)
	}

	codec := &SessionCodec{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(codec)
	}
	return codec, nil
}

// Issue creates a signed session token for userID.
//
// Every token carries a random jti, so two logins in the same second still
// produce distinct tokens.
func (codec *SessionCodec) Issue(userID int64) (string, error) {
	issuedAt := codec.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    codec.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(codec.ttl)),
		},
		UserID: userID,
		Type:   TokenTypeSession,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(codec.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks signature, expiry, issuer and type of tokenString.
//
// It never panics and returns [ErrInvalidToken] for every failure.
func (codec *SessionCodec) Verify(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return codec.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(codec.issuer),
		jwt.WithTimeFunc(codec.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Type != TokenTypeSession || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// TTL returns the fixed validity window of issued tokens.
func (codec *SessionCodec) TTL() time.Duration {
	return codec.ttl
}
