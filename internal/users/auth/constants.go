// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Session Transport

const (
	// SessionCookieName carries the bearer token. Issuance and verification
	// must agree on it.
	SessionCookieName = "auth-token"

	// SessionTTL is the fixed lifetime of a session. It is never extended by use.
	SessionTTL = 7 * 24 * time.Hour
)

// # Credential Constraints

const (
	// MinPasswordLength is the shortest password accepted at registration.
	MinPasswordLength = 8

	// MinUsernameLength and MaxUsernameLength bound new usernames, in characters.
	MinUsernameLength = 3
	MaxUsernameLength = 255
)

// # Metric Outcomes

const (
	OutcomeSuccess            = "success"
	OutcomeInvalidRequest     = "invalid_request"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeThrottled          = "throttled"
	OutcomeError              = "error"

	OutcomeAuthenticated = "authenticated"
	OutcomeAnonymous     = "anonymous"
	OutcomeRejected      = "rejected"
)
