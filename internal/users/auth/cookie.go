// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"net/http"

	"github.com/taibuivan/folio/internal/platform/sec"
)

// SessionResolver is the deep verification capability of [Service].
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*sec.Identity, error)
}

// CookieAuthenticator carries the session token in the auth-token cookie.
//
// It implements both guard capabilities: [CookieAuthenticator.HasCredentialPresented]
// for the edge guard and [CookieAuthenticator.ResolveIdentity] for handlers.
// Both read the same cookie, so the two layers cannot drift apart.
type CookieAuthenticator struct {
	resolver SessionResolver
	secure   bool
}

// NewCookieAuthenticator creates an authenticator. Secure should be true
// everywhere except local development.
func NewCookieAuthenticator(resolver SessionResolver, secure bool) *CookieAuthenticator {
	return &CookieAuthenticator{resolver: resolver, secure: secure}
}

// TokenFromRequest returns the session token cookie value, or "".
func TokenFromRequest(request *http.Request) string {
	cookie, err := request.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// HasCredentialPresented reports whether a non-empty session cookie is present.
// It does not check validity.
func (authenticator *CookieAuthenticator) HasCredentialPresented(request *http.Request) bool {
	return TokenFromRequest(request) != ""
}

// ResolveIdentity fully verifies the request's session cookie.
func (authenticator *CookieAuthenticator) ResolveIdentity(request *http.Request) (*sec.Identity, error) {
	return authenticator.resolver.ResolveSession(request.Context(), TokenFromRequest(request))
}

// SetSessionCookie attaches token to the response for the whole session lifetime.
func (authenticator *CookieAuthenticator) SetSessionCookie(writer http.ResponseWriter, token string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   authenticator.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie instructs the browser to drop the session cookie.
func (authenticator *CookieAuthenticator) ClearSessionCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   authenticator.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
