// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/taibuivan/folio/internal/platform/constants"
)

// CredentialPresence is the edge-level capability: it reports whether a
// request carries a session credential at all, without validating it.
type CredentialPresence interface {
	HasCredentialPresented(request *http.Request) bool
}

/*
AdminGuard is the cheap, reject-fast edge check for the admin area.

# Flow
 1. Requests outside /admin, the login page itself and API paths pass through.
 2. A request without a session credential is redirected (307) to the login
    page with the requested path in the 'redirect' query parameter.
 3. A request with a credential passes unchanged. Validity is checked later
    by the page or API handler.

The guard never answers the login path with a redirect, so an anonymous
visitor cannot loop.
*/
func AdminGuard(presence CredentialPresence) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			path := normalizePath(request.URL.Path)

			if !isGuardedPath(path) || presence.HasCredentialPresented(request) {
				next.ServeHTTP(writer, request)
				return
			}

			http.Redirect(writer, request, LoginRedirectURL(path), http.StatusTemporaryRedirect)
		})
	}
}

// LoginRedirectURL builds the login location that returns the visitor to path.
func LoginRedirectURL(path string) string {
	if path == "" || path == constants.AdminLoginPath {
		return constants.AdminLoginPath
	}
	query := url.Values{constants.RedirectParam: {path}}
	return constants.AdminLoginPath + "?" + query.Encode()
}

// isGuardedPath reports whether the edge guard applies to a normalized path.
func isGuardedPath(path string) bool {
	if !hasSegmentPrefix(path, constants.AdminPrefix) {
		return false
	}
	if hasSegmentPrefix(path, constants.AdminLoginPath) {
		return false
	}
	return !strings.HasPrefix(path+"/", constants.APIPrefix)
}

// hasSegmentPrefix matches prefix on a path-segment boundary, so "/administrator"
// is not under "/admin".
func hasSegmentPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// normalizePath drops a trailing slash so "/admin/" and "/admin" match alike.
func normalizePath(path string) string {
	if len(path) > 1 {
		return strings.TrimRight(path, "/")
	}
	return path
}
