// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"

	"github.com/taibuivan/folio/internal/platform/apperr"
	"github.com/taibuivan/folio/internal/platform/ctxutil"
	"github.com/taibuivan/folio/internal/platform/respond"
	"github.com/taibuivan/folio/internal/platform/sec"
)

// IdentityResolver is the deep capability: it fully verifies the presented
// credential against the session store and returns the caller's identity.
//
// It must return an [apperr.AppError] with [apperr.CodeUnauthorized] when the
// caller is anonymous or the credential is invalid, expired or revoked.
type IdentityResolver interface {
	ResolveIdentity(request *http.Request) (*sec.Identity, error)
}

/*
RequireSession blocks requests that do not resolve to an active session.

# Flow
 1. Resolve the identity via [IdentityResolver] (token, session row, user).
 2. On an authentication failure, respond 401. Store failures respond 500.
 3. Inject the [*sec.Identity] into the context for downstream handlers.
*/
func RequireSession(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity, err := resolver.ResolveIdentity(request)
			if err != nil {
				if apperr.As(err) == nil {
					err = apperr.Internal(err)
				}
				respond.Error(writer, request, err)
				return
			}

			ctx := ctxutil.WithIdentity(request.Context(), identity)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}
