// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/folio/internal/platform/apperr"
	"github.com/taibuivan/folio/internal/platform/ctxutil"
	"github.com/taibuivan/folio/internal/platform/middleware"
	requestutil "github.com/taibuivan/folio/internal/platform/request"
	"github.com/taibuivan/folio/internal/platform/respond"
	"github.com/taibuivan/folio/internal/platform/sec"
)

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
//
// # Scope
//
// The handler is a thin transport layer: it moves the session token between
// the cookie and [Service] and shapes JSON responses. Every decision about
// validity is made by the service.
type Handler struct {
	authService *Service
	cookies     *CookieAuthenticator
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, cookies *CookieAuthenticator) *Handler {
	return &Handler{authService: service, cookies: cookies}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /login      : Verifies credentials and sets the session cookie.
//   - POST /logout     : Revokes the current session and clears the cookie.
//   - GET  /session    : Reports whether the cookie resolves to a session.
//   - POST /register   : Creates a new admin. Requires a session.
//   - POST /logout-all : Revokes every session of the caller.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login", handler.login)
	router.Post("/logout", handler.logout)
	router.Get("/session", handler.session)
	router.Post("/register", handler.register)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(handler.cookies))
		r.Post("/logout-all", handler.logoutAll)
	})

	return router
}

// # Response Payloads

type userResponse struct {
	Success bool          `json:"success"`
	User    *sec.Identity `json:"user"`
}

type sessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *sec.Identity `json:"user,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type logoutAllResponse struct {
	Success bool  `json:"success"`
	Deleted int64 `json:"deleted"`
}

/*
Login authenticates credentials and starts a session.

POST /api/auth/login

Request:
  - Body: {username, password}

Response:
  - 200: {success: true, user: {id, username}} with the auth-token cookie
  - 400: Missing fields or malformed JSON
  - 401: {error: "Invalid credentials"}, no cookie
  - 429: Too many failed attempts for this username
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input Credentials
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	input.ClientIP = middleware.RealIP(request)

	result, err := handler.authService.Login(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookies.SetSessionCookie(writer, result.Token)
	respond.OK(writer, userResponse{Success: true, User: result.User.Identity()})
}

/*
Logout revokes the presented session and clears the cookie.

POST /api/auth/logout

Description: Succeeds without a cookie, with an unknown token and when
called twice. Only a store failure answers 500; the cookie is cleared then too.
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	err := handler.authService.Logout(request.Context(), TokenFromRequest(request))
	handler.cookies.ClearSessionCookie(writer)

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, successResponse{Success: true})
}

/*
Session reports the caller's authentication state.

GET /api/auth/session

Response:
  - 200: {authenticated: true, user: {id, username}}
  - 200: {authenticated: false} on every failure, including store outages
*/
func (handler *Handler) session(writer http.ResponseWriter, request *http.Request) {
	identity, err := handler.cookies.ResolveIdentity(request)
	if err != nil {
		if !apperr.HasCode(err, apperr.CodeUnauthorized) {
			ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "session_check_failed",
				slog.Any("error", err),
			)
		}
		respond.OK(writer, sessionResponse{Authenticated: false})
		return
	}

	respond.OK(writer, sessionResponse{Authenticated: true, User: identity})
}

/*
Register creates a new admin account.

POST /api/auth/register

Request:
  - Cookie: a valid session
  - Body: {username, password}

Response:
  - 201: {success: true, user: {id, username}}
  - 400: Missing fields or password shorter than 8 characters
  - 401: The caller is not logged in
  - 409: {error: "Username already exists"}
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	requester, err := handler.cookies.ResolveIdentity(request)
	if err != nil && !apperr.HasCode(err, apperr.CodeUnauthorized) {
		respond.Error(writer, request, err)
		return
	}

	// The session check comes first so anonymous callers learn nothing about the body.
	if requester == nil {
		respond.Error(writer, request, ErrRegistrationUnauthorized)
		return
	}

	var input Credentials
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	ctx := ctxutil.WithIdentity(request.Context(), requester)
	user, err := handler.authService.Register(ctx, requester, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, userResponse{Success: true, User: user.Identity()})
}

/*
LogoutAll revokes every session of the authenticated caller.

POST /api/auth/logout-all

Response:
  - 200: {success: true, deleted: n} and the cookie cleared
  - 401: No valid session
*/
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	deleted, err := handler.authService.LogoutAll(request.Context(), identity)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookies.ClearSessionCookie(writer)
	respond.OK(writer, logoutAllResponse{Success: true, Deleted: deleted})
}
