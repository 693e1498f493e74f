// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package admin serves the server-rendered admin shell.

The shell has two pages. The login page posts credentials to the JSON API
from an embedded script. The dashboard verifies the session on the server
before rendering and then runs the browser probe, which re-checks
GET /api/auth/session independently of the edge guard.
*/
package admin

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/folio/internal/platform/apperr"
	"github.com/taibuivan/folio/internal/platform/constants"
	"github.com/taibuivan/folio/internal/platform/ctxutil"
	"github.com/taibuivan/folio/internal/platform/middleware"
	"github.com/taibuivan/folio/internal/platform/respond"
	"github.com/taibuivan/folio/internal/platform/sec"
)

// DefaultLandingPath is where a login without a usable redirect ends up.
const DefaultLandingPath = constants.AdminPrefix + "/"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets/login.js
var loginScript string

//go:embed assets/probe.js
var probeScript string

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Sessions is what the pages need from the cookie authenticator.
type Sessions interface {
	ResolveIdentity(request *http.Request) (*sec.Identity, error)
	ClearSessionCookie(writer http.ResponseWriter)
}

// Pages renders the admin shell.
type Pages struct {
	sessions Sessions
}

// NewPages creates the admin shell handlers.
func NewPages(sessions Sessions) *Pages {
	return &Pages{sessions: sessions}
}

// Routes returns the shell routes, to be mounted at /admin behind [middleware.AdminGuard].
func (pages *Pages) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/login", pages.login)
	router.Get("/", pages.dashboard)

	return router
}

type loginView struct {
	Redirect string
	Script   template.JS
}

type dashboardView struct {
	User   *sec.Identity
	Script template.JS
}

/*
login renders the sign-in form.

GET /admin/login?redirect=<path>

Description: A visitor whose cookie already resolves to a session is sent
straight to the sanitized redirect target instead of seeing the form.
*/
func (pages *Pages) login(writer http.ResponseWriter, request *http.Request) {
	target := SafeRedirect(request.URL.Query().Get(constants.RedirectParam))

	if identity, err := pages.sessions.ResolveIdentity(request); err == nil && identity != nil {
		http.Redirect(writer, request, target, http.StatusSeeOther)
		return
	}

	pages.render(writer, request, "login.html", loginView{
		Redirect: target,
		Script:   template.JS(loginScript),
	})
}

/*
dashboard renders the admin landing page for a verified session.

GET /admin/

Description: The edge guard only saw a cookie. Here the session is resolved
fully; an invalid one has its cookie cleared and is sent to the login page.
*/
func (pages *Pages) dashboard(writer http.ResponseWriter, request *http.Request) {
	identity, err := pages.sessions.ResolveIdentity(request)
	if err != nil {
		if !apperr.HasCode(err, apperr.CodeUnauthorized) {
			respond.Error(writer, request, err)
			return
		}

		pages.sessions.ClearSessionCookie(writer)
		http.Redirect(writer, request, middleware.LoginRedirectURL(request.URL.Path), http.StatusSeeOther)
		return
	}

	pages.render(writer, request, "dashboard.html", dashboardView{
		User:   identity,
		Script: template.JS(probeScript),
	})
}

func (pages *Pages) render(writer http.ResponseWriter, request *http.Request, name string, view any) {
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.Header().Set("Cache-Control", "no-store")

	if err := pageTemplates.ExecuteTemplate(writer, name, view); err != nil {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "admin_page_render_failed",
			slog.String("template", name),
			slog.Any("error", err),
		)
	}
}

/*
SafeRedirect returns raw if it is a local path inside the admin area, and
[DefaultLandingPath] otherwise.

Rejected: absolute and scheme-relative URLs, backslashes, anything outside
/admin, and the login page itself (which would loop).
*/
func SafeRedirect(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return DefaultLandingPath
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return DefaultLandingPath
	}

	path := strings.TrimRight(parsed.Path, "/")
	if path != constants.AdminPrefix && !strings.HasPrefix(path, constants.AdminPrefix+"/") {
		return DefaultLandingPath
	}
	if path == constants.AdminLoginPath || strings.HasPrefix(path, constants.AdminLoginPath+"/") {
		return DefaultLandingPath
	}
	if strings.Contains(path, "/../") || strings.HasSuffix(path, "/..") {
		return DefaultLandingPath
	}

	return raw
}
