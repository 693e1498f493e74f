// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements admin identity and session management.

It turns a username and password into a server-recorded session bound to a
signed bearer token, resolves that token back into an identity on every
protected request, and revokes it on logout.

Architecture:

  - Service: Orchestrates Login, ResolveSession, Logout and Register.
  - Repository: Abstracted interfaces for Postgres (users, sessions) and Redis (login throttle).
  - Transport: Cookie authenticator and JSON handlers.

A token is valid only while both its signature and its session row hold, so
logout takes effect on the very next request.
*/
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/folio/internal/platform/apperr"
	"github.com/taibuivan/folio/internal/platform/ctxutil"
	"github.com/taibuivan/folio/internal/platform/dberr"
	"github.com/taibuivan/folio/internal/platform/sec"
	"github.com/taibuivan/folio/internal/platform/validate"
)

// # Errors

var (
	// ErrInvalidCredentials is the single answer for unknown users and wrong passwords.
	ErrInvalidCredentials = apperr.Unauthorized("Invalid credentials")

	// ErrUnauthenticated is returned for every session resolution failure.
	ErrUnauthenticated = apperr.Unauthorized("Unauthorized")

	// ErrRegistrationUnauthorized is returned when an anonymous caller tries to register.
	ErrRegistrationUnauthorized = apperr.Unauthorized("Unauthorized. You must be logged in as an admin to create new users.")

	// ErrUsernameTaken is returned when the username already exists.
	ErrUsernameTaken = apperr.Conflict("Username already exists")
)

const (
	msgCredentialsRequired = "Username and password are required"
	msgPasswordTooShort    = "Password must be at least 8 characters long"
	msgPasswordTooLong     = "Password must be at most 72 bytes long"
	msgUsernameLength      = "Username must be between 3 and 255 characters"
)

var tracer = otel.Tracer("github.com/taibuivan/folio/internal/users/auth")

// # Contracts & Types

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
	// Burn costs the same as Verify and is used when there is no hash to check.
	Burn(password string)
}

// TokenCodec mints and verifies signed session tokens.
type TokenCodec interface {
	Issue(userID int64) (string, error)
	Verify(token string) (*sec.SessionClaims, error)
}

// Observer receives authentication outcomes for metrics.
type Observer interface {
	LoginAttempt(outcome string)
	SessionCheck(outcome string)
	SessionsSwept(count int64)
}

type noopObserver struct{}

func (noopObserver) LoginAttempt(string) {}
func (noopObserver) SessionCheck(string) {}
func (noopObserver) SessionsSwept(int64) {}

// Credentials is a username and password pair, as submitted.
//
// ClientIP is filled by the transport, never decoded from the body. Login
// failures are counted per username and client address.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	ClientIP string `json:"-"`
}

// LoginResult is a freshly established session.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

// Service implements the session manager use cases.
//
// # Concurrency
//
// Service holds no per-request state and is safe for concurrent use. Logins
// are not serialized: two concurrent logins for one user create two sessions.
type Service struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	hasher            PasswordHasher
	codec             TokenCodec

	throttle           LoginThrottle
	maxLoginFailures   int
	loginFailureWindow time.Duration

	observer   Observer
	now        func() time.Time
	sessionTTL time.Duration
}

// Option configures a [Service].
type Option func(*Service)

// WithLoginThrottle enables lockout after maxFailures failed logins for one
// username from one client address within window.
func WithLoginThrottle(throttle LoginThrottle, maxFailures int, window time.Duration) Option {
	return func(service *Service) {
		service.throttle = throttle
		service.maxLoginFailures = maxFailures
		service.loginFailureWindow = window
	}
}

// WithObserver reports outcomes to observer.
func WithObserver(observer Observer) Option {
	return func(service *Service) {
		if observer != nil {
			service.observer = observer
		}
	}
}

// WithClock overrides the wall clock used for session expiry.
func WithClock(now func() time.Time) Option {
	return func(service *Service) {
		if now != nil {
			service.now = now
		}
	}
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	hasher PasswordHasher,
	codec TokenCodec,
	opts ...Option,
) *Service {
	service := &Service{
		userRepository:    userRepo,
		sessionRepository: sessionRepo,
		hasher:            hasher,
		codec:             codec,
		observer:          noopObserver{},
		now:               time.Now,
		sessionTTL:        SessionTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// # Authentication Flow

/*
Login verifies credentials and establishes a new session.

Description: Unknown usernames and wrong passwords produce the same error
and cost one bcrypt comparison each, so neither the response nor its timing
tells them apart. On success a token is minted and a session row persisted
with expiry now + 7 days.

Parameters:
  - ctx: context.Context
  - input: Credentials

Returns:
  - *LoginResult: Token, expiry and the account
  - error: Validation, ErrInvalidCredentials, RateLimited or Internal
*/
func (service *Service) Login(ctx context.Context, input Credentials) (*LoginResult, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	logger := ctxutil.GetLogger(ctx)

	// Presence only: a blank-looking username is still checked against the store.
	validator := &validate.Validator{}
	validator.
		Custom(FieldUsername, input.Username == "", "This field is required").
		Custom(FieldPassword, input.Password == "", "This field is required")
	if err := validator.ErrMessage(msgCredentialsRequired); err != nil {
		service.observer.LoginAttempt(OutcomeInvalidRequest)
		return nil, err
	}

	username := norm.NFC.String(input.Username)
	throttleKey := loginThrottleKey(username, input.ClientIP)

	if err := service.checkThrottle(ctx, throttleKey); err != nil {
		service.observer.LoginAttempt(OutcomeThrottled)
		logger.WarnContext(ctx, "login_throttled",
			slog.String(FieldUsername, username),
			slog.String("client_ip", input.ClientIP),
		)
		return nil, err
	}

	user, err := service.userRepository.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, dberr.ErrNotFound):
		service.hasher.Burn(input.Password)
		return nil, service.rejectLogin(ctx, span, username, throttleKey, "unknown_user")
	case err != nil:
		return nil, service.failLogin(span, err)
	}

	if !service.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, service.rejectLogin(ctx, span, username, throttleKey, "wrong_password")
	}

	token, err := service.codec.Issue(user.ID)
	if err != nil {
		return nil, service.failLogin(span, err)
	}

	session := &Session{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: service.now().Add(service.sessionTTL),
	}
	if err := service.sessionRepository.Create(ctx, session); err != nil {
		return nil, service.failLogin(span, err)
	}

	service.resetThrottle(ctx, throttleKey)
	service.observer.LoginAttempt(OutcomeSuccess)
	span.SetAttributes(attribute.Int64("user.id", user.ID))
	logger.InfoContext(ctx, "login_succeeded",
		slog.Int64("user_id", user.ID),
		slog.Time("expires_at", session.ExpiresAt),
	)

	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

// rejectLogin records a credential failure and returns the uniform error.
func (service *Service) rejectLogin(ctx context.Context, span trace.Span, username, throttleKey, reason string) error {
	service.recordFailure(ctx, throttleKey)
	service.observer.LoginAttempt(OutcomeInvalidCredentials)
	span.SetAttributes(attribute.String("auth.outcome", OutcomeInvalidCredentials))

	// The reason stays in server logs only.
	ctxutil.GetLogger(ctx).WarnContext(ctx, "login_failed",
		slog.String(FieldUsername, username),
		slog.String("reason", reason),
	)
	return ErrInvalidCredentials
}

func (service *Service) failLogin(span trace.Span, err error) error {
	service.observer.LoginAttempt(OutcomeError)
	span.RecordError(err)
	span.SetStatus(codes.Error, "login failed")
	return apperr.Internal(err)
}

/*
ResolveSession turns a bearer token into the identity of its owner.

# Flow
 1. An empty token is anonymous.
 2. The codec checks signature, type and expiry.
 3. The session row must exist with expires_at after now.
 4. The owning user must still exist.

Every failure returns [ErrUnauthenticated]; store outages return Internal.
*/
func (service *Service) ResolveSession(ctx context.Context, token string) (*sec.Identity, error) {
	ctx, span := tracer.Start(ctx, "auth.ResolveSession")
	defer span.End()

	if token == "" {
		service.observer.SessionCheck(OutcomeAnonymous)
		return nil, ErrUnauthenticated
	}

	claims, err := service.codec.Verify(token)
	if err != nil {
		return nil, service.rejectSession(span, "invalid_token")
	}

	session, err := service.sessionRepository.FindActiveByToken(ctx, token, service.now())
	switch {
	case errors.Is(err, dberr.ErrNotFound):
		return nil, service.rejectSession(span, "no_active_session")
	case err != nil:
		return nil, service.failSession(span, err)
	}

	if session.UserID != claims.UserID {
		return nil, service.rejectSession(span, "owner_mismatch")
	}

	user, err := service.userRepository.FindByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, dberr.ErrNotFound):
		return nil, service.rejectSession(span, "user_missing")
	case err != nil:
		return nil, service.failSession(span, err)
	}

	service.observer.SessionCheck(OutcomeAuthenticated)
	span.SetAttributes(attribute.Int64("user.id", user.ID))

	return user.Identity(), nil
}

func (service *Service) rejectSession(span trace.Span, reason string) error {
	service.observer.SessionCheck(OutcomeRejected)
	span.SetAttributes(attribute.String("auth.reject_reason", reason))
	return ErrUnauthenticated
}

func (service *Service) failSession(span trace.Span, err error) error {
	service.observer.SessionCheck(OutcomeError)
	span.RecordError(err)
	span.SetStatus(codes.Error, "session lookup failed")
	return apperr.Internal(err)
}

/*
Logout deletes the session bound to token.

Description: Idempotent. An empty, unknown or already revoked token is a
successful no-op.

Returns:
  - error: Internal on store failure only
*/
func (service *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "auth.Logout")
	defer span.End()

	if err := service.sessionRepository.DeleteByToken(ctx, token); err != nil {
		span.RecordError(err)
		return apperr.Internal(err)
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "logout_succeeded")
	return nil
}

// LogoutAll deletes every session of the given identity and returns how many.
func (service *Service) LogoutAll(ctx context.Context, identity *sec.Identity) (int64, error) {
	if identity == nil {
		return 0, ErrUnauthenticated
	}

	ctx, span := tracer.Start(ctx, "auth.LogoutAll")
	defer span.End()

	deleted, err := service.sessionRepository.DeleteAllForUser(ctx, identity.UserID)
	if err != nil {
		span.RecordError(err)
		return 0, apperr.Internal(err)
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "logout_all_succeeded",
		slog.Int64("user_id", identity.UserID),
		slog.Int64(FieldDeleted, deleted),
	)
	return deleted, nil
}

// # Registration Flow

/*
Register creates a new admin account on behalf of an authenticated admin.

Parameters:
  - ctx: context.Context
  - requester: *sec.Identity (nil when the caller has no valid session)
  - input: Credentials

Returns:
  - *User: Created entity
  - error: ErrRegistrationUnauthorized, Validation, ErrUsernameTaken or Internal
*/
func (service *Service) Register(ctx context.Context, requester *sec.Identity, input Credentials) (*User, error) {
	if requester == nil {
		return nil, ErrRegistrationUnauthorized
	}

	user, err := service.CreateUser(ctx, input)
	if err != nil {
		return nil, err
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "user_registered",
		slog.Int64("user_id", user.ID),
		slog.Int64("created_by", requester.UserID),
	)
	return user, nil
}

/*
CreateUser validates, hashes and persists a new account without a requester check.

Description: Used by [Service.Register] after authorization and by the
operator CLI to bootstrap the first admin.
*/
func (service *Service) CreateUser(ctx context.Context, input Credentials) (*User, error) {
	ctx, span := tracer.Start(ctx, "auth.CreateUser")
	defer span.End()

	required := &validate.Validator{}
	required.
		Required(FieldUsername, input.Username).
		Custom(FieldPassword, input.Password == "", "This field is required")
	if err := required.ErrMessage(msgCredentialsRequired); err != nil {
		return nil, err
	}

	password := &validate.Validator{}
	if err := password.MinLen(FieldPassword, input.Password, MinPasswordLength).ErrMessage(msgPasswordTooShort); err != nil {
		return nil, err
	}
	if err := password.MaxBytes(FieldPassword, input.Password, sec.MaxPasswordBytes).ErrMessage(msgPasswordTooLong); err != nil {
		return nil, err
	}

	username := norm.NFC.String(input.Username)
	name := &validate.Validator{}
	name.
		MinLen(FieldUsername, username, MinUsernameLength).
		MaxLen(FieldUsername, username, MaxUsernameLength)
	if err := name.ErrMessage(msgUsernameLength); err != nil {
		return nil, err
	}

	_, err := service.userRepository.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, ErrUsernameTaken
	case !errors.Is(err, dberr.ErrNotFound):
		span.RecordError(err)
		return nil, apperr.Internal(err)
	}

	hash, err := service.hasher.Hash(input.Password)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Internal(err)
	}

	user := &User{Username: username, PasswordHash: hash}
	if err := service.userRepository.Create(ctx, user); err != nil {
		// A concurrent insert can still win the unique constraint.
		if errors.Is(err, ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		span.RecordError(err)
		return nil, apperr.Internal(err)
	}

	return user, nil
}

// # Maintenance

// SweepExpiredSessions deletes session rows whose expiry has passed.
//
// Lookups already ignore such rows; sweeping only reclaims storage.
func (service *Service) SweepExpiredSessions(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "auth.SweepExpiredSessions")
	defer span.End()

	deleted, err := service.sessionRepository.DeleteExpired(ctx, service.now())
	if err != nil {
		span.RecordError(err)
		return 0, apperr.Internal(err)
	}

	service.observer.SessionsSwept(deleted)
	span.SetAttributes(attribute.Int64("sessions.deleted", deleted))
	return deleted, nil
}

// # Login Throttling

// loginThrottleKey scopes failure counting to one username from one address,
// so failures from elsewhere cannot lock the account owner out.
func loginThrottleKey(username, clientIP string) string {
	if clientIP == "" {
		return username
	}
	return username + "|" + clientIP
}

// checkThrottle fails open: a broken throttle store never blocks logins.
func (service *Service) checkThrottle(ctx context.Context, key string) error {
	if service.throttle == nil {
		return nil
	}

	failures, remaining, err := service.throttle.Failures(ctx, key)
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "login_throttle_unavailable", slog.Any("error", err))
		return nil
	}

	if failures < service.maxLoginFailures {
		return nil
	}

	if remaining <= 0 {
		remaining = service.loginFailureWindow
	}
	return apperr.RateLimited(remaining)
}

func (service *Service) recordFailure(ctx context.Context, key string) {
	if service.throttle == nil {
		return
	}
	if _, err := service.throttle.RecordFailure(ctx, key, service.loginFailureWindow); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "login_throttle_unavailable", slog.Any("error", err))
	}
}

func (service *Service) resetThrottle(ctx context.Context, key string) {
	if service.throttle == nil {
		return
	}
	if err := service.throttle.Reset(ctx, key); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "login_throttle_unavailable", slog.Any("error", err))
	}
}
