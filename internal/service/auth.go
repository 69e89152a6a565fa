package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/worksuite/identity-api/internal/data"
	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
	"github.com/worksuite/identity-api/internal/domain/model"
	apperrors "github.com/worksuite/identity-api/internal/errors"
	"github.com/worksuite/identity-api/internal/observability/metrics"
	"github.com/worksuite/identity-api/internal/observability/statsd"
	"github.com/worksuite/identity-api/internal/ports"
)

// DefaultSessionTTL bounds password-login sessions when no duration is configured.
const DefaultSessionTTL = 24 * time.Hour

// Credential failures, unknown accounts, and disabled accounts all surface
// the same message so responses do not reveal which accounts exist.
const invalidCredentialsMsg = "invalid email or password"

// AuthServiceOptions groups dependencies for AuthService.
// Provider and Roles are only needed for SSO flows and may be nil when the
// service runs in password-only mode.
type AuthServiceOptions struct {
	Users        ports.UserRepository
	Sessions     ports.SessionStore
	RoleCache    ports.RoleCache
	Hasher       ports.PasswordHasher
	Provider     ports.AuthProvider
	Roles        ports.RoleMapper
	SessionTTL   time.Duration
	Logger       *slog.Logger
	TimeProvider data.TimeProvider
	Metrics      statsd.Sink
}

// AuthService orchestrates sign-in, sign-up, session restore, sign-out, and
// role resolution across the user store, session store, and role cache.
type AuthService struct {
	users        ports.UserRepository
	sessions     ports.SessionStore
	roleCache    ports.RoleCache
	hasher       ports.PasswordHasher
	provider     ports.AuthProvider
	roles        ports.RoleMapper
	sessionTTL   time.Duration
	logger       *slog.Logger
	timeProvider data.TimeProvider
	metrics      statsd.Sink
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	return &AuthService{
		users:        opts.Users,
		sessions:     opts.Sessions,
		roleCache:    opts.RoleCache,
		hasher:       opts.Hasher,
		provider:     opts.Provider,
		roles:        opts.Roles,
		sessionTTL:   ttl,
		logger:       logger,
		timeProvider: tp,
		metrics:      opts.Metrics,
	}
}

// SignIn authenticates email/password credentials and establishes a session.
// Every failure mode that depends on the account (missing, wrong password,
// deactivated) returns the same unauthorized error.
func (s *AuthService) SignIn(ctx context.Context, req model.LoginRequest) (_ *domainauth.Session, err error) {
	defer s.emitMetric(metrics.FlowPassword, s.timeProvider.Now(), &err)

	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return nil, apperrors.Unauthorized(invalidCredentialsMsg)
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if compareErr := s.hasher.Compare(user.PasswordHash, req.Password); compareErr != nil {
		return nil, apperrors.Unauthorized(invalidCredentialsMsg)
	}
	if !user.Active {
		return nil, apperrors.Unauthorized(invalidCredentialsMsg)
	}

	now := s.timeProvider.Now()
	session := domainauth.Session{
		ID:        generateSessionID(),
		Principal: user.Principal(),
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}
	s.cacheRole(ctx, session.Principal)

	return &session, nil
}

// SignUp registers a new user account. It does not establish a session; the
// caller signs in separately. Duplicate emails surface as Conflict.
func (s *AuthService) SignUp(ctx context.Context, req model.RegisterUserRequest) (_ *model.User, err error) {
	defer s.emitMetric(metrics.FlowRegister, s.timeProvider.Now(), &err)

	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	role := domainauth.Role(req.Role)
	if role == "" {
		role = domainauth.RoleClient
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, &model.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		Active:       true,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetSession restores the session for the given ID. Absent, expired, and
// malformed records all come back as an unauthorized error.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (_ *domainauth.Session, err error) {
	defer s.emitMetric(metrics.FlowRestore, s.timeProvider.Now(), &err)

	if sessionID == "" {
		return nil, apperrors.Unauthorized("no active session")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Unauthorized("no active session")
	}
	if !session.Valid(s.timeProvider.Now()) {
		// The store usually expires records itself; this covers clock skew
		// between store TTL and the session's own expiry.
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			s.logger.WarnContext(ctx, "failed to delete expired session", "error", deleteErr)
		}
		return nil, apperrors.Unauthorized("no active session")
	}

	return &session, nil
}

// SignOut removes the session and any cached role for its principal.
// It is best-effort and always succeeds: a missing or already-removed
// session is not an error.
func (s *AuthService) SignOut(ctx context.Context, sessionID string) {
	defer s.emitMetric(metrics.FlowSignOut, s.timeProvider.Now(), nil)

	if sessionID == "" {
		return
	}

	// Fetch first so we know which principal's cached role to clear.
	session, err := s.sessions.Get(ctx, sessionID)
	if err == nil && s.roleCache != nil {
		if clearErr := s.roleCache.Clear(ctx, session.Principal.ID); clearErr != nil {
			s.logger.WarnContext(ctx, "failed to clear cached role", "error", clearErr)
		}
	}

	if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
		s.logger.WarnContext(ctx, "failed to delete session", "error", deleteErr)
	}
}

// ResolveRole returns the effective role for a session's principal. The role
// cache answers first. On a miss the session principal's role is
// authoritative; the user store is consulted best-effort so role changes and
// deactivations take effect for persisted users, while principals without a
// user row (SSO identities) keep the role their session carries. The
// resolved role refills the cache.
func (s *AuthService) ResolveRole(ctx context.Context, principal domainauth.Principal) (_ domainauth.Role, err error) {
	defer s.emitMetric(metrics.FlowResolve, s.timeProvider.Now(), &err)

	if principal.ID == "" {
		return "", apperrors.Unauthorized("no principal")
	}

	if s.roleCache != nil {
		if role, ok := s.roleCache.Get(ctx, principal.ID); ok {
			return role, nil
		}
	}

	role := principal.Role
	if s.users != nil {
		user, lookupErr := s.users.GetByID(ctx, principal.ID)
		switch {
		case lookupErr == nil && !user.Active:
			return "", apperrors.Unauthorized("account is deactivated")
		case lookupErr == nil:
			role = user.Role
		case !errors.Is(lookupErr, data.ErrUserNotFound):
			// The session already authenticated this principal; a store
			// outage must not lock it out.
			s.logger.WarnContext(ctx, "role lookup failed, using session role",
				"principal_id", principal.ID, "error", lookupErr)
		}
	}

	principal.Role = role
	s.cacheRole(ctx, principal)
	return role, nil
}

// BeginLoginResult contains the result of beginning an SSO login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an SSO flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if s.provider == nil {
		return nil, apperrors.Validation("SSO login is not enabled")
	}
	if redirectURL == "" {
		return nil, apperrors.Validation("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{
		AuthURL: authURL,
		State:   state,
		Nonce:   nonce,
	}, nil
}

// CompleteLoginInput groups parameters for completing an SSO login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLogin completes an SSO flow by exchanging the code for an identity,
// mapping provider groups to a role, and persisting a session.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (_ *domainauth.Session, err error) {
	defer s.emitMetric(metrics.FlowSSO, s.timeProvider.Now(), &err)

	if s.provider == nil {
		return nil, apperrors.Validation("SSO login is not enabled")
	}
	if input.Code == "" {
		return nil, apperrors.Validation("authorization code is required")
	}
	if input.State == "" {
		return nil, apperrors.Validation("state parameter is required")
	}
	if input.Nonce == "" {
		return nil, apperrors.Validation("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "exchange authorization code")
	}

	var role domainauth.Role
	if s.roles != nil {
		role = s.roles.Map(identity.Groups)
	}

	expiresAt := identity.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = s.timeProvider.Now().Add(s.sessionTTL)
	}
	session := domainauth.Session{
		ID: generateSessionID(),
		Principal: domainauth.Principal{
			ID:        identity.UserID,
			Email:     identity.Email,
			FirstName: identity.FirstName,
			LastName:  identity.LastName,
			Role:      role,
			Active:    true,
		},
		ExpiresAt: expiresAt,
	}
	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}
	s.cacheRole(ctx, session.Principal)

	return &session, nil
}

// emitMetric reports one auth flow outcome to the metrics sink, if any.
// Deferred at the top of each flow; err points at the named return value.
func (s *AuthService) emitMetric(flow string, start time.Time, err *error) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	var cause error
	if err != nil && *err != nil {
		cause = *err
		if apperrors.IsUnauthorized(cause) || apperrors.IsForbidden(cause) || apperrors.IsValidation(cause) {
			result = metrics.ResultDenied
		} else {
			result = metrics.ResultError
		}
	}

	metrics.EmitAuthEvent(s.metrics, metrics.AuthMetric{
		Flow:     flow,
		Result:   result,
		Duration: s.timeProvider.Now().Sub(start),
		Err:      cause,
	})
}

// cacheRole stores the principal's role in the role cache, best-effort.
func (s *AuthService) cacheRole(ctx context.Context, p domainauth.Principal) {
	if s.roleCache == nil || p.Role == "" {
		return
	}
	if err := s.roleCache.Put(ctx, p.ID, p.Role); err != nil {
		s.logger.WarnContext(ctx, "failed to cache role", "principal_id", p.ID, "error", err)
	}
}

// generateSessionID creates a cryptographically secure random session ID.
func generateSessionID() string {
	return uuid.New().String()
}
