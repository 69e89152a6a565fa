package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worksuite/identity-api/internal/data"
	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
	"github.com/worksuite/identity-api/internal/domain/model"
	mocksauth "github.com/worksuite/identity-api/internal/mocks/auth"
	"github.com/worksuite/identity-api/internal/service"
)

// authEnv bundles an AuthService wired to in-memory doubles for handler tests.
type authEnv struct {
	users    *mocksauth.MemoryUserRepository
	sessions *mocksauth.MemorySessionStore
	cache    *mocksauth.MemoryRoleCache
	svc      *service.AuthService
	guard    GuardConfig
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	env := &authEnv{
		users:    mocksauth.NewMemoryUserRepository(data.ErrUserNotFound),
		sessions: mocksauth.NewMemorySessionStore(),
		cache:    mocksauth.NewMemoryRoleCache(),
	}
	env.svc = service.NewAuthService(service.AuthServiceOptions{
		Users:     env.users,
		Sessions:  env.sessions,
		RoleCache: env.cache,
		Hasher:    mocksauth.PlainPasswordHasher{},
	})
	env.guard = GuardConfig{Auth: env.svc, Routes: domainauth.DefaultRouteTable()}
	return env
}

// signIn creates a user with the given role and returns a live session cookie.
func (env *authEnv) signIn(t *testing.T, email string, role domainauth.Role) *http.Cookie {
	t.Helper()
	ctx := context.Background()
	hash, err := mocksauth.PlainPasswordHasher{}.Hash("pass12345")
	require.NoError(t, err)
	_, err = env.users.Create(ctx, &model.User{
		Email: email, Role: role, Active: true, PasswordHash: hash,
	})
	require.NoError(t, err)
	session, err := env.svc.SignIn(ctx, model.LoginRequest{Email: email, Password: "pass12345"})
	require.NoError(t, err)
	return &http.Cookie{Name: sessionCookieName, Value: session.ID}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func browserRequest(target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.Header.Set("Accept", "text/html")
	return r
}

func apiRequest(target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.Header.Set("Accept", "application/json")
	return r
}

func TestRequireAuth_UnauthenticatedAPI(t *testing.T) {
	env := newAuthEnv(t)
	handler := RequireAuth(env.guard)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, apiRequest("/api/protected"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "authentication_required")
}

func TestRequireAuth_UnauthenticatedBrowserRedirectsToLogin(t *testing.T) {
	env := newAuthEnv(t)
	handler := RequireAuth(env.guard)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, browserRequest("/manager/dashboard?tab=team"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?redirect_uri=%2Fmanager%2Fdashboard%3Ftab%3Dteam", rec.Header().Get("Location"))
}

func TestRequireAuth_ValidSessionPasses(t *testing.T) {
	env := newAuthEnv(t)
	cookie := env.signIn(t, "user@example.com", domainauth.RoleClient)

	var gotSession *domainauth.Session
	handler := RequireAuth(env.guard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = GetSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := apiRequest("/api/protected")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotSession)
	assert.Equal(t, "user@example.com", gotSession.Principal.Email)
}

func TestRequireRoles_AllowedRolePasses(t *testing.T) {
	env := newAuthEnv(t)
	cookie := env.signIn(t, "mgr@example.com", domainauth.RoleManager)

	handler := RequireRoles(env.guard, domainauth.NewRoleSet(domainauth.RoleManager))(okHandler())

	req := browserRequest("/manager/dashboard")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoles_WrongRoleBrowserRedirectsToOwnDashboard(t *testing.T) {
	env := newAuthEnv(t)
	cookie := env.signIn(t, "mgr@example.com", domainauth.RoleManager)

	adminOnly := RequireRoles(env.guard, domainauth.NewRoleSet(domainauth.RoleAdmin, domainauth.RoleSuperAdmin))
	handler := adminOnly(okHandler())

	req := browserRequest("/admin/dashboard")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/manager/dashboard", rec.Header().Get("Location"))
}

func TestRequireRoles_WrongRoleAPIReturns403(t *testing.T) {
	env := newAuthEnv(t)
	cookie := env.signIn(t, "client@example.com", domainauth.RoleClient)

	handler := RequireRoles(env.guard, domainauth.NewRoleSet(domainauth.RoleAdmin))(okHandler())

	req := apiRequest("/api/admin/thing")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient_permissions")
}

func TestRequireRoles_UnknownRoleFailsClosed(t *testing.T) {
	env := newAuthEnv(t)
	// Session carries a role string the suite does not assign (e.g. legacy data).
	cookie := env.signIn(t, "legacy@example.com", domainauth.Role("owner"))

	handler := RequireRoles(env.guard, domainauth.NewRoleSet(domainauth.KnownRoles...))(okHandler())

	req := browserRequest("/dashboard")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// unknown role is not a member of any set; browser lands on the default route
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestRequireRoles_DeactivatedPrincipalTreatedAsUnauthenticated(t *testing.T) {
	env := newAuthEnv(t)
	cookie := env.signIn(t, "gone@example.com", domainauth.RoleEmployee)

	// Deactivate after sign-in and drop the cached role so resolution
	// falls through to the user store.
	ctx := context.Background()
	u, err := env.users.GetByEmail(ctx, "gone@example.com")
	require.NoError(t, err)
	require.NoError(t, env.users.SetActive(ctx, u.ID, false))
	require.NoError(t, env.cache.Clear(ctx, u.ID))

	handler := RequireRoles(env.guard, domainauth.NewRoleSet(domainauth.RoleEmployee))(okHandler())

	req := browserRequest("/employee/dashboard")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/auth/login")
}

func TestRequireRoles_RoleChangeTakesEffectOnNextRequest(t *testing.T) {
	env := newAuthEnv(t)
	cookie := env.signIn(t, "promoted@example.com", domainauth.RoleClient)

	ctx := context.Background()
	u, err := env.users.GetByEmail(ctx, "promoted@example.com")
	require.NoError(t, err)
	require.NoError(t, env.users.UpdateRole(ctx, u.ID, domainauth.RoleManager))
	require.NoError(t, env.cache.Clear(ctx, u.ID))

	handler := RequireRoles(env.guard, domainauth.NewRoleSet(domainauth.RoleManager))(okHandler())

	req := browserRequest("/manager/dashboard")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

// ssoSession stores a session for a principal with no user row, the way a
// completed SSO login does, and returns its cookie.
func (env *authEnv) ssoSession(t *testing.T, principal domainauth.Principal) *http.Cookie {
	t.Helper()
	session := domainauth.Session{
		ID:        "sso-session-1",
		Principal: principal,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, env.sessions.Save(context.Background(), session))
	return &http.Cookie{Name: sessionCookieName, Value: session.ID}
}

func TestRequireRoles_SSOSessionSurvivesRoleCacheExpiry(t *testing.T) {
	env := newAuthEnv(t)
	cookie := env.ssoSession(t, domainauth.Principal{
		ID:     "sso-1",
		Email:  "sso@example.com",
		Role:   domainauth.RoleEmployee,
		Active: true,
	})

	handler := RequireRoles(env.guard, domainauth.NewRoleSet(domainauth.RoleEmployee))(okHandler())

	req := browserRequest("/employee/dashboard")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The cached role expiring must not lock the still-valid session out:
	// the session principal's role is authoritative on a cache miss.
	require.NoError(t, env.cache.Clear(context.Background(), "sso-1"))

	req = browserRequest("/employee/dashboard")
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalAuth(t *testing.T) {
	env := newAuthEnv(t)
	cookie := env.signIn(t, "user@example.com", domainauth.RoleClient)

	var sawSession bool
	handler := OptionalAuth(env.guard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawSession = GetUserSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// without cookie: request continues, no session
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, browserRequest("/"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, sawSession)

	// with cookie: session attached
	req := browserRequest("/")
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sawSession)
}
