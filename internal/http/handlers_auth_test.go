package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
)

func newAuthHandlers(env *authEnv) *AuthHandlers {
	return &AuthHandlers{Svc: env.svc, Routes: domainauth.DefaultRouteTable()}
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

func TestAuthHandlers_SignIn_Success(t *testing.T) {
	env := newAuthEnv(t)
	env.signIn(t, "mgr@example.com", domainauth.RoleManager) // seeds the account
	h := newAuthHandlers(env)

	body := `{"email":"mgr@example.com","password":"pass12345"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.SignIn(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookieFrom(t, rec)
	require.NotNil(t, cookie, "session cookie must be set")
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Positive(t, cookie.MaxAge)

	var resp struct {
		User       domainauth.Principal `json:"user"`
		RedirectTo string               `json:"redirect_to"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "mgr@example.com", resp.User.Email)
	assert.Equal(t, "/manager/dashboard", resp.RedirectTo)
}

func TestAuthHandlers_SignIn_InvalidCredentials(t *testing.T) {
	env := newAuthEnv(t)
	env.signIn(t, "user@example.com", domainauth.RoleClient)
	h := newAuthHandlers(env)

	cases := []string{
		`{"email":"user@example.com","password":"wrong"}`,
		`{"email":"missing@example.com","password":"pass12345"}`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.SignIn(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid email or password")
		assert.Nil(t, sessionCookieFrom(t, rec))
	}
}

func TestAuthHandlers_SignIn_MalformedJSON(t *testing.T) {
	env := newAuthEnv(t)
	h := newAuthHandlers(env)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.SignIn(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_json")
}

func TestAuthHandlers_Register(t *testing.T) {
	env := newAuthEnv(t)
	h := newAuthHandlers(env)

	body := `{"email":"new@example.com","password":"pass12345","first_name":"New","last_name":"User"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	// registration never signs the user in
	assert.Nil(t, sessionCookieFrom(t, rec))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "new@example.com", resp["email"])
	assert.Equal(t, string(domainauth.RoleClient), resp["role"])
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

func TestAuthHandlers_Register_Validation(t *testing.T) {
	env := newAuthEnv(t)
	h := newAuthHandlers(env)

	body := `{"email":"bad","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlers_Session(t *testing.T) {
	env := newAuthEnv(t)
	cookie := env.signIn(t, "user@example.com", domainauth.RoleEmployee)
	h := newAuthHandlers(env)

	t.Run("no cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		rec := httptest.NewRecorder()
		h.Session(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"authenticated":false`)
	})

	t.Run("valid session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.Session(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Authenticated bool                 `json:"authenticated"`
			User          domainauth.Principal `json:"user"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Authenticated)
		assert.Equal(t, "user@example.com", resp.User.Email)
		assert.Equal(t, domainauth.RoleEmployee, resp.User.Role)
	})

	t.Run("stale cookie is cleared", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "no-such-session"})
		rec := httptest.NewRecorder()
		h.Session(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"authenticated":false`)
		cleared := sessionCookieFrom(t, rec)
		require.NotNil(t, cleared)
		assert.Negative(t, cleared.MaxAge)
	})
}

func TestAuthHandlers_SignOut(t *testing.T) {
	env := newAuthEnv(t)
	cookie := env.signIn(t, "user@example.com", domainauth.RoleClient)
	h := newAuthHandlers(env)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Accept", "application/json")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.SignOut(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "signed_out")

	cleared := sessionCookieFrom(t, rec)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	// server-side session is gone
	_, err := env.svc.GetSession(req.Context(), cookie.Value)
	require.Error(t, err)
}

func TestAuthHandlers_SignOut_Idempotent(t *testing.T) {
	env := newAuthEnv(t)
	h := newAuthHandlers(env)

	// no cookie at all: still succeeds
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.SignOut(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// unknown session ID: still succeeds
	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "ghost"})
	rec = httptest.NewRecorder()
	h.SignOut(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHandlers_SignOut_BrowserRedirects(t *testing.T) {
	env := newAuthEnv(t)
	cookie := env.signIn(t, "user@example.com", domainauth.RoleClient)
	h := newAuthHandlers(env)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout?redirect_uri=/client/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.SignOut(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/client/dashboard", rec.Header().Get("Location"))
}

func TestSafeRedirectPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/dashboard", "/dashboard"},
		{"/manager/dashboard?tab=a", "/manager/dashboard?tab=a"},
		{"https://evil.example.com/", "/"},
		{"//evil.example.com", "/"},
		{"relative/path", "/"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, safeRedirectPath(tc.in), "input %q", tc.in)
	}
}
