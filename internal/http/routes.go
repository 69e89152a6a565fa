package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth         AuthServiceInterface
	Routes       domainauth.RouteTable
	CookieDomain string
	SSOEnabled   bool         // registers /auth/login and /auth/callback when set
	Logger       *slog.Logger // Logger for HTTP errors (optional)
}

// NewRouter creates and configures a new HTTP router with browser middleware.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Svc:          services.Auth,
		Routes:       services.Routes,
		CookieDomain: services.CookieDomain,
		Logger:       services.Logger,
	}
	dashHandlers := &DashboardHandlers{Routes: services.Routes}
	guard := GuardConfig{Auth: services.Auth, Routes: services.Routes}

	csrf := CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain})
	registerAuthRoutes(mux, authHandlers, services.SSOEnabled, csrf)
	registerDashboardRoutes(mux, dashHandlers, guard, csrf)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return BrowserDetection()(mux)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, ssoEnabled bool, csrf func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /api/auth/login", h.SignIn)
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/logout", h.SignOut)
	mux.HandleFunc("GET /api/auth/session", h.Session)

	// Browser-facing sign-out and, when an IdP is configured, the SSO flow.
	// Browser POSTs go through double-submit CSRF validation; the API routes
	// above authenticate per request and are left alone.
	mux.Handle("POST /auth/logout", csrf(http.HandlerFunc(h.SignOut)))
	if ssoEnabled {
		mux.HandleFunc("GET /auth/login", h.Login)
		mux.HandleFunc("GET /auth/callback", h.Callback)
	}
}

// registerDashboardRoutes wires the role landing pages behind their guards.
// Admin pages admit both admin and super_admin; every other page admits
// exactly its own role. /dashboard admits any authenticated principal: it is
// the fallback destination for roles with no landing page of their own, so a
// role check here would redirect those principals back to /dashboard forever.
func registerDashboardRoutes(mux *http.ServeMux, h *DashboardHandlers, guard GuardConfig, csrf func(http.Handler) http.Handler) {
	anyAuthenticated := RequireAuth(guard)
	adminOnly := RequireRoles(guard, domainauth.NewRoleSet(domainauth.RoleAdmin, domainauth.RoleSuperAdmin))
	managerOnly := RequireRoles(guard, domainauth.NewRoleSet(domainauth.RoleManager))
	clientOnly := RequireRoles(guard, domainauth.NewRoleSet(domainauth.RoleClient))
	employeeOnly := RequireRoles(guard, domainauth.NewRoleSet(domainauth.RoleEmployee))

	// Landing pages pass through the CSRF middleware so the token cookie is
	// issued on page loads; GETs are exempt from validation.
	page := func(mw func(http.Handler) http.Handler, next http.HandlerFunc) http.Handler {
		return csrf(mw(next))
	}

	mux.Handle("GET /{$}", page(OptionalAuth(guard), h.Home))
	mux.Handle("GET /dashboard", page(anyAuthenticated, h.Dashboard))
	mux.Handle("GET /admin/dashboard", page(adminOnly, h.AdminDashboard))
	mux.Handle("GET /manager/dashboard", page(managerOnly, h.ManagerDashboard))
	mux.Handle("GET /client/dashboard", page(clientOnly, h.ClientDashboard))
	mux.Handle("GET /employee/dashboard", page(employeeOnly, h.EmployeeDashboard))
}
