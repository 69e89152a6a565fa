package httpx

import (
	"fmt"
	"html"
	"net/http"

	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
)

// DashboardHandlers serves the role landing pages. The pages themselves are
// deliberately plain; the interesting behavior is the guard in front of them.
type DashboardHandlers struct {
	Routes domainauth.RouteTable
}

// Home handles GET /. Authenticated users are sent to their role's landing
// route; everyone else goes to login.
func (h *DashboardHandlers) Home(w http.ResponseWriter, r *http.Request) {
	session, ok := GetUserSessionFromContext(r.Context())
	if !ok {
		redirectToLogin(w, r)
		return
	}
	http.Redirect(w, r, h.Routes.FallbackFor(session.Principal.Role), http.StatusSeeOther)
}

// Dashboard handles GET /dashboard, the shared landing page for any
// authenticated principal.
func (h *DashboardHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, "Dashboard")
}

// AdminDashboard handles GET /admin/dashboard.
func (h *DashboardHandlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, "Admin Dashboard")
}

// ManagerDashboard handles GET /manager/dashboard.
func (h *DashboardHandlers) ManagerDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, "Manager Dashboard")
}

// ClientDashboard handles GET /client/dashboard.
func (h *DashboardHandlers) ClientDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, "Client Dashboard")
}

// EmployeeDashboard handles GET /employee/dashboard.
func (h *DashboardHandlers) EmployeeDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, "Employee Dashboard")
}

func (h *DashboardHandlers) renderDashboard(w http.ResponseWriter, r *http.Request, title string) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		// Guards always run before these handlers; reaching here without a
		// session means a wiring bug.
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errNoSession,
		})
		return
	}

	if !IsBrowserRequest(r) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"page": title,
			"user": session.Principal,
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, dashboardPage,
		html.EscapeString(title),
		html.EscapeString(title),
		html.EscapeString(session.Principal.FirstName),
		html.EscapeString(session.Principal.Email),
		html.EscapeString(string(session.Principal.Role)),
	)
}

var errNoSession = noSessionError{}

type noSessionError struct{}

func (noSessionError) Error() string { return "no session in request context" }

const dashboardPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>%s</title></head>
<body>
<h1>%s</h1>
<p>Signed in as %s (%s), role %s.</p>
<form method="post" action="/auth/logout"><button type="submit">Sign out</button></form>
</body>
</html>
`
