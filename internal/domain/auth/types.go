package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleManager    Role = "manager"
	RoleClient     Role = "client"
	RoleEmployee   Role = "employee"
)

// KnownRoles lists every role the suite assigns. Storage may carry other
// strings (e.g. after a data migration); those fail every authorization check.
var KnownRoles = []Role{RoleAdmin, RoleSuperAdmin, RoleManager, RoleClient, RoleEmployee}

// IsKnown reports whether r is one of the roles the suite assigns.
func (r Role) IsKnown() bool {
	for _, k := range KnownRoles {
		if r == k {
			return true
		}
	}
	return false
}

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsKnown() {
		return "", errors.New("unknown role: " + s)
	}
	return r, nil
}

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID    string // stable user identifier (e.g., samAccountName or sub)
	FirstName string
	LastName  string
	Email     string
	Groups    []string
	ExpiresAt time.Time // absolute expiry from IdP token
}

// Principal is the authenticated user a session carries.
type Principal struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
	Active    bool   `json:"active"`
}

// Validate checks the fields every authenticated session must carry.
// A stored session whose principal fails validation is treated as malformed.
func (p Principal) Validate() error {
	if p.ID == "" {
		return errors.New("principal missing id")
	}
	if p.Email == "" {
		return errors.New("principal missing email")
	}
	return nil
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID        string    `json:"id"`
	Principal Principal `json:"principal"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the session is well-formed and unexpired at now.
func (s Session) Valid(now time.Time) bool {
	if s.ID == "" || s.Principal.Validate() != nil {
		return false
	}
	return s.ExpiresAt.After(now)
}
