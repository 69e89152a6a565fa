package auth

import (
	"sort"
	"strings"
)

// RoleSet is a normalized, order-independent set of roles used to declare
// which roles may enter a route. Build one with NewRoleSet; the zero value
// is the empty set, which admits any authenticated principal.
type RoleSet struct {
	roles map[Role]struct{}
}

// NewRoleSet builds a RoleSet from roles in any order. Duplicates collapse
// and empty strings are dropped, so two declarations of the same roles are
// always equal regardless of ordering.
func NewRoleSet(roles ...Role) RoleSet {
	if len(roles) == 0 {
		return RoleSet{}
	}
	set := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		set[r] = struct{}{}
	}
	if len(set) == 0 {
		return RoleSet{}
	}
	return RoleSet{roles: set}
}

// Empty reports whether the set declares no role requirement.
func (s RoleSet) Empty() bool { return len(s.roles) == 0 }

// Contains reports whether role is a member. The empty role is never a
// member of any set, so principals without a role always fail closed.
func (s RoleSet) Contains(role Role) bool {
	if role == "" {
		return false
	}
	_, ok := s.roles[role]
	return ok
}

// Equal reports value equality between two sets.
func (s RoleSet) Equal(other RoleSet) bool {
	if len(s.roles) != len(other.roles) {
		return false
	}
	for r := range s.roles {
		if _, ok := other.roles[r]; !ok {
			return false
		}
	}
	return true
}

// Roles returns the members sorted for stable logging.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s.roles))
	for r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s RoleSet) String() string {
	parts := make([]string, 0, len(s.roles))
	for _, r := range s.Roles() {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ",")
}

// RouteTable maps each role to the landing route a principal is sent to
// when a guard turns them away. The mapping is total: roles without an
// explicit entry fall back to DefaultRoute.
type RouteTable struct {
	// Routes holds per-role landing paths.
	Routes map[Role]string

	// DefaultRoute is used for empty, unknown, or unmapped roles.
	DefaultRoute string
}

// DefaultRouteTable returns the suite's standard role landing pages.
func DefaultRouteTable() RouteTable {
	return RouteTable{
		Routes: map[Role]string{
			RoleAdmin:      "/admin/dashboard",
			RoleSuperAdmin: "/admin/dashboard",
			RoleManager:    "/manager/dashboard",
			RoleClient:     "/client/dashboard",
			RoleEmployee:   "/employee/dashboard",
		},
		DefaultRoute: "/dashboard",
	}
}

// FallbackFor returns the landing route for role. Never empty: unmapped
// roles get DefaultRoute, and an unset DefaultRoute degrades to "/".
func (t RouteTable) FallbackFor(role Role) string {
	if path, ok := t.Routes[role]; ok && path != "" {
		return path
	}
	if t.DefaultRoute != "" {
		return t.DefaultRoute
	}
	return "/"
}
