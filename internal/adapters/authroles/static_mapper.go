package authroles

import (
	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
)

// StaticRoleMapper maps IdP groups to suite roles by simple string
// membership. Precedence runs highest privilege first so a user in
// several groups lands on the strongest role.
type StaticRoleMapper struct {
	SuperAdminGroup string
	AdminGroup      string
	ManagerGroup    string
	EmployeeGroup   string
	ClientGroup     string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	rules := []struct {
		group string
		role  domainauth.Role
	}{
		{m.SuperAdminGroup, domainauth.RoleSuperAdmin},
		{m.AdminGroup, domainauth.RoleAdmin},
		{m.ManagerGroup, domainauth.RoleManager},
		{m.EmployeeGroup, domainauth.RoleEmployee},
		{m.ClientGroup, domainauth.RoleClient},
	}
	for _, rule := range rules {
		if rule.group == "" {
			continue
		}
		for _, g := range groups {
			if g == rule.group {
				return rule.role
			}
		}
	}
	// No match: empty role. Guards fail closed on it.
	return ""
}
