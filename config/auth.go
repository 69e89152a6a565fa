package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModePassword uses local email/password credentials backed by the
	// user store. This is the default.
	AuthModePassword AuthMode = "password"
	// AuthModeOAuth uses OAuth/OIDC single sign-on in addition to local
	// credentials.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "password", "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: password, oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"identity"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"identity"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	LogoutURL    string `env:"LOGOUT_URL"`

	// GroupsClaimPath is a JMESPath expression selecting the group list
	// from the raw token claims. Providers disagree on where groups live
	// ("groups", "realm_access.roles", ...).
	GroupsClaimPath string `env:"GROUPS_CLAIM_PATH" envDefault:"groups"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID    string   `env:"USER_ID"    envDefault:"dev-user"`
	Email     string   `env:"EMAIL"      envDefault:"dev@example.com"`
	FirstName string   `env:"FIRST_NAME" envDefault:"Dev"`
	LastName  string   `env:"LAST_NAME"  envDefault:"User"`
	Groups    []string `env:"GROUPS"     envDefault:"identity-admins" envSeparator:";"`
}

// GroupMappingConfig names the IdP group for each role. A user in several
// groups lands on the strongest role; users in none of them get no role and
// fail every guard.
type GroupMappingConfig struct {
	SuperAdminGroup string `env:"SUPER_ADMIN_GROUP"`
	AdminGroup      string `env:"ADMIN_GROUP"      envDefault:"identity-admins"`
	ManagerGroup    string `env:"MANAGER_GROUP"    envDefault:"identity-managers"`
	EmployeeGroup   string `env:"EMPLOYEE_GROUP"   envDefault:"identity-employees"`
	ClientGroup     string `env:"CLIENT_GROUP"     envDefault:"identity-clients"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"password"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// Groups maps IdP groups to roles (used when Mode=oauth or mock).
	Groups GroupMappingConfig `envPrefix:"AUTH_"`

	// SessionTTL is the server-side session lifetime.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// RoleCacheTTL bounds how stale a cached role may get before the next
	// request re-reads the user store.
	RoleCacheTTL time.Duration `env:"ROLE_CACHE_TTL" envDefault:"5m"`

	// BcryptCost is the bcrypt work factor for new password hashes.
	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`
}

// Sanitize applies guardrails to authentication configuration values.
func (a *AuthConfig) Sanitize() {
	if a.SessionTTL <= 0 {
		a.SessionTTL = 24 * time.Hour
	}
	if a.RoleCacheTTL <= 0 {
		a.RoleCacheTTL = 5 * time.Minute
	}
	// Clamp to the range bcrypt accepts (4-31).
	if a.BcryptCost < 4 {
		a.BcryptCost = 4
	}
	if a.BcryptCost > 31 {
		a.BcryptCost = 31
	}
}

// SSOEnabled reports whether an external identity provider takes part in
// sign-in for the configured mode.
func (a *AuthConfig) SSOEnabled() bool {
	return a.Mode == AuthModeOAuth || a.Mode == AuthModeMock
}
