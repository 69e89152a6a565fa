package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/worksuite/identity-api/config"
	"github.com/worksuite/identity-api/internal/adapters/authroles"
	"github.com/worksuite/identity-api/internal/adapters/devauth"
	"github.com/worksuite/identity-api/internal/adapters/oidc"
	"github.com/worksuite/identity-api/internal/adapters/password"
	redisadapter "github.com/worksuite/identity-api/internal/adapters/redis"
	"github.com/worksuite/identity-api/internal/data"
	"github.com/worksuite/identity-api/internal/observability/statsd"
	"github.com/worksuite/identity-api/internal/ports"
	"github.com/worksuite/identity-api/internal/service"
)

// AuthConfig contains dependencies for building the auth service.
type AuthConfig struct {
	Auth        config.AuthConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Metrics     statsd.Sink
	Logger      *slog.Logger
}

// BuildAuthService wires the auth service for the configured auth mode.
// Sessions and the role cache live in Redis; users live in Postgres.
func BuildAuthService(cfg AuthConfig) (*service.AuthService, error) {
	if cfg.DB == nil {
		return nil, errors.New("auth service requires a database connection")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("auth service requires a redis client")
	}

	provider, err := buildAuthProvider(cfg.Auth, cfg.Logger)
	if err != nil {
		return nil, err
	}

	sessions := redisadapter.NewSessionStoreWithPrefix(cfg.RedisClient, "session:")
	roleCache := redisadapter.NewRoleCache(cfg.RedisClient, redisadapter.RoleCacheOptions{
		TTL:    cfg.Auth.RoleCacheTTL,
		Logger: cfg.Logger,
	})

	return service.NewAuthService(service.AuthServiceOptions{
		Users:      data.NewUserRepo(cfg.DB),
		Sessions:   sessions,
		RoleCache:  roleCache,
		Hasher:     password.NewBcryptHasher(cfg.Auth.BcryptCost),
		Provider:   provider,
		Roles:      roleMapperFromConfig(cfg.Auth.Groups),
		SessionTTL: cfg.Auth.SessionTTL,
		Logger:     cfg.Logger,
		Metrics:    cfg.Metrics,
	}), nil
}

// buildAuthProvider returns the SSO provider for the configured mode, or nil
// when the service runs on local credentials only.
//
//nolint:ireturn // the provider implementation depends on runtime config.
func buildAuthProvider(cfg config.AuthConfig, logger *slog.Logger) (ports.AuthProvider, error) {
	switch cfg.Mode {
	case config.AuthModePassword:
		return nil, nil

	case config.AuthModeMock:
		if logger != nil {
			logger.Warn("mock auth enabled; do not use outside development")
		}
		prov, err := devauth.NewProvider(devauth.Config{
			UserID:    cfg.DevAuth.UserID,
			Email:     cfg.DevAuth.Email,
			FirstName: cfg.DevAuth.FirstName,
			LastName:  cfg.DevAuth.LastName,
			Groups:    cfg.DevAuth.Groups,
		})
		if err != nil {
			return nil, fmt.Errorf("create dev auth provider: %w", err)
		}
		return prov, nil

	case config.AuthModeOAuth:
		oauth := cfg.OAuth
		if oauth.DiscoveryURL == "" {
			return nil, errors.New("OAUTH_DISCOVERY_URL is required in oauth mode")
		}
		prov, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:        oauth.ClientID,
			ClientSecret:    oauth.ClientSecret,
			RedirectURL:     oauth.RedirectURL,
			Scope:           oauth.Scope,
			DiscoveryURL:    oauth.DiscoveryURL,
			LogoutURL:       oauth.LogoutURL,
			GroupsClaimPath: oauth.GroupsClaimPath,
		})
		if err != nil {
			return nil, fmt.Errorf("create OIDC provider: %w", err)
		}
		return prov, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

func roleMapperFromConfig(g config.GroupMappingConfig) authroles.StaticRoleMapper {
	return authroles.StaticRoleMapper{
		SuperAdminGroup: g.SuperAdminGroup,
		AdminGroup:      g.AdminGroup,
		ManagerGroup:    g.ManagerGroup,
		EmployeeGroup:   g.EmployeeGroup,
		ClientGroup:     g.ClientGroup,
	}
}
