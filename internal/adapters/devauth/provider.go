// Package devauth is a config-driven auth provider for local development.
// It short-circuits the SSO round trip by redirecting straight back to the
// application's own callback and handing out a fixed identity.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
	"github.com/worksuite/identity-api/internal/ports"
)

const (
	defaultSessionDuration = 8 * time.Hour

	// tokenBytes yields 24 URL-safe characters after encoding.
	tokenBytes = 18
)

// Config describes the identity the dev provider hands out. UserID and
// Email are required.
type Config struct {
	UserID          string
	Email           string
	FirstName       string
	LastName        string
	Groups          []string
	SessionDuration time.Duration // defaults to 8h when zero
}

func (cfg Config) validate() error {
	if cfg.UserID == "" {
		return errors.New("dev auth: UserID is required")
	}
	if cfg.Email == "" {
		return errors.New("dev auth: Email is required")
	}
	return nil
}

// Provider satisfies ports.AuthProvider without any external dependency.
// Exchange ignores the authorization code and always returns the configured
// identity, so any login attempt succeeds as that user.
type Provider struct {
	identity        domainauth.Identity
	sessionDuration time.Duration
}

// NewProvider builds the provider from cfg.
func NewProvider(cfg Config) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	dur := cfg.SessionDuration
	if dur == 0 {
		dur = defaultSessionDuration
	}

	return &Provider{
		identity: domainauth.Identity{
			UserID:    cfg.UserID,
			Email:     cfg.Email,
			FirstName: cfg.FirstName,
			LastName:  cfg.LastName,
			Groups:    append([]string(nil), cfg.Groups...),
			ExpiresAt: time.Now().Add(dur),
		},
		sessionDuration: dur,
	}, nil
}

// Begin returns a relative callback URL with freshly generated state and
// nonce, matching the shape of a real provider's authorization redirect.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomToken()
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken()
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	return "/auth/callback?code=dev&state=" + state, state, nonce, nil
}

// Exchange returns the configured identity. State and nonce checks belong
// to the caller, same as with a real provider.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	// Keep the identity usable across long dev sessions.
	if time.Until(p.identity.ExpiresAt) < 5*time.Minute {
		p.identity.ExpiresAt = time.Now().Add(p.sessionDuration)
	}
	return p.identity, nil
}

func randomToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
