package httpx

import (
	"context"

	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
)

// sessionKey keys the authenticated session on request contexts. All
// handlers and middleware in this package share it.
type sessionKey struct{}

// SetSessionInContext attaches session to ctx. A nil session leaves ctx
// untouched so callers can pass lookup results through unconditionally.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetUserSessionFromContext reports the session stored on ctx, if any.
func GetUserSessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*domainauth.Session)
	return session, ok && session != nil
}

// GetSessionFromContext is the presence-blind variant: nil when no session
// is attached.
func GetSessionFromContext(ctx context.Context) *domainauth.Session {
	session, _ := GetUserSessionFromContext(ctx)
	return session
}
