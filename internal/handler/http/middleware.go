package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/auth"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
	apperrors "github.com/jteerlink/SymptomSentinelAI-sub001/pkg/errors"
	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/logger"
)

type contextKey int

const identityKey contextKey = iota

// newAccessTokenHeader carries a transparently rotated access token
// back to API clients that authenticate via the Authorization header.
const newAccessTokenHeader = "X-New-Access-Token"

// ContextWithIdentity stores the authenticated user in the context.
func ContextWithIdentity(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, identityKey, user)
}

// IdentityFromContext returns the authenticated user, if any.
func IdentityFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(identityKey).(*domain.User)
	return user, ok
}

// AuthMiddleware guards routes with credential resolution. RequireAuth
// rejects unauthenticated requests; OptionalAuth lets them through as
// anonymous.
type AuthMiddleware struct {
	resolver *auth.Resolver
	cookies  cookieWriter
	log      *slog.Logger
}

// NewAuthMiddleware creates the auth gate.
func NewAuthMiddleware(resolver *auth.Resolver, cookies cookieWriter, log *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver, cookies: cookies, log: log}
}

// RequireAuth resolves credentials and rejects the request with a typed
// 401/503 when resolution fails.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.resolver.Resolve(r.Context(), auth.ExtractCredentials(r))
		if err != nil {
			writeError(w, authError(err))
			return
		}
		next.ServeHTTP(w, m.requestWithSession(w, r, session))
	})
}

// OptionalAuth resolves credentials when present but never rejects: any
// resolution failure, including a store outage, yields an anonymous
// request. Handlers downstream see an identity only for a fully valid
// session.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.resolver.Resolve(r.Context(), auth.ExtractCredentials(r))
		if err != nil {
			if !errors.Is(err, auth.ErrNoCredential) {
				m.log.Debug("optional auth proceeding anonymously", slog.String("error", err.Error()))
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, m.requestWithSession(w, r, session))
	})
}

// requestWithSession attaches the identity to the request context and
// propagates a rotated token pair to the client.
func (m *AuthMiddleware) requestWithSession(w http.ResponseWriter, r *http.Request, session *auth.Session) *http.Request {
	if session.RotatedPair != nil {
		w.Header().Set(newAccessTokenHeader, session.RotatedPair.AccessToken)
		m.cookies.set(w, session.RotatedPair)
	}

	ctx := ContextWithIdentity(r.Context(), session.User)
	ctx = logger.WithUserID(ctx, session.User.ID)
	return r.WithContext(ctx)
}

// authError maps resolution failures onto the wire error vocabulary.
func authError(err error) *apperrors.AppError {
	unauthorized := func(code, message string) *apperrors.AppError {
		return &apperrors.AppError{
			Code:    code,
			Message: message,
			Status:  http.StatusUnauthorized,
			Err:     err,
		}
	}

	switch {
	case errors.Is(err, auth.ErrNoCredential):
		return unauthorized("NO_CREDENTIAL", "authentication required")
	case errors.Is(err, auth.ErrTokenExpired):
		return unauthorized("TOKEN_EXPIRED", "access token has expired")
	case errors.Is(err, auth.ErrTokenInvalid):
		return unauthorized("TOKEN_INVALID", "access token is invalid")
	case errors.Is(err, auth.ErrRefreshExpired):
		return unauthorized("REFRESH_EXPIRED", "session has expired, please sign in again")
	case errors.Is(err, auth.ErrRefreshInvalid):
		return unauthorized("REFRESH_INVALID", "refresh token is invalid")
	case errors.Is(err, auth.ErrUserNotFound):
		return unauthorized("USER_NOT_FOUND", "account no longer exists")
	case errors.Is(err, auth.ErrStoreUnavailable):
		return apperrors.StoreUnavailable(err)
	default:
		return apperrors.Internal(err)
	}
}
