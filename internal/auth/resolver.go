package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
	apperrors "github.com/jteerlink/SymptomSentinelAI-sub001/pkg/errors"
	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/logger"
)

// UserStore is the subset of user persistence that credential
// resolution needs.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Session is the outcome of successful credential resolution.
type Session struct {
	// User is the authenticated account, freshly read from the store.
	User *domain.User

	// RotatedPair is non-nil when the access token had expired and was
	// transparently renewed via the refresh token. Handlers must
	// propagate the new pair to the client.
	RotatedPair *domain.TokenPair
}

// Resolver classifies request credentials into an authenticated session
// or a typed failure. It never falls back to claims embedded in the
// token for identity data; the user record is always re-read so tier
// changes and deletions take effect immediately.
type Resolver struct {
	codec        *JWTManager
	users        UserStore
	refresher    *Refresher
	storeTimeout time.Duration
	log          *slog.Logger
}

// NewResolver creates a Resolver. storeTimeout bounds the user lookup;
// the refresher carries its own timeout for the rotation path.
func NewResolver(codec *JWTManager, users UserStore, refresher *Refresher, storeTimeout time.Duration, log *slog.Logger) *Resolver {
	return &Resolver{
		codec:        codec,
		users:        users,
		refresher:    refresher,
		storeTimeout: storeTimeout,
		log:          log,
	}
}

// Resolve turns extracted credentials into a session.
//
// Failure modes, in evaluation order:
//   - ErrNoCredential when no access token was supplied
//   - ErrTokenInvalid for malformed or forged access tokens, or tokens
//     whose user no longer exists
//   - ErrTokenExpired when the access token expired and no refresh
//     token was available
//   - the refresher's errors when transparent rotation was attempted
//   - ErrStoreUnavailable when the user store did not answer in time
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (*Session, error) {
	log := logger.WithContext(ctx, r.log)

	if creds.AccessToken == "" {
		return nil, ErrNoCredential
	}

	claims, err := r.codec.ValidateAccessToken(creds.AccessToken)
	switch {
	case err == nil:
		user, err := r.loadUser(ctx, claims.UserID)
		if err != nil {
			return nil, err
		}
		return &Session{User: user}, nil

	case errors.Is(err, ErrTokenExpired):
		if creds.RefreshToken == "" {
			return nil, ErrTokenExpired
		}
		pair, user, err := r.refresher.Refresh(ctx, creds.RefreshToken)
		if err != nil {
			return nil, err
		}
		return &Session{User: user, RotatedPair: pair}, nil

	default:
		log.Debug("access token rejected", slog.String("error", err.Error()))
		return nil, ErrTokenInvalid
	}
}

func (r *Resolver) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()

	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// A verified token for a deleted account. From the caller's
			// point of view the credential is simply no longer valid.
			return nil, ErrTokenInvalid
		}
		r.log.Error("user lookup failed during resolution",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, ErrStoreUnavailable
	}
	return user, nil
}
