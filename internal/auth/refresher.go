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

// Refresher exchanges a valid refresh token for a brand-new token pair,
// rotating the old token out in the process. A refresh token grants
// exactly one renewal; reuse after rotation is treated as invalid.
type Refresher struct {
	codec        *JWTManager
	issuer       *Issuer
	users        UserStore
	tokens       RefreshTokenStore
	storeTimeout time.Duration
	log          *slog.Logger
	nowFunc      func() time.Time
}

// NewRefresher creates a Refresher. storeTimeout bounds every store call
// made during a refresh.
func NewRefresher(codec *JWTManager, issuer *Issuer, users UserStore, tokens RefreshTokenStore, storeTimeout time.Duration, log *slog.Logger) *Refresher {
	return &Refresher{
		codec:        codec,
		issuer:       issuer,
		users:        users,
		tokens:       tokens,
		storeTimeout: storeTimeout,
		log:          log,
		nowFunc:      time.Now,
	}
}

// Refresh validates the refresh token, revokes it, and mints a new pair
// for the token's user. The returned pair shares no token material with
// the old one.
func (f *Refresher) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, *domain.User, error) {
	log := logger.WithContext(ctx, f.log)

	claims, err := f.codec.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, err
	}

	tokenHash := HashToken(refreshToken)

	stored, err := f.getStoredToken(ctx, tokenHash)
	if err != nil {
		return nil, nil, err
	}
	if stored.RevokedAt != nil {
		log.Warn("revoked refresh token presented", slog.String("user_id", claims.UserID))
		return nil, nil, ErrRefreshInvalid
	}
	if f.nowFunc().After(stored.ExpiresAt) {
		return nil, nil, ErrRefreshExpired
	}

	user, err := f.getUser(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}

	if err := f.revokeToken(ctx, tokenHash); err != nil {
		return nil, nil, err
	}

	pair, err := f.issuer.IssuePair(ctx, user)
	if err != nil {
		log.Error("issuing rotated token pair", slog.String("error", err.Error()))
		return nil, nil, ErrStoreUnavailable
	}

	log.Info("refresh token rotated", slog.String("user_id", user.ID))
	return pair, user, nil
}

func (f *Refresher) getStoredToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, f.storeTimeout)
	defer cancel()

	stored, err := f.tokens.GetByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, ErrStoreUnavailable
	}
	return stored, nil
}

func (f *Refresher) getUser(ctx context.Context, userID string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, f.storeTimeout)
	defer cancel()

	user, err := f.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, ErrStoreUnavailable
	}
	return user, nil
}

func (f *Refresher) revokeToken(ctx context.Context, tokenHash string) error {
	ctx, cancel := context.WithTimeout(ctx, f.storeTimeout)
	defer cancel()

	if err := f.tokens.Revoke(ctx, tokenHash); err != nil {
		return ErrStoreUnavailable
	}
	return nil
}
