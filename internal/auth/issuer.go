package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
)

// RefreshTokenStore persists refresh token hashes so individual tokens
// can be rotated and revoked. Raw tokens are never stored.
type RefreshTokenStore interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// Issuer mints access/refresh token pairs and records the refresh half
// in the store. It is shared by login, registration, and rotation.
type Issuer struct {
	codec  *JWTManager
	tokens RefreshTokenStore
}

// NewIssuer creates an Issuer backed by the given codec and token store.
func NewIssuer(codec *JWTManager, tokens RefreshTokenStore) *Issuer {
	return &Issuer{codec: codec, tokens: tokens}
}

// IssuePair mints a fresh token pair for the user and persists the
// refresh token hash.
func (i *Issuer) IssuePair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, accessExpiresAt, err := i.codec.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}

	refreshToken, refreshExpiresAt, err := i.codec.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	if err := i.tokens.Create(ctx, user.ID, HashToken(refreshToken), refreshExpiresAt); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: accessExpiresAt,
	}, nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token, the form
// in which refresh tokens are persisted and looked up.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
