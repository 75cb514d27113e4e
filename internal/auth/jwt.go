package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
)

// TokenKind distinguishes access tokens from refresh tokens. Both are
// signed with the same key, so the kind claim is what prevents one from
// being replayed as the other.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims are the JWT claims carried by both token kinds. Refresh tokens
// omit email and tier; those are re-read from the store on rotation so a
// stale tier embedded at issue time can never resurrect itself.
type Claims struct {
	UserID string                  `json:"user_id"`
	Email  string                  `json:"email,omitempty"`
	Tier   domain.SubscriptionTier `json:"tier,omitempty"`
	Kind   TokenKind               `json:"kind"`
	jwt.RegisteredClaims
}

// JWTManager creates and validates signed tokens.
type JWTManager struct {
	secretKey     []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	nowFunc       func() time.Time // injectable clock for testing
}

// NewJWTManager creates a new JWT manager with the given HMAC secret and
// per-kind lifetimes.
func NewJWTManager(secretKey string, accessExpiry, refreshExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		nowFunc:       time.Now,
	}
}

// AccessExpiry returns the configured access token lifetime.
func (m *JWTManager) AccessExpiry() time.Duration { return m.accessExpiry }

// RefreshExpiry returns the configured refresh token lifetime.
func (m *JWTManager) RefreshExpiry() time.Duration { return m.refreshExpiry }

// GenerateAccessToken creates a signed access token for the user and
// returns it with its expiry time.
func (m *JWTManager) GenerateAccessToken(user *domain.User) (string, time.Time, error) {
	now := m.nowFunc()
	expiresAt := now.Add(m.accessExpiry)

	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Tier:   user.Tier,
		Kind:   KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

// GenerateRefreshToken creates a signed refresh token for the user and
// returns it with its expiry time.
func (m *JWTManager) GenerateRefreshToken(userID string) (string, time.Time, error) {
	now := m.nowFunc()
	expiresAt := now.Add(m.refreshExpiry)

	claims := Claims{
		UserID: userID,
		Kind:   KindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing refresh token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies an access token and returns its claims.
// Returns ErrTokenExpired when the token verified but has expired, and
// ErrTokenInvalid for every other failure including kind mismatch.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return m.validate(tokenString, KindAccess, ErrTokenInvalid, ErrTokenExpired)
}

// ValidateRefreshToken verifies a refresh token and returns its claims.
// Returns ErrRefreshExpired when the token verified but has expired, and
// ErrRefreshInvalid for every other failure including kind mismatch.
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return m.validate(tokenString, KindRefresh, ErrRefreshInvalid, ErrRefreshExpired)
}

func (m *JWTManager) validate(tokenString string, kind TokenKind, invalidErr, expiredErr error) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithTimeFunc(m.nowFunc))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			// A kind mismatch outranks expiry: an expired token of the
			// wrong kind must never reach the refresh path.
			if claims.Kind != kind {
				return nil, invalidErr
			}
			return nil, expiredErr
		}
		return nil, invalidErr
	}

	if !token.Valid || claims.Kind != kind || claims.UserID == "" {
		return nil, invalidErr
	}
	return claims, nil
}
