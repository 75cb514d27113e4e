package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
)

const testSecret = "test-secret-key-for-jwt-signing"

func testUser() *domain.User {
	return &domain.User{
		ID:    "a3f1c2d4-0000-4000-8000-000000000001",
		Email: "pat@example.com",
		Tier:  domain.TierFree,
	}
}

func TestJWTManager_AccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour, 7*24*time.Hour)
	user := testUser()

	token, expiresAt, err := m.GenerateAccessToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.Tier, claims.Tier)
	assert.Equal(t, KindAccess, claims.Kind)
}

func TestJWTManager_RefreshTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour, 7*24*time.Hour)

	token, expiresAt, err := m.GenerateRefreshToken("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, 5*time.Second)

	claims, err := m.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, KindRefresh, claims.Kind)
	assert.Empty(t, claims.Email)
}

func TestJWTManager_ExpiredAccessToken(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour, 7*24*time.Hour)
	m.nowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := m.GenerateAccessToken(testUser())
	require.NoError(t, err)

	m.nowFunc = time.Now
	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTManager_ExpiredRefreshToken(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour, time.Minute)
	m.nowFunc = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := m.GenerateRefreshToken("user-1")
	require.NoError(t, err)

	m.nowFunc = time.Now
	_, err = m.ValidateRefreshToken(token)
	assert.ErrorIs(t, err, ErrRefreshExpired)
}

func TestJWTManager_KindConfusion(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour, 7*24*time.Hour)

	access, _, err := m.GenerateAccessToken(testUser())
	require.NoError(t, err)
	refresh, _, err := m.GenerateRefreshToken("user-1")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid, "refresh token must not pass as access token")

	_, err = m.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrRefreshInvalid, "access token must not pass as refresh token")
}

func TestJWTManager_ExpiredWrongKindIsInvalid(t *testing.T) {
	// An expired access token handed to the refresh validator must read
	// as invalid, not expired, or it could sneak into the renewal path.
	m := NewJWTManager(testSecret, time.Hour, 7*24*time.Hour)
	m.nowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	access, _, err := m.GenerateAccessToken(testUser())
	require.NoError(t, err)

	m.nowFunc = time.Now
	_, err = m.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestJWTManager_InvalidTokens(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour, 7*24*time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"truncated", "eyJhbGciOiJIUzI1NiJ9.eyJmb28i"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestJWTManager_WrongSecret(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour, 7*24*time.Hour)
	other := NewJWTManager("a-completely-different-secret", time.Hour, 7*24*time.Hour)

	token, _, err := m.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
