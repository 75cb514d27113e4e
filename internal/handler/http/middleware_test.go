package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/auth"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
)

// expiredToken mints an access token for user that is already expired.
func expiredToken(t *testing.T, ts *testServer, user *domain.User) string {
	t.Helper()
	past := auth.NewJWTManager("handler-test-secret", -time.Hour, 168*time.Hour)
	token, _, err := past.GenerateAccessToken(user)
	require.NoError(t, err)
	return token
}

func TestRequireAuth_NoCredential(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	_, errObj := decodeBody(t, rec)
	assert.Equal(t, "NO_CREDENTIAL", errObj["code"])
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := ts.do(t, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	_, errObj := decodeBody(t, rec)
	assert.Equal(t, "TOKEN_INVALID", errObj["code"])
}

func TestRequireAuth_ValidToken(t *testing.T) {
	ts := newTestServer(t)
	user, pair := ts.registerUser(t, "me@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := ts.do(t, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data, _ := decodeBody(t, rec)
	assert.Equal(t, user.Email, data["email"])
	assert.NotContains(t, rec.Body.String(), "password", "hashes must never leak")
	assert.Empty(t, rec.Header().Get(newAccessTokenHeader))
}

func TestRequireAuth_ExpiredWithoutRefresh(t *testing.T) {
	ts := newTestServer(t)
	user, _ := ts.registerUser(t, "me@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+expiredToken(t, ts, user))
	rec := ts.do(t, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	_, errObj := decodeBody(t, rec)
	assert.Equal(t, "TOKEN_EXPIRED", errObj["code"])
}

func TestRequireAuth_TransparentRefresh(t *testing.T) {
	ts := newTestServer(t)
	user, pair := ts.registerUser(t, "me@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+expiredToken(t, ts, user))
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: pair.RefreshToken})
	rec := ts.do(t, req)

	require.Equal(t, http.StatusOK, rec.Code, "expired access with valid refresh must succeed")

	// The rotated access token is propagated in both header and cookie.
	newAccess := rec.Header().Get(newAccessTokenHeader)
	require.NotEmpty(t, newAccess)
	assert.NotEqual(t, pair.AccessToken, newAccess)

	claims, err := ts.codec.ValidateAccessToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	cookies := rec.Result().Cookies()
	names := make(map[string]string, len(cookies))
	for _, c := range cookies {
		names[c.Name] = c.Value
	}
	assert.Equal(t, newAccess, names[auth.AccessTokenCookie])
	require.NotEmpty(t, names[auth.RefreshTokenCookie])
	assert.NotEqual(t, pair.RefreshToken, names[auth.RefreshTokenCookie])

	// The old refresh token died with the rotation.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+expiredToken(t, ts, user))
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: pair.RefreshToken})
	rec = ts.do(t, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	_, errObj := decodeBody(t, rec)
	assert.Equal(t, "REFRESH_INVALID", errObj["code"])
}

func TestRequireAuth_AccessTokenViaCookie(t *testing.T) {
	ts := newTestServer(t)
	_, pair := ts.registerUser(t, "me@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: pair.AccessToken})
	rec := ts.do(t, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_DeletedUser(t *testing.T) {
	ts := newTestServer(t)
	user, pair := ts.registerUser(t, "me@example.com")
	require.NoError(t, ts.users.Delete(context.Background(), user.ID))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := ts.do(t, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	_, errObj := decodeBody(t, rec)
	assert.Equal(t, "TOKEN_INVALID", errObj["code"])
}

func TestOptionalAuth_Anonymous(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/tiers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	data, _ := decodeBody(t, rec)
	assert.NotContains(t, data, "usage")
}

func TestOptionalAuth_InvalidTokenStillAnonymous(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tiers", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := ts.do(t, req)

	require.Equal(t, http.StatusOK, rec.Code, "optional auth never rejects")
	data, _ := decodeBody(t, rec)
	assert.NotContains(t, data, "usage")
}

func TestOptionalAuth_Authenticated(t *testing.T) {
	ts := newTestServer(t)
	_, pair := ts.registerUser(t, "me@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tiers", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := ts.do(t, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data, _ := decodeBody(t, rec)
	usage, ok := data["usage"].(map[string]any)
	require.True(t, ok, "authenticated callers see their usage")
	assert.Equal(t, "free", usage["tier"])
}
