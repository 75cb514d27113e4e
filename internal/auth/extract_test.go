package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCredentials_BearerHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer header-token")

	creds := ExtractCredentials(r)
	assert.Equal(t, "header-token", creds.AccessToken)
	assert.Empty(t, creds.RefreshToken)
}

func TestExtractCredentials_HeaderWinsOverCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "cookie-token"})

	creds := ExtractCredentials(r)
	assert.Equal(t, "header-token", creds.AccessToken)
}

func TestExtractCredentials_CookieFallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "cookie-token"})
	r.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "refresh-cookie"})

	creds := ExtractCredentials(r)
	assert.Equal(t, "cookie-token", creds.AccessToken)
	assert.Equal(t, "refresh-cookie", creds.RefreshToken)
}

func TestExtractCredentials_MalformedHeaderFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"wrong scheme", "Basic abc123"},
		{"no token", "Bearer "},
		{"bare word", "Bearer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", tt.header)
			r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "cookie-token"})

			creds := ExtractCredentials(r)
			assert.Equal(t, "cookie-token", creds.AccessToken)
		})
	}
}

func TestExtractCredentials_NoCredential(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	creds := ExtractCredentials(r)
	assert.Empty(t, creds.AccessToken)
	assert.Empty(t, creds.RefreshToken)
}
