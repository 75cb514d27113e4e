package auth

import (
	"net/http"
	"strings"
)

// Cookie names under which the browser client stores tokens. The SPA
// also sends the access token as a Bearer header; the cookies exist so
// that sessions survive page reloads.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// Credentials holds the raw token material extracted from a request.
// Either field may be empty.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// ExtractCredentials pulls token material out of an incoming request
// without verifying it. The access token is taken from the Authorization
// header first, falling back to the access_token cookie. The refresh
// token comes from the refresh_token cookie; the explicit refresh
// endpoint additionally accepts it in the request body.
func ExtractCredentials(r *http.Request) Credentials {
	return Credentials{
		AccessToken:  extractAccessToken(r),
		RefreshToken: extractRefreshToken(r),
	}
}

func extractAccessToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		// A malformed Authorization header is treated as no header at
		// all, so the cookie still gets a chance.
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
			return token
		}
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

func extractRefreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}
