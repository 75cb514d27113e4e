package http

import (
	"log/slog"
	"net/http"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/auth"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/service"
)

// AuthHandler serves the public authentication endpoints.
type AuthHandler struct {
	svc     *service.UserService
	cookies cookieWriter
	log     *slog.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(svc *service.UserService, cookies cookieWriter, log *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, cookies: cookies, log: log}
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	User            *domain.User `json:"user"`
	AccessToken     string       `json:"access_token"`
	RefreshToken    string       `json:"refresh_token"`
	AccessExpiresAt string       `json:"access_expires_at"`
}

func newSessionResponse(user *domain.User, pair *domain.TokenPair) sessionResponse {
	return sessionResponse{
		User:            user,
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !validateStruct(w, req) {
		return
	}

	user, pair, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.set(w, pair)
	writeJSON(w, http.StatusCreated, newSessionResponse(user, pair))
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !validateStruct(w, req) {
		return
	}

	user, pair, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.set(w, pair)
	writeJSON(w, http.StatusOK, newSessionResponse(user, pair))
}

// Refresh handles POST /api/v1/auth/refresh. The refresh token comes
// from the refresh_token cookie, falling back to the request body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFromRequest(r)
	if token == "" {
		writeError(w, authError(auth.ErrNoCredential))
		return
	}

	user, pair, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, authError(err))
		return
	}

	h.cookies.set(w, pair)
	writeJSON(w, http.StatusOK, newSessionResponse(user, pair))
}

// Logout handles POST /api/v1/auth/logout. Always clears cookies, even
// when no valid refresh token was presented.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), refreshTokenFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}
	h.cookies.clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func refreshTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(auth.RefreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req refreshRequest
	if err := decodeJSON(r, &req); err == nil {
		return req.RefreshToken
	}
	return ""
}
