package http

import (
	"log/slog"
	"net/http"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/service"
)

// UserHandler serves the authenticated account endpoints.
type UserHandler struct {
	users   *service.UserService
	scans   *service.ScanService
	limits  domain.QuotaLimits
	cookies cookieWriter
	log     *slog.Logger
}

// NewUserHandler creates the user handler.
func NewUserHandler(users *service.UserService, scans *service.ScanService, limits domain.QuotaLimits, cookies cookieWriter, log *slog.Logger) *UserHandler {
	return &UserHandler{users: users, scans: scans, limits: limits, cookies: cookies, log: log}
}

// GetProfile handles GET /api/v1/users/me.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
	Email       *string `json:"email" validate:"omitempty,email"`
}

// UpdateProfile handles PATCH /api/v1/users/me.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFromContext(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !validateStruct(w, req) {
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), user.ID, service.UpdateProfileInput{
		DisplayName: req.DisplayName,
		Email:       req.Email,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// ChangePassword handles PUT /api/v1/users/me/password. All sessions
// are revoked on success, so the client must sign in again.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFromContext(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !validateStruct(w, req) {
		return
	}

	if err := h.users.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	h.cookies.clear(w)
	w.WriteHeader(http.StatusNoContent)
}

type changeSubscriptionRequest struct {
	Tier string `json:"tier" validate:"required,oneof=free premium"`
}

// ChangeSubscription handles PUT /api/v1/users/me/subscription.
func (h *UserHandler) ChangeSubscription(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFromContext(r.Context())

	var req changeSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !validateStruct(w, req) {
		return
	}

	updated, err := h.users.ChangeSubscription(r.Context(), user.ID, domain.SubscriptionTier(req.Tier))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type quotaResponse struct {
	Tier      domain.SubscriptionTier `json:"tier"`
	Used      int                     `json:"used"`
	Limit     int                     `json:"limit"`
	Remaining int                     `json:"remaining"`
	Unlimited bool                    `json:"unlimited"`
}

// GetQuota handles GET /api/v1/users/me/quota.
func (h *UserHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFromContext(r.Context())

	d, err := h.scans.Quota(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := quotaResponse{
		Tier:      d.Tier,
		Used:      d.Current,
		Limit:     d.Limit,
		Unlimited: d.Unlimited,
	}
	if !d.Unlimited {
		resp.Remaining = d.Limit - d.Current
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteAccount handles DELETE /api/v1/users/me.
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFromContext(r.Context())

	if err := h.users.DeleteAccount(r.Context(), user.ID); err != nil {
		writeError(w, err)
		return
	}
	h.cookies.clear(w)
	w.WriteHeader(http.StatusNoContent)
}

type tierInfo struct {
	Tier          domain.SubscriptionTier `json:"tier"`
	ScansPerMonth int                     `json:"scans_per_month"`
	Unlimited     bool                    `json:"unlimited"`
}

type tiersResponse struct {
	Tiers []tierInfo     `json:"tiers"`
	Usage *quotaResponse `json:"usage,omitempty"`
}

// ListTiers handles GET /api/v1/tiers. The endpoint is public; when the
// caller is signed in the response also carries their current usage.
func (h *UserHandler) ListTiers(w http.ResponseWriter, r *http.Request) {
	resp := tiersResponse{
		Tiers: []tierInfo{
			{Tier: domain.TierFree, ScansPerMonth: h.limits.FreeScansPerMonth},
			{Tier: domain.TierPremium, Unlimited: true},
		},
	}

	if user, ok := IdentityFromContext(r.Context()); ok {
		d, err := h.scans.Quota(r.Context(), user.ID)
		if err == nil {
			usage := quotaResponse{Tier: d.Tier, Used: d.Current, Limit: d.Limit, Unlimited: d.Unlimited}
			if !d.Unlimited {
				usage.Remaining = d.Limit - d.Current
			}
			resp.Usage = &usage
		} else {
			h.log.Error("loading usage for tiers", slog.String("error", err.Error()))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
