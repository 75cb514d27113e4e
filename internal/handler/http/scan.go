package http

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/service"
	apperrors "github.com/jteerlink/SymptomSentinelAI-sub001/pkg/errors"
)

// ScanHandler serves the quota-gated scan analysis endpoint.
type ScanHandler struct {
	scans *service.ScanService
	log   *slog.Logger
}

// NewScanHandler creates the scan handler.
func NewScanHandler(scans *service.ScanService, log *slog.Logger) *ScanHandler {
	return &ScanHandler{scans: scans, log: log}
}

type createScanRequest struct {
	Type  string `json:"type" validate:"required,oneof=throat ear"`
	Image string `json:"image" validate:"required"`
}

type createScanResponse struct {
	*service.ScanResult
	Quota quotaResponse `json:"quota"`
}

// Create handles POST /api/v1/scans. Each accepted request consumes one
// scan slot from the caller's monthly allowance before analysis runs.
func (h *ScanHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFromContext(r.Context())

	var req createScanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !validateStruct(w, req) {
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		writeError(w, apperrors.InvalidInput("image must be base64 encoded"))
		return
	}

	result, err := h.scans.Analyze(r.Context(), user, req.Type, image)
	if err != nil {
		writeError(w, err)
		return
	}

	d := result.Quota
	resp := createScanResponse{
		ScanResult: result,
		Quota:      quotaResponse{Tier: d.Tier, Used: d.Current, Limit: d.Limit, Unlimited: d.Unlimited},
	}
	if !d.Unlimited {
		resp.Quota.Remaining = d.Limit - d.Current
	}
	writeJSON(w, http.StatusCreated, resp)
}
