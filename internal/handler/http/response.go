// Package http contains the HTTP handlers, routing, and the auth gate.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/jteerlink/SymptomSentinelAI-sub001/pkg/errors"
	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/validator"
)

// response is the envelope for every JSON body this service returns.
type response struct {
	Data  any `json:"data,omitempty"`
	Error any `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(response{Data: data})
	}
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(response{Error: appErr})
}

func writeValidationError(w http.ResponseWriter, verr *validator.ValidationError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(response{Error: map[string]any{
		"code":    "VALIDATION_FAILED",
		"message": "request validation failed",
		"fields":  verr.Fields(),
	}})
}

// validateStruct validates v and writes the error response itself.
// Returns false when the request should not proceed.
func validateStruct(w http.ResponseWriter, v any) bool {
	err := validator.Validate(v)
	if err == nil {
		return true
	}
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		writeValidationError(w, verr)
	} else {
		writeError(w, err)
	}
	return false
}

// maxBodyBytes caps request bodies. Large enough for a base64 image
// upload, small enough to shrug off junk.
const maxBodyBytes = 8 << 20

// decodeJSON decodes the request body into v, rejecting unknown fields
// and oversized bodies.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("request body is required")
		}
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}
