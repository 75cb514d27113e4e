// Package analyzer defines the interface to the image analysis backend.
// The real backend is an external ML inference service; this service
// only needs the contract.
package analyzer

import "context"

// Scan types accepted by the analysis endpoint.
const (
	ScanTypeThroat = "throat"
	ScanTypeEar    = "ear"
)

// ValidScanType reports whether t names a supported scan type.
func ValidScanType(t string) bool {
	return t == ScanTypeThroat || t == ScanTypeEar
}

// Condition is a single candidate diagnosis with its model confidence.
type Condition struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Confidence           float64 `json:"confidence"`
	IsPotentiallySerious bool    `json:"is_potentially_serious"`
}

// Result is the outcome of analyzing one image.
type Result struct {
	IsInfected bool        `json:"is_infected"`
	Conditions []Condition `json:"conditions"`
}

// Analyzer produces an analysis result for a submitted image.
type Analyzer interface {
	Analyze(ctx context.Context, scanType string, image []byte) (*Result, error)
}
