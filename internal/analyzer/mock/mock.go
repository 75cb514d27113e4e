// Package mock provides a deterministic analyzer for development and
// tests. It returns canned condition lists keyed by scan type.
package mock

import (
	"context"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/analyzer"
	apperrors "github.com/jteerlink/SymptomSentinelAI-sub001/pkg/errors"
)

// Analyzer implements analyzer.Analyzer with fixed results.
type Analyzer struct{}

// New creates a mock analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze returns a canned result for the scan type. The image bytes
// only need to be non-empty.
func (a *Analyzer) Analyze(ctx context.Context, scanType string, image []byte) (*analyzer.Result, error) {
	if len(image) == 0 {
		return nil, apperrors.InvalidInput("image data is empty")
	}

	switch scanType {
	case analyzer.ScanTypeThroat:
		return &analyzer.Result{
			IsInfected: true,
			Conditions: []analyzer.Condition{
				{ID: "strep_throat", Name: "Strep Throat", Confidence: 0.78, IsPotentiallySerious: true},
				{ID: "pharyngitis", Name: "Viral Pharyngitis", Confidence: 0.64},
				{ID: "tonsillitis", Name: "Tonsillitis", Confidence: 0.41},
			},
		}, nil
	case analyzer.ScanTypeEar:
		return &analyzer.Result{
			IsInfected: false,
			Conditions: []analyzer.Condition{
				{ID: "otitis_media", Name: "Otitis Media", Confidence: 0.32},
				{ID: "earwax_buildup", Name: "Earwax Buildup", Confidence: 0.27},
			},
		}, nil
	default:
		return nil, apperrors.InvalidInput("unsupported scan type: " + scanType)
	}
}
