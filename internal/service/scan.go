package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/analyzer"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/event"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/quota"
	apperrors "github.com/jteerlink/SymptomSentinelAI-sub001/pkg/errors"
	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/logger"
)

// maxImageBytes caps uploaded image size at 5 MB.
const maxImageBytes = 5 << 20

// ScanEvents is the slice of domain events the scan service emits.
type ScanEvents interface {
	ScanCompleted(ctx context.Context, data event.ScanCompletedData) error
}

// ScanResult is a completed analysis together with the quota state it
// consumed.
type ScanResult struct {
	ScanID   string           `json:"scan_id"`
	ScanType string           `json:"scan_type"`
	Result   *analyzer.Result `json:"result"`
	Quota    quota.Decision   `json:"-"`
}

// ScanService runs quota-gated image analysis.
type ScanService struct {
	analyzer analyzer.Analyzer
	quota    *quota.Tracker
	events   ScanEvents
	log      *slog.Logger
	nowFunc  func() time.Time
}

// NewScanService creates the scan service.
func NewScanService(a analyzer.Analyzer, tracker *quota.Tracker, events ScanEvents, log *slog.Logger) *ScanService {
	return &ScanService{
		analyzer: a,
		quota:    tracker,
		events:   events,
		log:      log,
		nowFunc:  time.Now,
	}
}

// Analyze consumes one scan slot for the user and runs the analysis.
// The quota check happens before any analysis work: a denied request
// costs nothing and changes nothing.
func (s *ScanService) Analyze(ctx context.Context, user *domain.User, scanType string, image []byte) (*ScanResult, error) {
	if !analyzer.ValidScanType(scanType) {
		return nil, apperrors.InvalidInput("scan type must be \"throat\" or \"ear\"")
	}
	if len(image) == 0 {
		return nil, apperrors.InvalidInput("image data is required")
	}
	if len(image) > maxImageBytes {
		return nil, apperrors.InvalidInput("image exceeds the 5 MB limit")
	}

	decision, err := s.quota.CheckAndConsume(ctx, user.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", user.ID)
		}
		return nil, err
	}
	if !decision.Allowed {
		return nil, apperrors.QuotaExceeded(decision.Current, decision.Limit, string(decision.Tier))
	}

	result, err := s.analyzer.Analyze(ctx, scanType, image)
	if err != nil {
		// The slot is already spent. Analysis failures should be rare
		// enough that refunding is not worth the extra race surface.
		return nil, err
	}

	scanID := uuid.New().String()
	if err := s.events.ScanCompleted(ctx, event.ScanCompletedData{
		ScanID:      scanID,
		UserID:      user.ID,
		ScanType:    scanType,
		Tier:        decision.Tier,
		Conditions:  len(result.Conditions),
		CompletedAt: s.nowFunc().UTC(),
	}); err != nil {
		logger.WithContext(ctx, s.log).Error("publishing scan.completed", slog.String("error", err.Error()))
	}

	return &ScanResult{
		ScanID:   scanID,
		ScanType: scanType,
		Result:   result,
		Quota:    decision,
	}, nil
}

// Quota reports the user's current usage without consuming a slot.
func (s *ScanService) Quota(ctx context.Context, userID string) (quota.Decision, error) {
	d, err := s.quota.Peek(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return quota.Decision{}, apperrors.NotFound("user", userID)
		}
		return quota.Decision{}, err
	}
	return d, nil
}
