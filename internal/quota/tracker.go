package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
	apperrors "github.com/jteerlink/SymptomSentinelAI-sub001/pkg/errors"
	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/logger"
)

var (
	scansConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_scans_consumed_total",
			Help: "Total number of scan slots consumed",
		},
		[]string{"tier"},
	)

	quotaDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_denied_total",
			Help: "Total number of scans denied because the monthly limit was reached",
		},
		[]string{"tier"},
	)
)

// maxUpdateAttempts bounds the optimistic-concurrency retry loop. Each
// attempt re-reads the user row, so losing this many races in a row for
// one user means something is wrong with the store.
const maxUpdateAttempts = 5

// UserStore is the persistence surface the tracker needs. UpdateUsage
// must be conditional: it writes the new count and period start only if
// the row still holds the expected values, and returns
// apperrors.ErrConflict otherwise.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateUsage(ctx context.Context, id string, expectedCount int, expectedStart time.Time, newCount int, newStart time.Time) error
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed   bool
	Current   int // usage count after the check (unchanged when denied)
	Limit     int // 0 when unlimited
	Unlimited bool
	Tier      domain.SubscriptionTier
}

// Tracker enforces per-user monthly scan quotas. Consumption is
// check-and-consume in one logical step: concurrent requests for the
// same user can never over-consume the allowance.
type Tracker struct {
	users        UserStore
	limits       domain.QuotaLimits
	storeTimeout time.Duration
	log          *slog.Logger
	nowFunc      func() time.Time
}

// NewTracker creates a quota tracker.
func NewTracker(users UserStore, limits domain.QuotaLimits, storeTimeout time.Duration, log *slog.Logger) *Tracker {
	return &Tracker{
		users:        users,
		limits:       limits,
		storeTimeout: storeTimeout,
		log:          log,
		nowFunc:      time.Now,
	}
}

// CheckAndConsume atomically consumes one scan slot for the user, or
// reports a denial when the monthly limit is already reached. Denials
// never mutate state. Unlimited tiers always pass but their usage is
// still counted for analytics.
//
// Returns apperrors.ErrNotFound when the user does not exist, and a
// store-unavailable error when persistence fails or the retry budget is
// exhausted.
func (t *Tracker) CheckAndConsume(ctx context.Context, userID string) (Decision, error) {
	log := logger.WithContext(ctx, t.log)

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		user, err := t.getUser(ctx, userID)
		if err != nil {
			return Decision{}, err
		}

		limit, unlimited := t.limits.ForTier(user.Tier)
		now := t.nowFunc().UTC()

		count, periodStart := user.ScanCount, user.ScanPeriodStart
		if !samePeriod(periodStart, now) {
			// New calendar month: the consumed slot becomes the first
			// use of the fresh period. Reset and consumption land in
			// one conditional write so a racing request cannot observe
			// a reset count without the advanced period.
			count, periodStart = 0, monthStart(now)
		}

		if !unlimited && count >= limit {
			quotaDeniedTotal.WithLabelValues(string(user.Tier)).Inc()
			log.Info("scan denied by quota",
				slog.String("user_id", userID),
				slog.Int("current", count),
				slog.Int("limit", limit),
			)
			return Decision{Current: count, Limit: limit, Tier: user.Tier}, nil
		}

		err = t.updateUsage(ctx, userID, user.ScanCount, user.ScanPeriodStart, count+1, periodStart)
		if errors.Is(err, apperrors.ErrConflict) {
			// Lost the race to a concurrent scan. Re-read and retry.
			continue
		}
		if err != nil {
			return Decision{}, err
		}

		scansConsumedTotal.WithLabelValues(string(user.Tier)).Inc()
		return Decision{
			Allowed:   true,
			Current:   count + 1,
			Limit:     limit,
			Unlimited: unlimited,
			Tier:      user.Tier,
		}, nil
	}

	// Fail closed rather than guess at the user's remaining allowance.
	log.Error("quota update contention exhausted", slog.String("user_id", userID))
	return Decision{}, apperrors.StoreUnavailable(fmt.Errorf("usage update for user %s lost %d races", userID, maxUpdateAttempts))
}

// Peek reports the user's current usage without consuming a slot.
// A period that has rolled over since the last scan reads as zero even
// though the row still carries the old count.
func (t *Tracker) Peek(ctx context.Context, userID string) (Decision, error) {
	user, err := t.getUser(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	limit, unlimited := t.limits.ForTier(user.Tier)
	count := user.ScanCount
	if !samePeriod(user.ScanPeriodStart, t.nowFunc().UTC()) {
		count = 0
	}

	return Decision{
		Allowed:   unlimited || count < limit,
		Current:   count,
		Limit:     limit,
		Unlimited: unlimited,
		Tier:      user.Tier,
	}, nil
}

func (t *Tracker) getUser(ctx context.Context, userID string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, t.storeTimeout)
	defer cancel()

	user, err := t.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, apperrors.StoreUnavailable(err)
	}
	return user, nil
}

func (t *Tracker) updateUsage(ctx context.Context, userID string, expectedCount int, expectedStart time.Time, newCount int, newStart time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, t.storeTimeout)
	defer cancel()

	err := t.users.UpdateUsage(ctx, userID, expectedCount, expectedStart, newCount, newStart)
	if err != nil && !errors.Is(err, apperrors.ErrConflict) {
		return apperrors.StoreUnavailable(err)
	}
	return err
}

// samePeriod reports whether two instants fall in the same UTC calendar
// month.
func samePeriod(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// monthStart returns midnight UTC on the first day of t's month.
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
