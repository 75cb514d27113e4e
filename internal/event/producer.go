// Package event publishes the service's domain events to Kafka.
package event

import (
	"context"
	"time"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/kafka"
	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/logger"
)

const source = "symptomsentinel-api"

// Kafka topics owned by this service.
const (
	TopicAccountRegistered   = "symptomsentinel.account.registered"
	TopicSubscriptionChanged = "symptomsentinel.account.subscription_changed"
	TopicScanCompleted       = "symptomsentinel.scan.completed"
)

// AccountRegisteredData is the payload for account registration events.
type AccountRegisteredData struct {
	UserID       string                  `json:"user_id"`
	Email        string                  `json:"email"`
	Tier         domain.SubscriptionTier `json:"tier"`
	RegisteredAt time.Time               `json:"registered_at"`
}

// SubscriptionChangedData is the payload for tier change events.
type SubscriptionChangedData struct {
	UserID    string                  `json:"user_id"`
	OldTier   domain.SubscriptionTier `json:"old_tier"`
	NewTier   domain.SubscriptionTier `json:"new_tier"`
	ChangedAt time.Time               `json:"changed_at"`
}

// ScanCompletedData is the payload for completed scan events.
type ScanCompletedData struct {
	ScanID      string                  `json:"scan_id"`
	UserID      string                  `json:"user_id"`
	ScanType    string                  `json:"scan_type"`
	Tier        domain.SubscriptionTier `json:"tier"`
	Conditions  int                     `json:"conditions"`
	CompletedAt time.Time               `json:"completed_at"`
}

// Producer publishes domain events using the shared Kafka producer.
type Producer struct {
	producer *kafka.Producer
}

// NewProducer creates a domain event producer.
func NewProducer(producer *kafka.Producer) *Producer {
	return &Producer{producer: producer}
}

// AccountRegistered publishes an account registration event.
func (p *Producer) AccountRegistered(ctx context.Context, user *domain.User) error {
	evt, err := kafka.NewEvent("account.registered", user.ID, "account", source, AccountRegisteredData{
		UserID:       user.ID,
		Email:        user.Email,
		Tier:         user.Tier,
		RegisteredAt: user.CreatedAt,
	})
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, TopicAccountRegistered, evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx)))
}

// SubscriptionChanged publishes a tier change event.
func (p *Producer) SubscriptionChanged(ctx context.Context, user *domain.User, oldTier domain.SubscriptionTier) error {
	evt, err := kafka.NewEvent("account.subscription_changed", user.ID, "account", source, SubscriptionChangedData{
		UserID:    user.ID,
		OldTier:   oldTier,
		NewTier:   user.Tier,
		ChangedAt: user.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, TopicSubscriptionChanged, evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx)))
}

// ScanCompleted publishes a completed scan event.
func (p *Producer) ScanCompleted(ctx context.Context, data ScanCompletedData) error {
	evt, err := kafka.NewEvent("scan.completed", data.ScanID, "scan", source, data)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, TopicScanCompleted, evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx)))
}
