package domain

import (
	"time"
)

// SubscriptionTier identifies a user's subscription level, which drives
// the monthly scan allowance.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPremium SubscriptionTier = "premium"
)

// Valid reports whether the tier is a known subscription tier.
func (t SubscriptionTier) Valid() bool {
	return t == TierFree || t == TierPremium
}

// User represents a registered user in the system.
//
// ScanCount and ScanPeriodStart together track usage for the current
// calendar-month billing period. They must only ever be written together:
// resetting the count without advancing the period (or vice versa) would
// corrupt quota accounting.
type User struct {
	ID              string           `json:"id"`
	Email           string           `json:"email"`
	PasswordHash    string           `json:"-"`
	DisplayName     string           `json:"display_name"`
	Tier            SubscriptionTier `json:"subscription_tier"`
	ScanCount       int              `json:"scan_count"`
	ScanPeriodStart time.Time        `json:"scan_period_start"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// RefreshToken represents a stored refresh token for a user session.
// Only the SHA-256 hash of the token is persisted.
type RefreshToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// TokenPair holds an access and refresh token issued together.
// A pair always belongs to exactly one user.
type TokenPair struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}
