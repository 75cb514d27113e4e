// Package repository defines the persistence interfaces for the service.
// Implementations live in subpackages (postgres for production, memory
// for tests and local development).
package repository

import (
	"context"
	"time"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error

	// UpdateUsage conditionally writes the usage counter and period
	// start. The write applies only if the row still holds the expected
	// values; otherwise it returns errors.ErrConflict so the caller can
	// re-read and retry.
	UpdateUsage(ctx context.Context, id string, expectedCount int, expectedStart time.Time, newCount int, newStart time.Time) error

	Delete(ctx context.Context, id string) error
}

// RefreshTokenRepository defines persistence operations for refresh
// token records. Only token hashes are ever stored.
type RefreshTokenRepository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error

	// DeleteExpired removes tokens past their expiry and returns how
	// many rows were deleted. Run periodically by the janitor.
	DeleteExpired(ctx context.Context) (int64, error)
}
