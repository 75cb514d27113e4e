package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
	apperrors "github.com/jteerlink/SymptomSentinelAI-sub001/pkg/errors"
)

var userCols = []string{"id", "email", "password_hash", "display_name", "subscription_tier", "scan_count", "scan_period_start", "created_at", "updated_at"}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func sampleUser() *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:              "u-1",
		Email:           "pat@example.com",
		PasswordHash:    "$2a$12$hash",
		DisplayName:     "Pat",
		Tier:            domain.TierFree,
		ScanCount:       2,
		ScanPeriodStart: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestUserRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)
	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Email, u.PasswordHash, u.DisplayName, u.Tier, u.ScanCount, u.ScanPeriodStart, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), u))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)
	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Email, u.PasswordHash, u.DisplayName, u.Tier, u.ScanCount, u.ScanPeriodStart, u.CreatedAt, u.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := repo.Create(context.Background(), u)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestUserRepository_GetByID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)
	u := sampleUser()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(u.ID).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(u.ID, u.Email, u.PasswordHash, u.DisplayName, u.Tier, u.ScanCount, u.ScanPeriodStart, u.CreatedAt, u.UpdatedAt))

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.ScanCount, got.ScanCount)
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(userCols))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_GetByEmail(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)
	u := sampleUser()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE lower\\(email\\)").
		WithArgs(u.Email).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(u.ID, u.Email, u.PasswordHash, u.DisplayName, u.Tier, u.ScanCount, u.ScanPeriodStart, u.CreatedAt, u.UpdatedAt))

	got, err := repo.GetByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestUserRepository_UpdateUsage(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)
	start := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE users").
		WithArgs(3, start, pgxmock.AnyArg(), "u-1", 2, start).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateUsage(context.Background(), "u-1", 2, start, 3, start)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateUsageConflict(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)
	start := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)

	// Another writer already advanced the count, so the guard matches
	// no rows.
	mock.ExpectExec("UPDATE users").
		WithArgs(3, start, pgxmock.AnyArg(), "u-1", 2, start).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateUsage(context.Background(), "u-1", 2, start, 3, start)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUserRepository_Update(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)
	u := sampleUser()

	mock.ExpectExec("UPDATE users").
		WithArgs(u.Email, u.PasswordHash, u.DisplayName, u.Tier, u.UpdatedAt, u.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Update(context.Background(), u))
}

func TestUserRepository_DeleteNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)

	mock.ExpectExec("DELETE FROM users").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
