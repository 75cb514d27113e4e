// Package service contains the business logic for accounts and scans.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/auth"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/repository"
	apperrors "github.com/jteerlink/SymptomSentinelAI-sub001/pkg/errors"
	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/logger"
)

const bcryptCost = 12

// AccountEvents is the slice of domain events the user service emits.
// Satisfied by event.Producer.
type AccountEvents interface {
	AccountRegistered(ctx context.Context, user *domain.User) error
	SubscriptionChanged(ctx context.Context, user *domain.User, oldTier domain.SubscriptionTier) error
}

// UserService implements account lifecycle operations.
type UserService struct {
	users     repository.UserRepository
	tokens    repository.RefreshTokenRepository
	issuer    *auth.Issuer
	refresher *auth.Refresher
	events    AccountEvents
	log       *slog.Logger
	nowFunc   func() time.Time
}

// NewUserService creates the account service.
func NewUserService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	issuer *auth.Issuer,
	refresher *auth.Refresher,
	events AccountEvents,
	log *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		tokens:    tokens,
		issuer:    issuer,
		refresher: refresher,
		events:    events,
		log:       log,
		nowFunc:   time.Now,
	}
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

// Register creates a new free-tier account and signs it in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, *domain.TokenPair, error) {
	log := logger.WithContext(ctx, s.log)

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validatePassword(in.Password); err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, nil, apperrors.Internal(fmt.Errorf("hashing password: %w", err))
	}

	now := s.nowFunc().UTC()
	user := &domain.User{
		ID:              uuid.New().String(),
		Email:           email,
		PasswordHash:    string(hash),
		DisplayName:     strings.TrimSpace(in.DisplayName),
		Tier:            domain.TierFree,
		ScanCount:       0,
		ScanPeriodStart: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, nil, apperrors.AlreadyExists("user", "email", email)
		}
		return nil, nil, apperrors.Internal(err)
	}

	pair, err := s.issuer.IssuePair(ctx, user)
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}

	if err := s.events.AccountRegistered(ctx, user); err != nil {
		// Event delivery is best-effort; registration already succeeded.
		log.Error("publishing account.registered", slog.String("error", err.Error()))
	}

	log.Info("user registered", slog.String("user_id", user.ID))
	return user, pair, nil
}

// Login verifies credentials and issues a token pair. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	log := logger.WithContext(ctx, s.log)

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, nil, apperrors.Internal(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		log.Warn("failed login attempt", slog.String("user_id", user.ID))
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	pair, err := s.issuer.IssuePair(ctx, user)
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}

	log.Info("user logged in", slog.String("user_id", user.ID))
	return user, pair, nil
}

// Refresh exchanges a refresh token for a new pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *domain.TokenPair, error) {
	pair, user, err := s.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout revokes the presented refresh token. Revoking an unknown or
// already-revoked token is not an error.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, auth.HashToken(refreshToken)); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.Internal(err)
	}
	return nil
}

// GetProfile returns the user's account record.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

// UpdateProfileInput carries optional profile changes. Nil fields are
// left untouched.
type UpdateProfileInput struct {
	DisplayName *string
	Email       *string
}

// UpdateProfile applies profile changes and returns the updated user.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	user.UpdatedAt = s.nowFunc().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.AlreadyExists("user", "email", user.Email)
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

// ChangePassword verifies the current password, stores the new hash,
// and revokes every outstanding refresh token for the user.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("hashing password: %w", err))
	}

	user.PasswordHash = string(hash)
	user.UpdatedAt = s.nowFunc().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.Internal(err)
	}

	// Existing sessions die with the old password.
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return apperrors.Internal(err)
	}

	logger.WithContext(ctx, s.log).Info("password changed", slog.String("user_id", userID))
	return nil
}

// ChangeSubscription moves the user to a new tier. The usage counter is
// untouched; a mid-month downgrade keeps the month's consumption.
func (s *UserService) ChangeSubscription(ctx context.Context, userID string, tier domain.SubscriptionTier) (*domain.User, error) {
	if !tier.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown subscription tier %q", tier))
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Tier == tier {
		return user, nil
	}

	oldTier := user.Tier
	user.Tier = tier
	user.UpdatedAt = s.nowFunc().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.events.SubscriptionChanged(ctx, user, oldTier); err != nil {
		logger.WithContext(ctx, s.log).Error("publishing account.subscription_changed", slog.String("error", err.Error()))
	}

	logger.WithContext(ctx, s.log).Info("subscription changed",
		slog.String("user_id", userID),
		slog.String("old_tier", string(oldTier)),
		slog.String("new_tier", string(tier)),
	)
	return user, nil
}

// DeleteAccount removes the user and revokes all their sessions.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("user", userID)
		}
		return apperrors.Internal(err)
	}
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// validatePassword enforces the minimum password policy: at least eight
// characters with at least one letter and one digit.
func validatePassword(password string) error {
	if len(password) < 8 {
		return apperrors.InvalidInput("password must be at least 8 characters")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one letter and one digit")
	}
	return nil
}
