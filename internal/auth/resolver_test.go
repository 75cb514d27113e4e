package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jteerlink/SymptomSentinelAI-sub001/internal/domain"
	apperrors "github.com/jteerlink/SymptomSentinelAI-sub001/pkg/errors"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockTokenStore struct {
	mock.Mock
}

func (m *mockTokenStore) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *mockTokenStore) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockTokenStore) Revoke(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockTokenStore) RevokeAllForUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type resolverFixture struct {
	resolver *Resolver
	codec    *JWTManager
	users    *mockUserStore
	tokens   *mockTokenStore
}

func newResolverFixture() *resolverFixture {
	codec := NewJWTManager(testSecret, time.Hour, 7*24*time.Hour)
	users := &mockUserStore{}
	tokens := &mockTokenStore{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	issuer := NewIssuer(codec, tokens)
	refresher := NewRefresher(codec, issuer, users, tokens, 3*time.Second, log)
	resolver := NewResolver(codec, users, refresher, 3*time.Second, log)

	return &resolverFixture{resolver: resolver, codec: codec, users: users, tokens: tokens}
}

// expiredAccessToken mints an access token whose expiry is already past.
func (f *resolverFixture) expiredAccessToken(t *testing.T, user *domain.User) string {
	t.Helper()
	f.codec.nowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := f.codec.GenerateAccessToken(user)
	require.NoError(t, err)
	f.codec.nowFunc = time.Now
	return token
}

func TestResolver_ValidToken(t *testing.T) {
	f := newResolverFixture()
	user := testUser()

	token, _, err := f.codec.GenerateAccessToken(user)
	require.NoError(t, err)

	// The store is the source of truth; a tier change after issuance
	// must be visible immediately.
	stored := *user
	stored.Tier = domain.TierPremium
	f.users.On("GetByID", mock.Anything, user.ID).Return(&stored, nil)

	session, err := f.resolver.Resolve(context.Background(), Credentials{AccessToken: token})
	require.NoError(t, err)
	assert.Equal(t, domain.TierPremium, session.User.Tier)
	assert.Nil(t, session.RotatedPair)
	f.users.AssertExpectations(t)
}

func TestResolver_NoCredential(t *testing.T) {
	f := newResolverFixture()

	_, err := f.resolver.Resolve(context.Background(), Credentials{})
	assert.ErrorIs(t, err, ErrNoCredential)
	f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestResolver_MalformedToken(t *testing.T) {
	f := newResolverFixture()

	_, err := f.resolver.Resolve(context.Background(), Credentials{AccessToken: "garbage"})
	assert.ErrorIs(t, err, ErrTokenInvalid)
	f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestResolver_ExpiredWithoutRefresh(t *testing.T) {
	f := newResolverFixture()
	user := testUser()

	_, err := f.resolver.Resolve(context.Background(), Credentials{
		AccessToken: f.expiredAccessToken(t, user),
	})
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestResolver_ExpiredWithRefreshRotates(t *testing.T) {
	f := newResolverFixture()
	user := testUser()
	expired := f.expiredAccessToken(t, user)

	refreshToken, refreshExpiry, err := f.codec.GenerateRefreshToken(user.ID)
	require.NoError(t, err)
	oldHash := HashToken(refreshToken)

	f.tokens.On("GetByHash", mock.Anything, oldHash).Return(&domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: oldHash,
		ExpiresAt: refreshExpiry,
	}, nil)
	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.tokens.On("Revoke", mock.Anything, oldHash).Return(nil)
	f.tokens.On("Create", mock.Anything, user.ID, mock.Anything, mock.Anything).Return(nil)

	session, err := f.resolver.Resolve(context.Background(), Credentials{
		AccessToken:  expired,
		RefreshToken: refreshToken,
	})
	require.NoError(t, err)
	require.NotNil(t, session.RotatedPair)
	assert.Equal(t, user.ID, session.User.ID)

	// The rotated pair shares no material with the old credentials.
	assert.NotEqual(t, expired, session.RotatedPair.AccessToken)
	assert.NotEqual(t, refreshToken, session.RotatedPair.RefreshToken)

	// The new access token is immediately usable.
	claims, err := f.codec.ValidateAccessToken(session.RotatedPair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	f.tokens.AssertExpectations(t)
}

func TestResolver_ExpiredWithRevokedRefresh(t *testing.T) {
	f := newResolverFixture()
	user := testUser()

	refreshToken, refreshExpiry, err := f.codec.GenerateRefreshToken(user.ID)
	require.NoError(t, err)
	revokedAt := time.Now().Add(-time.Minute)

	f.tokens.On("GetByHash", mock.Anything, HashToken(refreshToken)).Return(&domain.RefreshToken{
		UserID:    user.ID,
		ExpiresAt: refreshExpiry,
		RevokedAt: &revokedAt,
	}, nil)

	_, err = f.resolver.Resolve(context.Background(), Credentials{
		AccessToken:  f.expiredAccessToken(t, user),
		RefreshToken: refreshToken,
	})
	assert.ErrorIs(t, err, ErrRefreshInvalid)
	f.tokens.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
}

func TestResolver_ExpiredWithUnknownRefresh(t *testing.T) {
	f := newResolverFixture()
	user := testUser()

	refreshToken, _, err := f.codec.GenerateRefreshToken(user.ID)
	require.NoError(t, err)

	f.tokens.On("GetByHash", mock.Anything, HashToken(refreshToken)).
		Return(nil, apperrors.ErrNotFound)

	_, err = f.resolver.Resolve(context.Background(), Credentials{
		AccessToken:  f.expiredAccessToken(t, user),
		RefreshToken: refreshToken,
	})
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestResolver_ExpiredWithMalformedRefresh(t *testing.T) {
	f := newResolverFixture()
	user := testUser()

	_, err := f.resolver.Resolve(context.Background(), Credentials{
		AccessToken:  f.expiredAccessToken(t, user),
		RefreshToken: "not-a-token",
	})
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestResolver_RefreshForDeletedUser(t *testing.T) {
	f := newResolverFixture()
	user := testUser()

	refreshToken, refreshExpiry, err := f.codec.GenerateRefreshToken(user.ID)
	require.NoError(t, err)

	f.tokens.On("GetByHash", mock.Anything, HashToken(refreshToken)).Return(&domain.RefreshToken{
		UserID:    user.ID,
		ExpiresAt: refreshExpiry,
	}, nil)
	f.users.On("GetByID", mock.Anything, user.ID).Return(nil, apperrors.ErrNotFound)

	_, err = f.resolver.Resolve(context.Background(), Credentials{
		AccessToken:  f.expiredAccessToken(t, user),
		RefreshToken: refreshToken,
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestResolver_ValidTokenDeletedUser(t *testing.T) {
	f := newResolverFixture()
	user := testUser()

	token, _, err := f.codec.GenerateAccessToken(user)
	require.NoError(t, err)

	f.users.On("GetByID", mock.Anything, user.ID).Return(nil, apperrors.ErrNotFound)

	_, err = f.resolver.Resolve(context.Background(), Credentials{AccessToken: token})
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestResolver_StoreFailureFailsClosed(t *testing.T) {
	f := newResolverFixture()
	user := testUser()

	token, _, err := f.codec.GenerateAccessToken(user)
	require.NoError(t, err)

	f.users.On("GetByID", mock.Anything, user.ID).
		Return(nil, errors.New("connection refused"))

	_, err = f.resolver.Resolve(context.Background(), Credentials{AccessToken: token})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRefresher_ExpiredStoredToken(t *testing.T) {
	f := newResolverFixture()
	user := testUser()

	refreshToken, _, err := f.codec.GenerateRefreshToken(user.ID)
	require.NoError(t, err)

	// JWT still valid but the stored record says otherwise, for example
	// after an operator shortened session lifetimes.
	f.tokens.On("GetByHash", mock.Anything, HashToken(refreshToken)).Return(&domain.RefreshToken{
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Hour),
	}, nil)

	refresher := NewRefresher(f.codec, NewIssuer(f.codec, f.tokens), f.users, f.tokens,
		3*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, _, err = refresher.Refresh(context.Background(), refreshToken)
	assert.ErrorIs(t, err, ErrRefreshExpired)
}
