package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/arbiter-backend/internal/models"
	"github.com/ignatzorin/arbiter-backend/internal/pkg/apperror"
	"github.com/ignatzorin/arbiter-backend/internal/repository"
)

type mockAuthUsers struct {
	mock.Mock
}

func (m *mockAuthUsers) Create(ctx context.Context, u *models.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockAuthUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func testTokenManager() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
}

func TestAuthService_Register_Success(t *testing.T) {
	users := new(mockAuthUsers)
	svc := NewAuthService(users, testTokenManager())
	ctx := context.Background()

	users.On("GetByEmail", ctx, "alex@example.com").Return(nil, repository.ErrUserNotFound)
	users.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "alex@example.com" && u.Tier == models.TierFree && u.PasswordHash != ""
	})).Return(nil)

	user, pair, err := svc.Register(ctx, "alex@example.com", "alex", "safe-password")

	assert.NoError(t, err)
	assert.Equal(t, "alex", user.Username)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	users.AssertExpectations(t)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	users := new(mockAuthUsers)
	svc := NewAuthService(users, testTokenManager())
	ctx := context.Background()

	users.On("GetByEmail", ctx, "alex@example.com").Return(&models.User{ID: uuid.New()}, nil)

	_, _, err := svc.Register(ctx, "alex@example.com", "alex", "safe-password")

	assert.Error(t, err)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Register_InvalidInput(t *testing.T) {
	users := new(mockAuthUsers)
	svc := NewAuthService(users, testTokenManager())
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "not-an-email", "alex", "safe-password")
	assert.True(t, apperror.IsValidation(err))

	_, _, err = svc.Register(ctx, "alex@example.com", "al", "safe-password")
	assert.True(t, apperror.IsValidation(err))

	_, _, err = svc.Register(ctx, "alex@example.com", "alex", "short")
	assert.True(t, apperror.IsValidation(err))
}

func TestAuthService_Login_Success(t *testing.T) {
	users := new(mockAuthUsers)
	svc := NewAuthService(users, testTokenManager())
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("safe-password"), bcrypt.MinCost)
	users.On("GetByEmail", ctx, "alex@example.com").Return(&models.User{
		ID: uuid.New(), Email: "alex@example.com", PasswordHash: string(hash),
	}, nil)

	user, pair, err := svc.Login(ctx, "alex@example.com", "safe-password")

	assert.NoError(t, err)
	assert.Equal(t, "alex@example.com", user.Email)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	users := new(mockAuthUsers)
	svc := NewAuthService(users, testTokenManager())
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("safe-password"), bcrypt.MinCost)
	users.On("GetByEmail", ctx, "alex@example.com").Return(&models.User{
		ID: uuid.New(), PasswordHash: string(hash),
	}, nil)

	_, _, err := svc.Login(ctx, "alex@example.com", "wrong-password")

	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	users := new(mockAuthUsers)
	svc := NewAuthService(users, testTokenManager())
	ctx := context.Background()

	users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrUserNotFound)

	_, _, err := svc.Login(ctx, "ghost@example.com", "safe-password")

	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Refresh_RoundTrip(t *testing.T) {
	users := new(mockAuthUsers)
	tm := testTokenManager()
	svc := NewAuthService(users, tm)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "alex@example.com"}
	pair, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	users.On("GetByID", ctx, user.ID).Return(user, nil)

	refreshed, err := svc.Refresh(ctx, pair.RefreshToken)

	assert.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestAuthService_Refresh_AccessTokenRejected(t *testing.T) {
	users := new(mockAuthUsers)
	tm := testTokenManager()
	svc := NewAuthService(users, tm)
	ctx := context.Background()

	pair, err := tm.GeneratePair(&models.User{ID: uuid.New()})
	assert.NoError(t, err)

	// Access токен подписан другим секретом и не годится как refresh.
	_, err = svc.Refresh(ctx, pair.AccessToken)

	assert.Error(t, err)
}
