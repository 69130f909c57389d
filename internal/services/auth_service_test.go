package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad_backend/internal/auth"
	"launchpad_backend/internal/models"
	"launchpad_backend/internal/repositories"
	"launchpad_backend/internal/services/dto"
	"launchpad_backend/internal/testutil"
	"launchpad_backend/internal/validator"
	"launchpad_backend/pkg/apperrors"
)

func newAuthService(t *testing.T) (AuthService, *auth.TokenIssuer) {
	t.Helper()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewAuthService(repositories.NewAdminRepository(testutil.NewDB(t)), tokens, validator.New()), tokens
}

func TestAuthService_LoginIssuesToken(t *testing.T) {
	svc, tokens := newAuthService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureAdmin(ctx, "Admin@Example.com", "long-enough-secret"))

	resp, err := svc.Login(ctx, &dto.LoginRequest{Email: "admin@example.com", Password: "long-enough-secret"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, models.AdminRoleAdmin, resp.Role)
	assert.EqualValues(t, 3600, resp.ExpiresIn)

	claims, err := tokens.Parse(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.AdminRoleAdmin, claims.Role)
}

func TestAuthService_WrongPasswordAndUnknownLookAlike(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "long-enough-secret"))

	_, err := svc.Login(ctx, &dto.LoginRequest{Email: "admin@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthService_EnsureAdminIsIdempotent(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "long-enough-secret"))
	// second start with a different password keeps the existing account
	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "another-long-secret"))

	_, err := svc.Login(ctx, &dto.LoginRequest{Email: "admin@example.com", Password: "long-enough-secret"})
	assert.NoError(t, err)
}

func TestAuthService_EnsureAdminRejectsWeakPassword(t *testing.T) {
	svc, _ := newAuthService(t)
	assert.Error(t, svc.EnsureAdmin(context.Background(), "admin@example.com", "short"))
}
