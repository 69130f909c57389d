package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad_backend/internal/models"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue("admin-1", models.AdminRoleAdmin)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.AdminRoleAdmin, claims.Role)
}

func TestTokenIssuer_RejectsForeignAndExpired(t *testing.T) {
	token, err := NewTokenIssuer("other-secret", time.Hour).Issue("admin-1", models.AdminRoleAdmin)
	require.NoError(t, err)
	_, err = NewTokenIssuer("test-secret", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewTokenIssuer("test-secret", -time.Minute).Issue("admin-1", models.AdminRoleAdmin)
	require.NoError(t, err)
	_, err = NewTokenIssuer("test-secret", time.Hour).Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("correct horse battery", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(models.AdminRoleDoor, PermTicketsCheckIn))
	assert.False(t, HasPermission(models.AdminRoleDoor, PermTicketsModerate))
	assert.True(t, HasPermission(models.AdminRoleAdmin, PermTicketsModerate))
}
