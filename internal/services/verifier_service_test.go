package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad_backend/internal/services/dto"
	"launchpad_backend/pkg/apperrors"
)

func TestVerify_SameNotFoundForUnknownMalformedRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rejected := submitPending(t, env, "r@x.com")
	_, err := env.lifecycle.Reject(ctx, rejected.ID, "admin-1", "unverifiable")
	require.NoError(t, err)

	for name, code := range map[string]string{
		"unknown":       uuid.NewString(),
		"malformed":     "not-a-ticket",
		"empty":         "",
		"rejected":      rejected.ID,
		"rejected code": rejected.Code(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.verifier.Verify(ctx, code, nil)
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrTicketNotFound.Message, appErr.Message)
			assert.Equal(t, 404, appErr.HTTPCode)
		})
	}
}

func TestVerify_ClaimsMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pending := submitPending(t, env, "a@x.com")
	issued, err := env.lifecycle.Approve(ctx, pending.ID, "admin-1")
	require.NoError(t, err)

	view, err := env.verifier.Verify(ctx, issued.Code(), &dto.VerifyQuery{Name: "Someone Else", Plan: "Pro"})
	require.NoError(t, err)
	require.NotNil(t, view.ClaimsMatch)
	assert.False(t, *view.ClaimsMatch)
	assert.Equal(t, "Amina Otieno", view.Holder)
}

func TestVerify_IsReadOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pending := submitPending(t, env, "a@x.com")
	issued, err := env.lifecycle.Approve(ctx, pending.ID, "admin-1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		view, err := env.verifier.Verify(ctx, issued.Code(), nil)
		require.NoError(t, err)
		assert.Nil(t, view.CheckedInAt)
		assert.Nil(t, view.ClaimsMatch)
	}
}

func TestQRImage(t *testing.T) {
	env := newTestEnv(t)
	pending := submitPending(t, env, "a@x.com")

	png, err := env.verifier.QRImage(context.Background(), pending.Code())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
