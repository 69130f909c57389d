package services

import (
	"context"
	"errors"

	"launchpad_backend/internal/gateway/pesapal"
	"launchpad_backend/internal/validator"
	"launchpad_backend/pkg/apperrors"
)

// gatewayError translates gateway failures into the API error taxonomy.
func gatewayError(err error) error {
	var rejected *pesapal.RejectedError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pesapal.ErrAuth):
		return apperrors.ErrGatewayAuth.WithError(err)
	case errors.Is(err, pesapal.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return apperrors.ErrGatewayUnavailable.WithError(err)
	case errors.As(err, &rejected):
		return apperrors.ErrGatewayRejected(rejected.Message).WithError(err)
	case errors.Is(err, context.Canceled):
		return apperrors.ErrGatewayUnavailable.WithError(err)
	default:
		return apperrors.InternalError(err)
	}
}

// validationError converts validator output into an AppError.
func validationError(err error) error {
	var vErr *validator.ValidationError
	if errors.As(err, &vErr) {
		return apperrors.ValidationError(vErr.Errors)
	}
	return apperrors.InternalError(err)
}
