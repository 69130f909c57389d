package apperrors

import (
	"net/http"
)

// =========================================================================
// Factories
// =========================================================================

// ErrNotFound wraps a repository miss.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrGatewayRejected carries the gateway's own reason verbatim.
func ErrGatewayRejected(reason string) *AppError {
	return New(CodeGatewayRejected, "payment", reason, http.StatusBadGateway)
}

// =========================================================================
// Predefined errors
// =========================================================================

// --- Payments ---

var ErrPriceMismatch = New(
	CodePriceMismatch,
	"payment",
	"Amount does not match the catalog price for this plan and period",
	http.StatusUnprocessableEntity,
)

var ErrUnknownPlan = New(
	CodeValidationFailed,
	"payment",
	"Unknown plan or period",
	http.StatusBadRequest,
)

var ErrGatewayUnavailable = New(
	CodeGatewayUnavailable,
	"payment",
	"Payment gateway is temporarily unavailable, please retry",
	http.StatusServiceUnavailable,
)

var ErrGatewayAuth = New(
	CodeGatewayAuthFailed,
	"payment",
	"Payment gateway rejected the merchant credentials",
	http.StatusBadGateway,
)

var ErrOrderNotFound = New(
	CodeNotFound,
	"payment",
	"Payment order not found",
	http.StatusNotFound,
)

// --- Tickets ---

// ErrTicketNotFound is also returned for rejected tickets so door staff
// cannot tell a rejected submission from a forged code.
var ErrTicketNotFound = New(
	CodeNotFound,
	"ticket",
	"Ticket not found",
	http.StatusNotFound,
)

var ErrInvalidTransition = New(
	CodeInvalidTransition,
	"ticket",
	"Ticket is not in a state that allows this action",
	http.StatusConflict,
)

var ErrAlreadyCheckedIn = New(
	CodeAlreadyCheckedIn,
	"ticket",
	"Ticket has already been checked in",
	http.StatusConflict,
)

var ErrDuplicateSubmission = New(
	CodeDuplicateSubmission,
	"ticket",
	"A submission for this email, plan and period is already being processed",
	http.StatusConflict,
)

// --- Auth ---

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)
