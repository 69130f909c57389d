package apperrors

// ErrorCode - machine-readable error code returned to clients
type ErrorCode string

// Generic codes
const (
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"

	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
)

// Payment & ticketing codes
const (
	CodePriceMismatch       ErrorCode = "PRICE_MISMATCH"
	CodeGatewayRejected     ErrorCode = "GATEWAY_REJECTED"
	CodeGatewayUnavailable  ErrorCode = "GATEWAY_UNAVAILABLE"
	CodeGatewayAuthFailed   ErrorCode = "GATEWAY_AUTH_FAILED"
	CodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	CodeAlreadyCheckedIn    ErrorCode = "ALREADY_CHECKED_IN"
	CodeDuplicateSubmission ErrorCode = "DUPLICATE_SUBMISSION"
)
