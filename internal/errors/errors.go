package errors

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable, client-visible identifier of a failure.
type ErrorCode string

const (
	// Identity
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeNotAuthenticated ErrorCode = "NOT_AUTHENTICATED"
	ErrCodeInvalidState     ErrorCode = "INVALID_OAUTH_STATE"
	ErrCodeUnverifiedEmail  ErrorCode = "EMAIL_NOT_VERIFIED"
	ErrCodeEmailDomain      ErrorCode = "EMAIL_DOMAIN_NOT_ALLOWED"
	ErrCodeNotAdmin         ErrorCode = "NOT_ADMIN"
	ErrCodeCSRF             ErrorCode = "CSRF_REJECTED"

	// Request shape
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"
	ErrCodeBodyTooLarge    ErrorCode = "BODY_TOO_LARGE"

	// Records
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Votes, topics and the admin roster
	ErrCodeVoteInFlight   ErrorCode = "VOTE_IN_FLIGHT"
	ErrCodeAlreadyVoted   ErrorCode = "ALREADY_VOTED"
	ErrCodeTopicConverted ErrorCode = "TOPIC_CONVERTED"
	ErrCodeSelfRemoval    ErrorCode = "SELF_REMOVAL"

	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	ErrCodeExternal ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// AppError carries a code and a message safe to show to the signed-in user.
// The cause stays server-side.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

func (e *AppError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, cause: cause}
}

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func NotAuthenticated() *AppError {
	return New(ErrCodeNotAuthenticated, "Sign in required")
}

func InvalidState() *AppError {
	return New(ErrCodeInvalidState, "Sign-in link is invalid or has expired")
}

func UnverifiedEmail() *AppError {
	return New(ErrCodeUnverifiedEmail, "Google account email is not verified")
}

func EmailDomainNotAllowed(domain string) *AppError {
	return New(ErrCodeEmailDomain, fmt.Sprintf("Only @%s accounts may sign in", domain))
}

func NotAdmin() *AppError {
	return New(ErrCodeNotAdmin, "Admin access required")
}

func CSRFRejected(message string) *AppError {
	return New(ErrCodeCSRF, message)
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func BodyTooLarge(limit int64) *AppError {
	return New(ErrCodeBodyTooLarge, fmt.Sprintf("Request body exceeds %d bytes", limit))
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func AlreadyExists(resource string) *AppError {
	return New(ErrCodeAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func VoteInFlight() *AppError {
	return New(ErrCodeVoteInFlight, "A vote on this topic is already being processed")
}

func AlreadyVoted() *AppError {
	return New(ErrCodeAlreadyVoted, "You have already voted for this topic")
}

func TopicConverted() *AppError {
	return New(ErrCodeTopicConverted, "Topic has already been converted to a session")
}

func SelfRemoval() *AppError {
	return New(ErrCodeSelfRemoval, "You cannot remove yourself as an admin")
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Too many requests, slow down")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("%s is unavailable", service), cause)
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the code of the first AppError in err's chain, or
// ErrCodeInternal when there is none.
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries code.
func Is(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
