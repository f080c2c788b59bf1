package commonerrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCategory string

const (
	CategoryValidation   ErrorCategory = "VALIDATION"
	CategoryAuth         ErrorCategory = "AUTH"
	CategoryNotFound     ErrorCategory = "NOT_FOUND"
	CategoryConflict     ErrorCategory = "CONFLICT"
	CategoryUnauthorized ErrorCategory = "UNAUTHORIZED"
	CategoryForbidden    ErrorCategory = "FORBIDDEN"
	CategoryInternal     ErrorCategory = "INTERNAL"
	CategoryThrottled    ErrorCategory = "THROTTLED"
)

type DomainError interface {
	error
	Code() string
	Category() ErrorCategory
	HTTPStatus() int
	Message() string
	TraceID() string
	Unwrap() error
	WithCause(cause error) DomainError
	WithTraceID(traceID string) DomainError
}

type domainError struct {
	code     string
	category ErrorCategory
	status   int
	message  string
	traceID  string
	cause    error
}

func (e *domainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *domainError) Code() string {
	return e.code
}

func (e *domainError) Category() ErrorCategory {
	return e.category
}

func (e *domainError) HTTPStatus() int {
	return e.status
}

func (e *domainError) Message() string {
	return e.message
}

func (e *domainError) TraceID() string {
	return e.traceID
}

func (e *domainError) Unwrap() error {
	return e.cause
}

func (e *domainError) WithCause(cause error) DomainError {
	clone := *e
	clone.cause = cause
	return &clone
}

func (e *domainError) WithTraceID(traceID string) DomainError {
	clone := *e
	clone.traceID = traceID
	return &clone
}

// Is lets errors.Is match a derived error (WithCause/WithTraceID clone)
// against its sentinel.
func (e *domainError) Is(target error) bool {
	other, ok := target.(*domainError)
	if !ok {
		return false
	}
	return e.code == other.code
}

func NewDomainError(code string, category ErrorCategory, status int, message string) DomainError {
	return &domainError{
		code:     code,
		category: category,
		status:   status,
		message:  message,
	}
}

func IsDomainError(err error) bool {
	var de DomainError
	return errors.As(err, &de)
}

func AsDomainError(err error) (DomainError, bool) {
	var de DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

var (
	// ErrUnauthenticated covers every place an identity is required and none
	// was resolved.
	ErrUnauthenticated = NewDomainError(
		"UNAUTHENTICATED",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"authentication required",
	)

	// ErrForbidden means an identity was present but holds no membership for
	// the requested board. Distinct from ErrUnauthenticated on purpose.
	ErrForbidden = NewDomainError(
		"FORBIDDEN",
		CategoryForbidden,
		http.StatusForbidden,
		"no access to this board",
	)

	ErrInvalidToken = NewDomainError(
		"INVALID_TOKEN",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"token is not valid",
	)

	ErrInvalidCredentials = NewDomainError(
		"INVALID_CREDENTIALS",
		CategoryAuth,
		http.StatusUnauthorized,
		"invalid email or password",
	)

	ErrMissingBoardID = NewDomainError(
		"MISSING_BOARD_ID",
		CategoryValidation,
		http.StatusBadRequest,
		"missing board id header",
	)

	ErrInvalidBoardID = NewDomainError(
		"INVALID_BOARD_ID",
		CategoryValidation,
		http.StatusBadRequest,
		"board id must be an integer",
	)

	ErrBadRequest = NewDomainError(
		"BAD_REQUEST",
		CategoryValidation,
		http.StatusBadRequest,
		"malformed request",
	)

	ErrValidation = NewDomainError(
		"VALIDATION_FAILED",
		CategoryValidation,
		http.StatusBadRequest,
		"validation failed",
	)

	// ErrMultipleResults is the repository invariant violation: a predicate
	// the caller promised was unique matched more than one row.
	ErrMultipleResults = NewDomainError(
		"MULTIPLE_RESULTS",
		CategoryInternal,
		http.StatusInternalServerError,
		"predicate matched more than one row",
	)

	ErrPersistence = NewDomainError(
		"PERSISTENCE_ERROR",
		CategoryInternal,
		http.StatusInternalServerError,
		"persistence operation failed",
	)

	ErrNotFound = NewDomainError(
		"NOT_FOUND",
		CategoryNotFound,
		http.StatusNotFound,
		"resource not found",
	)

	ErrEmailTaken = NewDomainError(
		"EMAIL_TAKEN",
		CategoryConflict,
		http.StatusConflict,
		"email already registered",
	)

	ErrMemberExists = NewDomainError(
		"MEMBER_EXISTS",
		CategoryConflict,
		http.StatusConflict,
		"user is already a board member",
	)

	ErrRateLimited = NewDomainError(
		"RATE_LIMITED",
		CategoryThrottled,
		http.StatusTooManyRequests,
		"rate limit exceeded",
	)

	ErrInternal = NewDomainError(
		"INTERNAL_ERROR",
		CategoryInternal,
		http.StatusInternalServerError,
		"internal server error",
	)
)
