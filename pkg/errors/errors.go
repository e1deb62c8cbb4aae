package errors

import (
	stdErrors "errors"
	"net/http"
)

// Code is the stable machine-readable error code returned to clients.
type Code string

const (
	CodeValidation  Code = "VALIDATION_ERROR"
	CodeNotFound    Code = "NOT_FOUND"
	CodeIdempotency Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit   Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal    Code = "INTERNAL_ERROR"
	CodeStorage     Code = "STORAGE_ERROR"
	CodeProvider    Code = "PROVIDER_ERROR"
	CodeDependency  Code = "DEPENDENCY_ERROR"
)

// Metadata controls how a code is rendered over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

func rejected(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, DetailsAllowed: details}
}

func failed(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, DetailsAllowed: details, Retryable: true}
}

// Storage and provider failures share the generic 500 so driver and
// upstream detail never reaches the client.
var metadataByCode = map[Code]Metadata{
	CodeValidation:  rejected(http.StatusBadRequest, "validation failed", true),
	CodeNotFound:    rejected(http.StatusNotFound, "resource not found", false),
	CodeIdempotency: rejected(http.StatusConflict, "idempotency key reused", true),
	CodeRateLimit:   rejected(http.StatusTooManyRequests, "rate limit exceeded", false),
	CodeInternal:    failed(http.StatusInternalServerError, "internal server error", false),
	CodeStorage:     failed(http.StatusInternalServerError, "internal server error", false),
	CodeProvider:    failed(http.StatusInternalServerError, "internal server error", false),
	CodeDependency:  failed(http.StatusServiceUnavailable, "dependency unavailable", true),
}

// MetadataFor falls back to the internal error rendering for unknown codes.
func MetadataFor(code Code) Metadata {
	meta, ok := metadataByCode[code]
	if !ok {
		return metadataByCode[CodeInternal]
	}
	return meta
}

// IsClientError reports whether the code maps to a 4xx response.
func IsClientError(code Code) bool {
	return MetadataFor(code).HTTPStatus/100 == 4
}

// Error is a coded error with an optional client-visible details payload.
// All methods are safe on a nil receiver.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err == nil || !stdErrors.As(err, &typed) {
		return nil
	}
	return typed
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
