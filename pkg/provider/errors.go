package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway failure.
type Kind int

const (
	// KindUnexpected is any fault not classified below.
	KindUnexpected Kind = iota

	// KindParameter is an empty, malformed or semantically invalid argument.
	KindParameter

	// KindExternalAPI is a non-success provider status or an unusable success payload.
	KindExternalAPI

	// KindTransientNetwork is a connection failure or timeout that outlived the retries.
	KindTransientNetwork
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindParameter:
		return "parameter"
	case KindExternalAPI:
		return "external_api"
	case KindTransientNetwork:
		return "transient_network"
	default:
		return "unexpected"
	}
}

// Diagnostic codes carried by Error.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnreachable   = "PROVIDER_UNREACHABLE"
	CodeGateway       = "EXTERNAL_API_ERROR"
	CodeJourneySearch = "JOURNEY_SEARCH_ERROR"
)

// Error is the single error type crossing the gateway boundary.
type Error struct {
	Kind       Kind
	StatusCode int
	Code       string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s error (status %d, %s): %s: %v",
			e.Kind, e.StatusCode, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("provider %s error (status %d, %s): %s",
		e.Kind, e.StatusCode, e.Code, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// External reports whether the failure came from talking to the provider.
func (e *Error) External() bool {
	return e.Kind == KindExternalAPI || e.Kind == KindTransientNetwork
}

func paramError(message string) *Error {
	return &Error{
		Kind:       KindParameter,
		StatusCode: http.StatusBadRequest,
		Code:       CodeValidation,
		Message:    message,
	}
}

func externalError(statusCode int, message string) *Error {
	return &Error{
		Kind:       KindExternalAPI,
		StatusCode: statusCode,
		Code:       fmt.Sprintf("EXTERNAL_API_%d", statusCode),
		Message:    message,
	}
}

func transientError(err error) *Error {
	return &Error{
		Kind:       KindTransientNetwork,
		StatusCode: http.StatusBadGateway,
		Code:       CodeUnreachable,
		Message:    "provider unreachable",
		Err:        err,
	}
}

// WrapUnexpected returns err unchanged when it already carries an *Error and
// wraps it into a KindUnexpected error with the given code otherwise.
func WrapUnexpected(err error, code, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}
	return &Error{
		Kind:       KindUnexpected,
		StatusCode: http.StatusInternalServerError,
		Code:       code,
		Message:    message,
		Err:        err,
	}
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

// HTTPStatus maps err to the status code an HTTP layer should answer with.
func HTTPStatus(err error) int {
	e, ok := AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindParameter:
		return http.StatusBadRequest
	case KindExternalAPI:
		if e.StatusCode >= 400 {
			return e.StatusCode
		}
		return http.StatusBadGateway
	case KindTransientNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
