// Package faults defines the typed failures that cross package boundaries
// and their mapping onto HTTP status codes.
package faults

import (
	"errors"
	"net/http"
)

// Kind is the machine-readable failure category.
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindNoData              Kind = "no_data"
	KindGenerationFatal     Kind = "generation_fatal"
	KindGenerationExhausted Kind = "api_error"
	KindConfiguration       Kind = "configuration_error"
	KindInternal            Kind = "internal_error"
)

// Generation sub-kinds.
const (
	SubKindModel          = "model_error"
	SubKindAuthentication = "authentication_error"
	SubKindQuota          = "quota_error"
	SubKindSafety         = "safety_error"
)

// Error is a classified failure. Message is safe to show to a user; Err
// keeps the underlying cause for logs.
type Error struct {
	Kind       Kind
	SubKind    string
	Message    string
	Detail     string
	Hint       string
	RetryCount int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Type returns the sub-kind when set, otherwise the kind.
func (e *Error) Type() string {
	if e.SubKind != "" {
		return e.SubKind
	}
	return string(e.Kind)
}

// Validation reports bad or missing caller input.
func Validation(message, hint string) *Error {
	return &Error{Kind: KindValidation, Message: message, Hint: hint}
}

// NoData reports that no requested fiscal year produced data.
func NoData(message, hint string) *Error {
	return &Error{Kind: KindNoData, Message: message, Hint: hint}
}

// Configuration reports a missing credential or setting.
func Configuration(message, hint string) *Error {
	return &Error{Kind: KindConfiguration, Message: message, Hint: hint}
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	fe, ok := As(err)
	return ok && fe.Kind == kind
}

// StatusCode maps err to the HTTP status the API answers with.
func StatusCode(err error) int {
	fe, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch fe.Kind {
	case KindValidation, KindNoData:
		return http.StatusBadRequest
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	case KindGenerationFatal:
		switch fe.SubKind {
		case SubKindAuthentication:
			return http.StatusUnauthorized
		case SubKindQuota:
			return http.StatusTooManyRequests
		case SubKindSafety:
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
