// Package apperr defines the error kinds surfaced by the draft pipeline.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure so callers can choose retry, fail, or prompt for correction
type Kind string

const (
	KindUnauthenticated      Kind = "unauthenticated"
	KindNotFound             Kind = "not_found"
	KindForbidden            Kind = "forbidden"
	KindInvalidInput         Kind = "invalid_input"
	KindInvalidRecipient     Kind = "invalid_recipient"
	KindConflict             Kind = "already_sent"
	KindConversionOverloaded Kind = "conversion_overloaded"
	KindConversionMalformed  Kind = "conversion_malformed"
	KindDeliveryFailed       Kind = "delivery_failed"
	KindInternal             Kind = "internal"
)

// Error carries a Kind, a user-facing reason, an optional detail and the cause
type Error struct {
	Kind   Kind
	Reason string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates an Error of the given kind
func New(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// WithDetail returns a copy of e carrying detail
func (e *Error) WithDetail(detail string) *Error {
	c := *e
	c.Detail = detail
	return &c
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to its response status
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput, KindInvalidRecipient:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindConversionOverloaded:
		return http.StatusServiceUnavailable
	case KindConversionMalformed, KindDeliveryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
