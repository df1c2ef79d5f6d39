// Package apperr defines the application error taxonomy and its HTTP mapping.
// Services return these errors; the transport layer renders them, so business
// code never deals with status codes directly.
package apperr

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindConflict
	KindRateLimit
)

// Error is the single error type crossing service boundaries.
// RateLimit errors additionally carry remaining-quota metadata.
type Error struct {
	Kind      Kind
	Message   string
	Remaining int
	ResetAt   time.Time
}

func (e *Error) Error() string { return e.Message }

// Validation rejects malformed input. Never partially applied.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Authorization rejects an actor without rights to the resource.
func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// RateLimited reports an exhausted allowance together with what is left
// and when the window resets.
func RateLimited(msg string, remaining int, resetAt time.Time) *Error {
	return &Error{Kind: KindRateLimit, Message: msg, Remaining: remaining, ResetAt: resetAt}
}

// As unwraps err into *Error if possible.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus converts service and infra errors into an HTTP status code.
// Centralized here so handlers stay uniform.
func HTTPStatus(err error) int {
	if e, ok := As(err); ok {
		switch e.Kind {
		case KindValidation:
			return http.StatusBadRequest
		case KindAuthorization:
			return http.StatusForbidden
		case KindNotFound:
			return http.StatusNotFound
		case KindConflict:
			return http.StatusConflict
		case KindRateLimit:
			return http.StatusTooManyRequests
		}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499 // client closed request
	default:
		return http.StatusInternalServerError
	}
}
