// Package apierr defines the structured error type shared by every
// component that classifies a failure for the API boundary.
//
// Each error carries an HTTP status class, a stable machine-readable
// reason (clients and the frontend branch on it), a human-readable
// message, and an optional internal-only detail. The detail may contain
// raw provider error codes or upstream responses and is logged
// server-side but NEVER serialized into a client-facing payload.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable reasons. These are wire-stable: the frontend and API
// consumers switch on them, so renaming one is a breaking change.
const (
	ReasonMissingToken    = "missing-token"
	ReasonInvalidToken    = "invalid-token"
	ReasonExpiredToken    = "expired-token"
	ReasonMissingSubject  = "missing-subject"
	ReasonMissingCaptcha  = "missing-captcha-token"
	ReasonBadCaptcha      = "bad-captcha"
	ReasonCaptchaTimeout  = "captcha-timeout"
	ReasonCaptchaMismatch = "captcha-action-mismatch"
	ReasonCaptchaProvider = "captcha-provider-error"
	ReasonRateLimited     = "rate-limited"
	ReasonNotFound        = "contact-not-found"
	ReasonForbidden       = "forbidden"
	ReasonUpstream        = "upstream-unavailable"
	ReasonInvalidRequest  = "invalid-request"
	ReasonInternal        = "internal-error"
)

// Error is the classified failure raised by the verification, token and
// subscription components.
type Error struct {
	Status  int    // HTTP status class the boundary should respond with
	Reason  string // stable machine reason, distinct from Message
	Message string // human-readable, safe to show to clients
	Detail  string // internal diagnostics, never sent to clients
}

// Error implements the error interface. The detail is included so that
// server-side logs carry the full story; callers rendering toward a
// client must use Message/Reason, not Error().
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Reason, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// New creates a classified error.
func New(status int, reason, message string) *Error {
	return &Error{Status: status, Reason: reason, Message: message}
}

// WithDetail returns a copy of the error carrying internal diagnostics.
func (e *Error) WithDetail(format string, args ...any) *Error {
	clone := *e
	clone.Detail = fmt.Sprintf(format, args...)
	return &clone
}

// From extracts the classified error from err, wrapping anything
// unclassified as a generic 500. Outbound-call surprises always surface
// to clients as internal errors, never with upstream details attached.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{
		Status:  http.StatusInternalServerError,
		Reason:  ReasonInternal,
		Message: "internal server error",
		Detail:  err.Error(),
	}
}

// RateLimited is the shared 429 shape for actual rate limiting, bot
// rejection and previously-unsubscribed contacts. All three are
// intentionally indistinguishable to callers.
func RateLimited() *Error {
	return New(http.StatusTooManyRequests, ReasonRateLimited, "too many requests")
}

// Upstream reports a dependency outage distinctly from any
// verification or client failure.
func Upstream(service string) *Error {
	return New(http.StatusBadGateway, ReasonUpstream, service+" is unavailable")
}
