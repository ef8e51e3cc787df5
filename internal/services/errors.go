package services

import (
	"errors"
)

// Error kinds surfaced by the interview services. Match them with errors.Is.
var (
	ErrInvalidPersona           = errors.New("invalid persona")
	ErrPlanningFailed           = errors.New("planning failed")
	ErrGatewayUnavailable       = errors.New("gateway unavailable")
	ErrMalformedGatewayResponse = errors.New("malformed gateway response")
	ErrSessionNotFound          = errors.New("session not found")
	ErrSessionAlreadyCompleted  = errors.New("session already completed")
	ErrSessionNotComplete       = errors.New("session not complete")
	ErrSessionBusy              = errors.New("session busy")
	ErrEmptyAnswer              = errors.New("empty answer")
)

// Error ties a failed operation to one of the kinds above. The message only
// carries the operation and kind; the underlying cause is kept for logs so
// provider text never reaches a client.
type Error struct {
	Op    string
	Kind  error
	cause error
}

func newError(op string, kind, cause error) *Error {
	return &Error{Op: op, Kind: kind, cause: cause}
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

// Cause returns the wrapped error, if any.
func (e *Error) Cause() error {
	return e.cause
}

var errorCodes = []struct {
	kind error
	code string
}{
	{ErrInvalidPersona, "invalid_persona"},
	{ErrEmptyAnswer, "empty_answer"},
	{ErrSessionNotFound, "session_not_found"},
	{ErrSessionAlreadyCompleted, "session_already_completed"},
	{ErrSessionNotComplete, "session_not_complete"},
	{ErrSessionBusy, "session_busy"},
	{ErrPlanningFailed, "planning_failed"},
	{ErrMalformedGatewayResponse, "malformed_gateway_response"},
	{ErrGatewayUnavailable, "gateway_unavailable"},
}

// ErrorCode returns the stable identifier of err's kind, or "internal_error".
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.kind) {
			return ec.code
		}
	}
	return "internal_error"
}

// KindOf returns the first known kind err matches, or nil.
func KindOf(err error) error {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.kind) {
			return ec.kind
		}
	}
	return nil
}
