package torn

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnavailable matches every failure to get a usable answer from
// the Torn API. Callers retry on the next scheduled tick.
var ErrUpstreamUnavailable = errors.New("torn api unavailable")

// UpstreamError describes a failed Torn API request: a transport failure, a
// non-200 status or an in-body error object.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Code       int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("torn api %s failed", e.Endpoint)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is makes every UpstreamError match ErrUpstreamUnavailable
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}
