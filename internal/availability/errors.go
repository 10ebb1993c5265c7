package availability

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned for requests rejected before any provider call.
	ErrInvalidRequest = errors.New("invalid scheduling request")

	// ErrProviderUnavailable means the backend could not be reached or failed.
	ErrProviderUnavailable = errors.New("calendar provider unavailable")

	// ErrProviderDeniedAccess means the participant's calendar is not readable.
	ErrProviderDeniedAccess = errors.New("calendar access denied")

	// ErrRateLimited means the backend throttled the request. Adapters retry it
	// internally and only surface it once retries are exhausted.
	ErrRateLimited = errors.New("calendar provider rate limited")

	// ErrDeadlineExceeded means the fetch did not finish within the request deadline.
	ErrDeadlineExceeded = errors.New("calendar fetch deadline exceeded")
)

// RequestError describes why a SchedulingRequest was rejected.
type RequestError struct {
	Field  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidRequest, e.Field, e.Reason)
}

func (e *RequestError) Unwrap() error {
	return ErrInvalidRequest
}

func invalid(field, format string, args ...interface{}) *RequestError {
	return &RequestError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Unknown returns a ParticipantBusy with StatusUnknown for a failed fetch.
func Unknown(participantID string, err error) ParticipantBusy {
	return ParticipantBusy{
		ParticipantID: participantID,
		Status:        StatusUnknown,
		Err:           err,
	}
}
