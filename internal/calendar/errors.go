package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/teemow/meetslot/internal/availability"
)

// classifyError maps a Calendar API error onto the availability error kinds.
// Errors that already carry one of them are returned unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		availability.ErrRateLimited,
		availability.ErrProviderDeniedAccess,
		availability.ErrProviderUnavailable,
		availability.ErrDeadlineExceeded,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", availability.ErrDeadlineExceeded, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", availability.ErrRateLimited, err)
		case gerr.Code == http.StatusForbidden && hasReason(gerr, "rateLimitExceeded", "userRateLimitExceeded"):
			return fmt.Errorf("%w: %v", availability.ErrRateLimited, err)
		case gerr.Code == http.StatusUnauthorized,
			gerr.Code == http.StatusForbidden,
			gerr.Code == http.StatusNotFound:
			return fmt.Errorf("%w: %v", availability.ErrProviderDeniedAccess, err)
		}
	}

	return fmt.Errorf("%w: %v", availability.ErrProviderUnavailable, err)
}

func hasReason(gerr *googleapi.Error, reasons ...string) bool {
	for _, item := range gerr.Errors {
		for _, r := range reasons {
			if item.Reason == r {
				return true
			}
		}
	}
	return false
}

// isConflict reports whether err is a 409 from the API.
func isConflict(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusConflict
}

// calendarError maps a per-calendar free/busy error reason.
func calendarError(reason string) error {
	switch reason {
	case "notFound", "forbidden":
		return fmt.Errorf("%w: %s", availability.ErrProviderDeniedAccess, reason)
	default:
		return fmt.Errorf("%w: %s", availability.ErrProviderUnavailable, reason)
	}
}
