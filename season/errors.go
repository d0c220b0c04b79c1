package season

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrCalendarUnavailable is what callers see when no endpoint produced a calendar.
	ErrCalendarUnavailable = errors.New("calendar unavailable")

	ErrBadStatus     = errors.New("unexpected response status")
	ErrEmptyCalendar = errors.New("race list is empty")
	ErrMalformed     = errors.New("malformed calendar data")
	ErrNoEndpoints   = errors.New("no endpoints configured")
)

// FetchError is returned by FetchSeason when every endpoint failed. It wraps
// the error of the last attempt and matches ErrCalendarUnavailable.
type FetchError struct {
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", ErrCalendarUnavailable, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrCalendarUnavailable
}
