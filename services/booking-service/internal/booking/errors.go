package booking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCandidate = errors.New("booking: invalid candidate")
	ErrMissingTemplate  = errors.New("booking: appointment template is required")
	ErrNoOccurrences    = errors.New("booking: recurrence produced no dates")
	ErrNotCancellable   = errors.New("booking: appointment can no longer be cancelled")
)

// SeriesRejectedError is returned when no date of a recurring request could be booked.
// Nothing is persisted in that case.
type SeriesRejectedError struct {
	TotalRequested int
	Skipped        []DateRejection
}

func (e *SeriesRejectedError) Error() string {
	return fmt.Sprintf("booking: none of the %d requested dates could be booked", e.TotalRequested)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCandidate, fmt.Sprintf(format, args...))
}
