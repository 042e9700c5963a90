// Package recurrence expands a recurrence rule into the concrete dates of a booking series.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
)

// MaxOccurrences bounds every expansion, with or without an explicit count.
const MaxOccurrences = 365

var (
	ErrInvalidFrequency   = errors.New("recurrence: invalid frequency")
	ErrInvalidInterval    = errors.New("recurrence: interval must be at least 1")
	ErrInvalidTermination = errors.New("recurrence: exactly one of end_date or occurrences is required")
	ErrTooManyOccurrences = fmt.Errorf("recurrence: occurrences must be between 1 and %d", MaxOccurrences)
	ErrEndBeforeStart     = errors.New("recurrence: end_date is before the start date")
)

type Frequency string

const (
	Daily    Frequency = "daily"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
)

func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case Daily, Weekly, Biweekly, Monthly:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
}

// Rule describes a series. Exactly one of EndDate and Occurrences must be set;
// Occurrences == 0 means unset.
type Rule struct {
	Frequency   Frequency
	Interval    int
	EndDate     *time.Time
	Occurrences int
}

func (r Rule) Validate(start time.Time) error {
	if _, err := ParseFrequency(string(r.Frequency)); err != nil {
		return err
	}
	if r.Interval < 1 {
		return ErrInvalidInterval
	}
	if (r.EndDate == nil) == (r.Occurrences == 0) {
		return ErrInvalidTermination
	}
	if r.EndDate == nil && (r.Occurrences < 1 || r.Occurrences > MaxOccurrences) {
		return ErrTooManyOccurrences
	}
	if r.EndDate != nil && model.DateOf(*r.EndDate).Before(model.DateOf(start)) {
		return ErrEndBeforeStart
	}
	return nil
}

// Expand returns the dates of the series starting at start, in increasing order. The start
// date is always the first candidate. Monthly steps are measured from start and clamp to the
// last day of shorter months, so a series anchored on the 31st keeps returning to the 31st.
func Expand(start time.Time, rule Rule) []time.Time {
	start = model.DateOf(start)
	limit := MaxOccurrences
	if rule.Occurrences > 0 && rule.Occurrences < limit {
		limit = rule.Occurrences
	}
	var end time.Time
	if rule.EndDate != nil {
		end = model.DateOf(*rule.EndDate)
	}
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	out := make([]time.Time, 0, min(limit, 32))
	for k := 0; len(out) < limit; k++ {
		d, ok := step(start, rule.Frequency, interval, k)
		if !ok {
			break
		}
		if rule.EndDate != nil && d.After(end) {
			break
		}
		out = append(out, d)
	}
	return out
}

func step(start time.Time, f Frequency, interval, k int) (time.Time, bool) {
	switch f {
	case Daily:
		return start.AddDate(0, 0, k*interval), true
	case Weekly:
		return start.AddDate(0, 0, 7*k*interval), true
	case Biweekly:
		return start.AddDate(0, 0, 14*k*interval), true
	case Monthly:
		return addMonthsClamped(start, k*interval), true
	default:
		return time.Time{}, false
	}
}

func addMonthsClamped(d time.Time, months int) time.Time {
	first := time.Date(d.Year(), d.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := d.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}
