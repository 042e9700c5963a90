package availability

import (
	"sort"

	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/hours"
)

// Interval is a half-open [Start, End) range in minutes after midnight.
type Interval struct {
	Start int
	End   int
}

// AvailableSlots returns slot start minutes within window where a booking of length
// duration would not overlap any busy interval. Slots starting before notBefore are skipped.
func AvailableSlots(window hours.Window, duration, step int, busy []Interval, notBefore int) []int {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if window.End <= window.Start || window.Start+duration > window.End {
		return nil
	}

	var slots []int
	for t := window.Start; t+duration <= window.End; t += step {
		if t < notBefore {
			continue
		}
		if !overlapsAny(t, t+duration, busy) {
			slots = append(slots, t)
		}
	}
	return slots
}

func overlapsAny(start, end int, busy []Interval) bool {
	for _, b := range busy {
		if start < b.End && b.Start < end {
			return true
		}
	}
	return false
}

// NextAvailable walks the busy intervals in start order from max(asOf, work.Start). The first
// gap found is the answer; if the intervals run past closing there is no room left today.
func NextAvailable(asOf int, work hours.Window, busy []Interval) (int, bool) {
	sorted := append([]Interval(nil), busy...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	cursor := max(asOf, work.Start)
	for _, b := range sorted {
		if b.Start > cursor {
			break
		}
		cursor = max(cursor, b.End)
	}
	if cursor < work.End {
		return cursor, true
	}
	return 0, false
}
