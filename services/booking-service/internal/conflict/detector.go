package conflict

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
)

// AppointmentLister returns the provider's appointments on a date. Implementations may
// pre-filter inactive statuses; the detector filters again.
type AppointmentLister interface {
	ListProviderAppointments(ctx context.Context, businessID string, provider model.ProviderRef, date time.Time) ([]model.Appointment, error)
}

type Result struct {
	HasConflict bool
	Kind        model.ProviderKind
	Appointment *model.Appointment
}

type Detector struct {
	store AppointmentLister
}

func NewDetector(store AppointmentLister) *Detector {
	return &Detector{store: store}
}

// Overlaps is the half-open interval test. Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// Check reports the earliest active appointment of provider on date that overlaps
// [startMinute, startMinute+duration).
func (d *Detector) Check(ctx context.Context, businessID string, provider model.ProviderRef, date time.Time, startMinute, duration int) (Result, error) {
	if provider.IsZero() {
		return Result{}, nil
	}
	appts, err := d.store.ListProviderAppointments(ctx, businessID, provider, date)
	if err != nil {
		return Result{}, fmt.Errorf("list %s appointments: %w", provider.Kind, err)
	}
	return Find(appts, provider, date, startMinute, duration), nil
}

// Find runs the conflict test against an already loaded set of appointments.
func Find(appts []model.Appointment, provider model.ProviderRef, date time.Time, startMinute, duration int) Result {
	end := startMinute + duration
	var hits []model.Appointment
	for _, a := range appts {
		if !a.Status.BlocksProvider() {
			continue
		}
		if p, ok := a.Provider(); !ok || p != provider {
			continue
		}
		if !model.DateOf(a.Date).Equal(model.DateOf(date)) {
			continue
		}
		if Overlaps(startMinute, end, a.StartMinute, a.EndMinute()) {
			hits = append(hits, a)
		}
	}
	if len(hits) == 0 {
		return Result{}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].StartMinute < hits[j].StartMinute })
	first := hits[0]
	return Result{HasConflict: true, Kind: provider.Kind, Appointment: &first}
}
