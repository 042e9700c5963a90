package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	otelx "github.com/md-rashed-zaman/appointbook/libs/otel"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/hours"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
)

type Status string

const (
	StatusOff  Status = "off"
	StatusFree Status = "free"
	StatusBusy Status = "busy"
)

// Source is the read side the computer needs. ListAppointments returns every appointment
// of the tenant on date, in any status.
type Source interface {
	ListActiveProviders(ctx context.Context, businessID string) ([]model.Provider, error)
	ListAppointments(ctx context.Context, businessID string, date time.Time) ([]model.Appointment, error)
	ListProviderAppointments(ctx context.Context, businessID string, provider model.ProviderRef, date time.Time) ([]model.Appointment, error)
}

type ProviderAvailability struct {
	Provider           model.Provider
	NotWorking         bool
	WorkingHours       *hours.Window
	Status             Status
	CurrentAppointment *model.Appointment
	NextAvailable      *int
	AppointmentCount   int
	Appointments       []model.Appointment
}

type Snapshot struct {
	AsOf      time.Time
	Date      time.Time
	Minute    int
	Providers []ProviderAvailability
}

type Computer struct {
	resolver *hours.Resolver
	source   Source
	loc      *time.Location
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

// NewComputer builds a snapshot computer. loc is the zone the business keeps its calendar in;
// a nil loc means UTC.
func NewComputer(resolver *hours.Resolver, source Source, loc *time.Location, m *metrics.Metrics) *Computer {
	if loc == nil {
		loc = time.UTC
	}
	return &Computer{
		resolver: resolver,
		source:   source,
		loc:      loc,
		metrics:  m,
		tracer:   otelx.Tracer("booking-service/availability"),
		now:      time.Now,
	}
}

func (c *Computer) Today(ctx context.Context, businessID string) (Snapshot, error) {
	return c.Snapshot(ctx, businessID, c.now())
}

// Snapshot computes the state of every active employee and doctor at asOf. Nothing is cached.
func (c *Computer) Snapshot(ctx context.Context, businessID string, asOf time.Time) (Snapshot, error) {
	started := time.Now()
	defer func() { c.metrics.ObserveSnapshot(time.Since(started)) }()

	local := asOf.In(c.loc)
	snap := Snapshot{AsOf: local, Date: model.DateOf(local), Minute: model.MinuteOf(local)}

	ctx, span := c.tracer.Start(ctx, "availability.snapshot", trace.WithAttributes(
		attribute.String("business_id", businessID),
		attribute.String("date", model.FormatDate(snap.Date)),
	))
	defer span.End()

	providers, err := c.source.ListActiveProviders(ctx, businessID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list providers: %w", err)
	}
	appts, err := c.source.ListAppointments(ctx, businessID, snap.Date)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list appointments: %w", err)
	}
	business, err := c.resolver.Business(ctx, businessID, snap.Date)
	if err != nil {
		return Snapshot{}, err
	}

	byProvider := map[model.ProviderRef][]model.Appointment{}
	for _, a := range appts {
		if p, ok := a.Provider(); ok {
			byProvider[p] = append(byProvider[p], a)
		}
	}

	snap.Providers = make([]ProviderAvailability, 0, len(providers))
	for _, p := range providers {
		day, err := c.resolver.ProviderOn(ctx, businessID, p.Ref, snap.Date, business)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Providers = append(snap.Providers, Compute(p, day, byProvider[p.Ref], snap.Minute))
	}
	span.SetAttributes(attribute.Int("providers", len(snap.Providers)))
	return snap, nil
}

// Compute derives one provider's availability at minute from its resolved hours and the
// day's appointments.
func Compute(p model.Provider, day hours.ProviderDay, appts []model.Appointment, minute int) ProviderAvailability {
	out := ProviderAvailability{Provider: p}
	for _, a := range appts {
		if a.Status != model.StatusCancelled {
			out.Appointments = append(out.Appointments, a)
		}
	}
	sort.SliceStable(out.Appointments, func(i, j int) bool {
		return out.Appointments[i].StartMinute < out.Appointments[j].StartMinute
	})
	out.AppointmentCount = len(out.Appointments)

	if !day.Business.IsOpen || !day.IsAvailable() {
		out.NotWorking = true
		out.Status = StatusOff
		return out
	}
	w := day.Window()
	out.WorkingHours = &w

	if minute < w.Start || minute >= w.End {
		out.Status = StatusOff
		if minute < w.End {
			out.NextAvailable = nextAvailable(minute, w, out.Appointments)
		}
		return out
	}

	for i := range out.Appointments {
		a := out.Appointments[i]
		if occupiesNow(a.Status) && minute >= a.StartMinute && minute < a.EndMinute() {
			out.Status = StatusBusy
			out.CurrentAppointment = &a
			break
		}
	}
	if out.Status != StatusBusy {
		out.Status = StatusFree
		return out
	}
	out.NextAvailable = nextAvailable(minute, w, out.Appointments)
	return out
}

func occupiesNow(s model.Status) bool {
	return s == model.StatusInProgress || s == model.StatusWaiting || s == model.StatusConfirmed
}

func nextAvailable(minute int, w hours.Window, appts []model.Appointment) *int {
	busy := make([]Interval, 0, len(appts))
	for _, a := range appts {
		if a.Status == model.StatusCompleted || a.Status == model.StatusCancelled {
			continue
		}
		busy = append(busy, Interval{Start: a.StartMinute, End: a.EndMinute()})
	}
	next, ok := NextAvailable(minute, w, busy)
	if !ok {
		return nil
	}
	return &next
}

// Slots lists the start minutes on date where provider could take a booking of duration
// minutes, stepping by step. Past dates have no slots and today starts from the current minute.
func (c *Computer) Slots(ctx context.Context, businessID string, provider model.ProviderRef, date time.Time, duration, step int) ([]int, error) {
	date = model.DateOf(date)
	now := c.now().In(c.loc)
	today := model.DateOf(now)
	if date.Before(today) {
		return nil, nil
	}
	notBefore := 0
	if date.Equal(today) {
		notBefore = model.MinuteOf(now)
	}

	day, err := c.resolver.Provider(ctx, businessID, provider, date)
	if err != nil {
		return nil, err
	}
	if !day.Business.IsOpen || !day.IsAvailable() {
		return nil, nil
	}
	pw := day.Window()
	window := hours.Window{
		Start: max(pw.Start, day.Business.Window.Start),
		End:   min(pw.End, day.Business.Window.End),
	}

	appts, err := c.source.ListProviderAppointments(ctx, businessID, provider, date)
	if err != nil {
		return nil, fmt.Errorf("list %s appointments: %w", provider.Kind, err)
	}
	var busy []Interval
	for _, a := range appts {
		if a.Status.BlocksProvider() {
			busy = append(busy, Interval{Start: a.StartMinute, End: a.EndMinute()})
		}
	}
	return AvailableSlots(window, duration, step, busy, notBefore), nil
}
