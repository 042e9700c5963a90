package booking

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/hours"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/outbox"
)

// memStore backs every read and write interface the booking package needs. Inserts
// enforce the same no-overlap rule as the database exclusion constraint.
type memStore struct {
	mu        sync.Mutex
	business  map[int]hours.BusinessDay
	schedules map[model.ProviderRef]map[int]hours.ScheduleOverride
	appts     []model.Appointment
	rules     []model.RecurrenceRule
	events    []outbox.Event
	// raced holds dates whose insert fails as if another request booked them first.
	raced  map[string]bool
	nextID int
}

func newMemStore() *memStore {
	return &memStore{
		business:  map[int]hours.BusinessDay{},
		schedules: map[model.ProviderRef]map[int]hours.ScheduleOverride{},
		raced:     map[string]bool{},
	}
}

func (m *memStore) openAllWeek(start, end int) {
	for d := 0; d < 7; d++ {
		m.business[d] = hours.BusinessDay{IsOpen: true, Window: hours.Window{Start: start, End: end}}
	}
}

func (m *memStore) setSchedule(p model.ProviderRef, weekday int, rule hours.ScheduleOverride) {
	if m.schedules[p] == nil {
		m.schedules[p] = map[int]hours.ScheduleOverride{}
	}
	m.schedules[p][weekday] = rule
}

func (m *memStore) seed(a model.Appointment) {
	m.nextID++
	if a.ID == "" {
		a.ID = fmt.Sprintf("seed-%d", m.nextID)
	}
	m.appts = append(m.appts, a)
}

func (m *memStore) BusinessHoursRule(_ context.Context, _ string, weekday int) (hours.BusinessDay, bool, error) {
	d, ok := m.business[weekday]
	return d, ok, nil
}

func (m *memStore) ProviderScheduleRule(_ context.Context, _ string, p model.ProviderRef, weekday int) (hours.ScheduleOverride, bool, error) {
	r, ok := m.schedules[p][weekday]
	return r, ok, nil
}

func (m *memStore) ListProviderAppointments(_ context.Context, businessID string, p model.ProviderRef, date time.Time) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range m.appts {
		if ap, ok := a.Provider(); ok && ap == p && a.BusinessID == businessID && a.Date.Equal(date) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListAppointments(_ context.Context, businessID string, date time.Time) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range m.appts {
		if a.BusinessID == businessID && a.Date.Equal(date) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	appts := append([]model.Appointment(nil), m.appts...)
	rules := append([]model.RecurrenceRule(nil), m.rules...)
	events := append([]outbox.Event(nil), m.events...)
	if err := fn(ctx, memTx{m}); err != nil {
		m.appts, m.rules, m.events = appts, rules, events
		return err
	}
	return nil
}

type memTx struct{ m *memStore }

func (t memTx) InsertAppointment(_ context.Context, a *model.Appointment) error {
	if t.m.raced[model.FormatDate(a.Date)] {
		return model.ErrSlotTaken
	}
	if p, ok := a.Provider(); ok && a.Status.BlocksProvider() {
		if res := conflict.Find(t.m.appts, p, a.Date, a.StartMinute, a.DurationMinutes); res.HasConflict {
			return model.ErrSlotTaken
		}
	}
	t.m.nextID++
	a.ID = fmt.Sprintf("appt-%d", t.m.nextID)
	a.CreatedAt = time.Now()
	t.m.appts = append(t.m.appts, *a)
	return nil
}

func (t memTx) InsertRecurrenceRule(_ context.Context, r *model.RecurrenceRule) error {
	t.m.nextID++
	r.ID = fmt.Sprintf("rule-%d", t.m.nextID)
	t.m.rules = append(t.m.rules, *r)
	return nil
}

func (t memTx) GetAppointmentForUpdate(_ context.Context, businessID, id string) (model.Appointment, error) {
	for _, a := range t.m.appts {
		if a.ID == id && a.BusinessID == businessID {
			return a, nil
		}
	}
	return model.Appointment{}, model.ErrNotFound
}

func (t memTx) UpdateAppointmentStatus(_ context.Context, appt model.Appointment) error {
	for i := range t.m.appts {
		if t.m.appts[i].ID == appt.ID {
			t.m.appts[i] = appt
			return nil
		}
	}
	return model.ErrNotFound
}

func (t memTx) Enqueue(_ context.Context, evt outbox.Event) error {
	t.m.events = append(t.m.events, evt)
	return nil
}

func newTestService(store *memStore, m *metrics.Metrics) *Service {
	v := NewValidator(hours.NewResolver(store), conflict.NewDetector(store), m)
	return NewService(v, store, slog.New(slog.NewTextHandler(io.Discard, nil)), m)
}

func date(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
