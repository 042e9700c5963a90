package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/hours"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
)

var (
	nine2five = hours.Window{Start: 540, End: 1020}
	openDay   = hours.ProviderDay{Business: hours.BusinessDay{IsOpen: true, Window: nine2five}}
	alice     = model.Provider{Ref: model.EmployeeRef("e1"), Name: "Alice", IsActive: true}
	monday    = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
)

func at(start, dur int, status model.Status) model.Appointment {
	return model.Appointment{ID: model.FormatClock(start), EmployeeID: "e1", Date: monday, StartMinute: start, DurationMinutes: dur, Status: status}
}

func TestComputeFreeHasNoNextAvailable(t *testing.T) {
	got := Compute(alice, openDay, nil, 600)
	assert.Equal(t, StatusFree, got.Status)
	assert.Nil(t, got.NextAvailable)
	assert.Nil(t, got.CurrentAppointment)
	assert.Equal(t, &nine2five, got.WorkingHours)
}

func TestComputeBusyInsideConfirmed(t *testing.T) {
	current := at(600, 30, model.StatusConfirmed)
	got := Compute(alice, openDay, []model.Appointment{current}, 615)
	assert.Equal(t, StatusBusy, got.Status)
	require.NotNil(t, got.CurrentAppointment)
	assert.Equal(t, current.ID, got.CurrentAppointment.ID)
	require.NotNil(t, got.NextAvailable)
	assert.Equal(t, 630, *got.NextAvailable)
}

func TestComputeBusySkipsBackToBack(t *testing.T) {
	appts := []model.Appointment{
		at(630, 30, model.StatusPending),
		at(600, 30, model.StatusInProgress),
		at(660, 15, model.StatusWaiting),
		at(700, 30, model.StatusConfirmed),
	}
	got := Compute(alice, openDay, appts, 610)
	assert.Equal(t, StatusBusy, got.Status)
	require.NotNil(t, got.NextAvailable)
	assert.Equal(t, 675, *got.NextAvailable)
	assert.Equal(t, 4, got.AppointmentCount)
	assert.Equal(t, 600, got.Appointments[0].StartMinute)
}

func TestComputeNoShowStillPushesNextAvailable(t *testing.T) {
	appts := []model.Appointment{
		at(600, 30, model.StatusConfirmed),
		at(630, 30, model.StatusNoShow),
	}
	got := Compute(alice, openDay, appts, 610)
	assert.Equal(t, StatusBusy, got.Status)
	require.NotNil(t, got.NextAvailable)
	assert.Equal(t, 660, *got.NextAvailable)
}

func TestComputePendingDoesNotMakeBusy(t *testing.T) {
	got := Compute(alice, openDay, []model.Appointment{at(600, 30, model.StatusPending)}, 610)
	assert.Equal(t, StatusFree, got.Status)
}

func TestComputeCompletedDoesNotBlockNextAvailable(t *testing.T) {
	appts := []model.Appointment{
		at(600, 30, model.StatusConfirmed),
		at(630, 30, model.StatusCompleted),
	}
	got := Compute(alice, openDay, appts, 610)
	require.NotNil(t, got.NextAvailable)
	assert.Equal(t, 630, *got.NextAvailable)
}

func TestComputeCancelledExcluded(t *testing.T) {
	got := Compute(alice, openDay, []model.Appointment{at(600, 60, model.StatusCancelled)}, 610)
	assert.Equal(t, StatusFree, got.Status)
	assert.Zero(t, got.AppointmentCount)
}

func TestComputeNotWorking(t *testing.T) {
	closed := hours.ProviderDay{}
	got := Compute(alice, closed, []model.Appointment{at(600, 30, model.StatusConfirmed)}, 610)
	assert.True(t, got.NotWorking)
	assert.Equal(t, StatusOff, got.Status)
	assert.Nil(t, got.WorkingHours)
	assert.Nil(t, got.NextAvailable)

	dayOff := openDay
	dayOff.Override = &hours.ScheduleOverride{IsAvailable: false}
	got = Compute(alice, dayOff, nil, 610)
	assert.True(t, got.NotWorking)
	assert.Equal(t, StatusOff, got.Status)
}

func TestComputeBeforeAndAfterHours(t *testing.T) {
	early := Compute(alice, openDay, []model.Appointment{at(540, 30, model.StatusConfirmed)}, 480)
	assert.False(t, early.NotWorking)
	assert.Equal(t, StatusOff, early.Status)
	require.NotNil(t, early.NextAvailable)
	assert.Equal(t, 570, *early.NextAvailable)

	late := Compute(alice, openDay, nil, 1020)
	assert.Equal(t, StatusOff, late.Status)
	assert.Nil(t, late.NextAvailable)
}

func TestComputeUsesProviderWindow(t *testing.T) {
	day := openDay
	day.Override = &hours.ScheduleOverride{IsAvailable: true, Window: hours.Window{Start: 780, End: 900}}
	got := Compute(alice, day, nil, 600)
	assert.Equal(t, StatusOff, got.Status)
	require.NotNil(t, got.NextAvailable)
	assert.Equal(t, 780, *got.NextAvailable)
}

type memSource struct {
	providers []model.Provider
	appts     []model.Appointment
}

func (m memSource) ListActiveProviders(context.Context, string) ([]model.Provider, error) {
	return m.providers, nil
}

func (m memSource) ListAppointments(_ context.Context, _ string, date time.Time) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range m.appts {
		if a.Date.Equal(date) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m memSource) ListProviderAppointments(ctx context.Context, b string, p model.ProviderRef, date time.Time) ([]model.Appointment, error) {
	all, _ := m.ListAppointments(ctx, b, date)
	var out []model.Appointment
	for _, a := range all {
		if ap, ok := a.Provider(); ok && ap == p {
			out = append(out, a)
		}
	}
	return out, nil
}

type memRules map[model.ProviderRef]hours.ScheduleOverride

func (memRules) BusinessHoursRule(_ context.Context, _ string, weekday int) (hours.BusinessDay, bool, error) {
	if weekday == 0 {
		return hours.BusinessDay{}, false, nil
	}
	return hours.BusinessDay{IsOpen: true, Window: nine2five}, true, nil
}

func (m memRules) ProviderScheduleRule(_ context.Context, _ string, p model.ProviderRef, _ int) (hours.ScheduleOverride, bool, error) {
	r, ok := m[p]
	return r, ok, nil
}

func TestSnapshotPerProvider(t *testing.T) {
	bob := model.Provider{Ref: model.DoctorRef("d1"), Name: "Dr. Bob", IsActive: true}
	carol := model.Provider{Ref: model.EmployeeRef("e2"), Name: "Carol", IsActive: true}
	doctorVisit := model.Appointment{ID: "v1", DoctorID: "d1", Date: monday, StartMinute: 600, DurationMinutes: 45, Status: model.StatusInProgress}

	src := memSource{
		providers: []model.Provider{alice, bob, carol},
		appts:     []model.Appointment{doctorVisit, at(900, 30, model.StatusConfirmed)},
	}
	rules := memRules{carol.Ref: {IsAvailable: false}}
	c := NewComputer(hours.NewResolver(rules), src, time.UTC, nil)

	snap, err := c.Snapshot(context.Background(), "b1", monday.Add(10*time.Hour+10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 610, snap.Minute)
	require.Len(t, snap.Providers, 3)

	assert.Equal(t, StatusFree, snap.Providers[0].Status)
	assert.Equal(t, 1, snap.Providers[0].AppointmentCount)

	assert.Equal(t, StatusBusy, snap.Providers[1].Status)
	assert.Equal(t, "v1", snap.Providers[1].CurrentAppointment.ID)
	assert.Equal(t, 645, *snap.Providers[1].NextAvailable)

	assert.True(t, snap.Providers[2].NotWorking)
}

func TestSnapshotUsesConfiguredZone(t *testing.T) {
	loc := time.FixedZone("UTC+6", 6*60*60)
	c := NewComputer(hours.NewResolver(memRules{}), memSource{providers: []model.Provider{alice}}, loc, nil)

	// 2024-01-08 04:30 UTC is 10:30 on the same Monday in UTC+6.
	snap, err := c.Snapshot(context.Background(), "b1", time.Date(2024, 1, 8, 4, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-08", model.FormatDate(snap.Date))
	assert.Equal(t, 630, snap.Minute)
	assert.Equal(t, StatusFree, snap.Providers[0].Status)
}

func TestSlots(t *testing.T) {
	src := memSource{appts: []model.Appointment{at(600, 60, model.StatusConfirmed), at(720, 30, model.StatusCancelled)}}
	c := NewComputer(hours.NewResolver(memRules{}), src, time.UTC, nil)
	c.now = func() time.Time { return monday.Add(-24 * time.Hour) }

	slots, err := c.Slots(context.Background(), "b1", alice.Ref, monday, 60, 60)
	require.NoError(t, err)
	assert.Equal(t, []int{540, 660, 720, 780, 840, 900, 960}, slots)

	c.now = func() time.Time { return monday.Add(24 * time.Hour) }
	slots, err = c.Slots(context.Background(), "b1", alice.Ref, monday, 60, 60)
	require.NoError(t, err)
	assert.Empty(t, slots)
}
