package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/hours"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
)

const tenant = "biz-1"

var emp = model.EmployeeRef("emp-1")

// 2024-01-08 is a Monday, effective weekday 2.
const monday = 2

func candidate(p model.ProviderRef, d string, start, dur int) Candidate {
	return Candidate{Provider: p, Date: date(d), StartMinute: start, DurationMinutes: dur}
}

func TestValidateClosedBusinessWinsOverProviderSchedule(t *testing.T) {
	store := newMemStore()
	store.setSchedule(emp, monday, hours.ScheduleOverride{IsAvailable: true, Window: hours.Window{Start: 0, End: 1440}})
	svc := newTestService(store, nil)

	d, err := svc.Validate(context.Background(), tenant, candidate(emp, "2024-01-08", 600, 30))
	require.NoError(t, err)
	require.False(t, d.Bookable())
	assert.Equal(t, ReasonCenterClosed, d.Rejection.Reason)
}

func TestValidateOutsideBusinessHoursCarriesWindow(t *testing.T) {
	store := newMemStore()
	store.openAllWeek(540, 1020)
	svc := newTestService(store, nil)

	d, err := svc.Validate(context.Background(), tenant, candidate(model.ProviderRef{}, "2024-01-08", 1000, 30))
	require.NoError(t, err)
	require.False(t, d.Bookable())
	assert.Equal(t, ReasonOutsideBusinessHours, d.Rejection.Reason)
	assert.Equal(t, &hours.Window{Start: 540, End: 1020}, d.Rejection.Window)
}

func TestValidateBookableAtClosingEdge(t *testing.T) {
	store := newMemStore()
	store.openAllWeek(540, 1020)
	svc := newTestService(store, nil)

	d, err := svc.Validate(context.Background(), tenant, candidate(emp, "2024-01-08", 990, 30))
	require.NoError(t, err)
	assert.True(t, d.Bookable())
}

func TestValidateProviderConflictCarriesSummary(t *testing.T) {
	store := newMemStore()
	store.openAllWeek(540, 1020)
	store.seed(model.Appointment{
		ID: "busy", BusinessID: tenant, EmployeeID: emp.ID, Date: date("2024-01-08"),
		StartMinute: 600, DurationMinutes: 60, Status: model.StatusConfirmed, ServiceName: "Color",
	})
	svc := newTestService(store, nil)

	d, err := svc.Validate(context.Background(), tenant, candidate(emp, "2024-01-08", 630, 30))
	require.NoError(t, err)
	require.False(t, d.Bookable())
	assert.Equal(t, ReasonProviderConflict, d.Rejection.Reason)
	assert.Equal(t, &ConflictSummary{
		AppointmentID: "busy", Kind: model.ProviderEmployee, StartMinute: 600, EndMinute: 660, ServiceName: "Color",
	}, d.Rejection.Conflict)
}

func TestValidateConflictCheckedBeforeProviderHours(t *testing.T) {
	store := newMemStore()
	store.openAllWeek(540, 1020)
	store.setSchedule(emp, monday, hours.ScheduleOverride{IsAvailable: true, Window: hours.Window{Start: 540, End: 600}})
	store.seed(model.Appointment{BusinessID: tenant, EmployeeID: emp.ID, Date: date("2024-01-08"), StartMinute: 660, DurationMinutes: 30, Status: model.StatusPending})
	svc := newTestService(store, nil)

	d, err := svc.Validate(context.Background(), tenant, candidate(emp, "2024-01-08", 660, 30))
	require.NoError(t, err)
	assert.Equal(t, ReasonProviderConflict, d.Rejection.Reason)
}

func TestValidateHardOverrideUnavailable(t *testing.T) {
	store := newMemStore()
	store.openAllWeek(540, 1020)
	store.setSchedule(emp, monday, hours.ScheduleOverride{IsAvailable: false})
	svc := newTestService(store, nil)

	d, err := svc.Validate(context.Background(), tenant, candidate(emp, "2024-01-08", 600, 30))
	require.NoError(t, err)
	require.False(t, d.Bookable())
	assert.Equal(t, ReasonOutsideProviderHours, d.Rejection.Reason)
	assert.Nil(t, d.Rejection.Window)

	// Tuesday has no row and falls back to business hours.
	d, err = svc.Validate(context.Background(), tenant, candidate(emp, "2024-01-09", 600, 30))
	require.NoError(t, err)
	assert.True(t, d.Bookable())
}

func TestValidateProviderWindow(t *testing.T) {
	doc := model.DoctorRef("doc-1")
	store := newMemStore()
	store.openAllWeek(540, 1020)
	store.setSchedule(doc, monday, hours.ScheduleOverride{IsAvailable: true, Window: hours.Window{Start: 780, End: 960}})
	svc := newTestService(store, nil)

	d, err := svc.Validate(context.Background(), tenant, candidate(doc, "2024-01-08", 600, 30))
	require.NoError(t, err)
	require.False(t, d.Bookable())
	assert.Equal(t, ReasonOutsideProviderHours, d.Rejection.Reason)
	assert.Equal(t, &hours.Window{Start: 780, End: 960}, d.Rejection.Window)

	d, err = svc.Validate(context.Background(), tenant, candidate(doc, "2024-01-08", 780, 30))
	require.NoError(t, err)
	assert.True(t, d.Bookable())
}

func TestValidateRejectsMalformedCandidate(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	for _, c := range []Candidate{
		{StartMinute: 600, DurationMinutes: 30},
		candidate(emp, "2024-01-08", -1, 30),
		candidate(emp, "2024-01-08", 600, 0),
		candidate(model.ProviderRef{Kind: "robot", ID: "r1"}, "2024-01-08", 600, 30),
	} {
		_, err := svc.Validate(context.Background(), tenant, c)
		assert.ErrorIs(t, err, ErrInvalidCandidate)
	}
}

func TestValidateBatchKeepsOrder(t *testing.T) {
	store := newMemStore()
	store.openAllWeek(540, 1020)
	delete(store.business, monday)
	svc := newTestService(store, nil)

	res, err := svc.validator.ValidateBatch(context.Background(), tenant, []Candidate{
		candidate(emp, "2024-01-07", 600, 30),
		candidate(emp, "2024-01-08", 600, 30),
		candidate(emp, "2024-01-09", 600, 30),
	})
	require.NoError(t, err)
	require.Len(t, res.Accepted, 2)
	assert.Equal(t, "2024-01-07", model.FormatDate(res.Accepted[0].Date))
	assert.Equal(t, "2024-01-09", model.FormatDate(res.Accepted[1].Date))
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, ReasonCenterClosed, res.Rejected[0].Rejection.Reason)
}
