package hours

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
)

type memRules struct {
	business  map[int]BusinessDay
	providers map[model.ProviderRef]map[int]ScheduleOverride
	err       error
}

func (m *memRules) BusinessHoursRule(_ context.Context, _ string, weekday int) (BusinessDay, bool, error) {
	if m.err != nil {
		return BusinessDay{}, false, m.err
	}
	d, ok := m.business[weekday]
	return d, ok, nil
}

func (m *memRules) ProviderScheduleRule(_ context.Context, _ string, p model.ProviderRef, weekday int) (ScheduleOverride, bool, error) {
	rows, ok := m.providers[p]
	if !ok {
		return ScheduleOverride{}, false, nil
	}
	r, ok := rows[weekday]
	return r, ok, nil
}

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestEffectiveWeekday(t *testing.T) {
	cases := map[string]int{
		"2024-01-06": 0, // Saturday
		"2024-01-07": 1, // Sunday
		"2024-01-08": 2,
		"2024-01-11": 5,
		"2024-01-12": 6, // Friday
	}
	for date, want := range cases {
		assert.Equal(t, want, EffectiveWeekday(day(date)), date)
	}
}

func TestBusinessMissingRowIsClosed(t *testing.T) {
	r := NewResolver(&memRules{})
	got, err := r.Business(context.Background(), "b1", day("2024-01-08"))
	require.NoError(t, err)
	assert.False(t, got.IsOpen)
}

func TestBusinessOpen(t *testing.T) {
	r := NewResolver(&memRules{business: map[int]BusinessDay{
		2: {IsOpen: true, Window: Window{Start: 540, End: 1020}},
	}})
	got, err := r.Business(context.Background(), "b1", day("2024-01-08"))
	require.NoError(t, err)
	assert.True(t, got.IsOpen)
	assert.Equal(t, Window{Start: 540, End: 1020}, got.Window)
}

func TestProviderSoftFallback(t *testing.T) {
	r := NewResolver(&memRules{business: map[int]BusinessDay{
		2: {IsOpen: true, Window: Window{Start: 540, End: 1020}},
	}})
	got, err := r.Provider(context.Background(), "b1", model.EmployeeRef("e1"), day("2024-01-08"))
	require.NoError(t, err)
	assert.False(t, got.HasOverride())
	assert.True(t, got.IsAvailable())
	assert.Equal(t, Window{Start: 540, End: 1020}, got.Window())
}

func TestProviderHardOverride(t *testing.T) {
	emp := model.EmployeeRef("e1")
	r := NewResolver(&memRules{
		business: map[int]BusinessDay{2: {IsOpen: true, Window: Window{Start: 540, End: 1020}}},
		providers: map[model.ProviderRef]map[int]ScheduleOverride{
			emp: {2: {IsAvailable: false}},
		},
	})
	got, err := r.Provider(context.Background(), "b1", emp, day("2024-01-08"))
	require.NoError(t, err)
	assert.True(t, got.HasOverride())
	assert.False(t, got.IsAvailable())

	// Other weekdays still fall back to business hours.
	got, err = r.Provider(context.Background(), "b1", emp, day("2024-01-09"))
	require.NoError(t, err)
	assert.False(t, got.HasOverride())
	assert.True(t, got.IsAvailable())
}

func TestProviderCustomWindow(t *testing.T) {
	doc := model.DoctorRef("d1")
	r := NewResolver(&memRules{
		providers: map[model.ProviderRef]map[int]ScheduleOverride{
			doc: {2: {IsAvailable: true, Window: Window{Start: 600, End: 720}}},
		},
	})
	got, err := r.Provider(context.Background(), "b1", doc, day("2024-01-08"))
	require.NoError(t, err)
	assert.True(t, got.IsAvailable())
	assert.Equal(t, Window{Start: 600, End: 720}, got.Window())
	assert.False(t, got.Business.IsOpen)
}

func TestResolverWrapsStoreError(t *testing.T) {
	boom := errors.New("boom")
	r := NewResolver(&memRules{err: boom})
	_, err := r.Business(context.Background(), "b1", day("2024-01-08"))
	assert.ErrorIs(t, err, boom)
}

func TestWindowContainsIsInclusiveOfEdges(t *testing.T) {
	w := Window{Start: 540, End: 1020}
	assert.True(t, w.Contains(540, 570))
	assert.True(t, w.Contains(990, 1020))
	assert.False(t, w.Contains(1000, 1030))
	assert.False(t, w.Contains(530, 560))
}

func TestProviderAvailableRowWithUnusableWindowIsUnavailable(t *testing.T) {
	emp := model.EmployeeRef("e1")
	business := map[int]BusinessDay{2: {IsOpen: true, Window: Window{Start: 540, End: 1020}}}
	for name, w := range map[string]Window{
		"empty":     {Start: 600, End: 600},
		"inverted":  {Start: 900, End: 600},
		"past 1440": {Start: 600, End: 1500},
	} {
		t.Run(name, func(t *testing.T) {
			r := NewResolver(&memRules{
				business:  business,
				providers: map[model.ProviderRef]map[int]ScheduleOverride{emp: {2: {IsAvailable: true, Window: w}}},
			})
			got, err := r.Provider(context.Background(), "b1", emp, day("2024-01-08"))
			require.NoError(t, err)
			assert.True(t, got.HasOverride(), "the row still counts as an override")
			assert.False(t, got.IsAvailable())
		})
	}
}
