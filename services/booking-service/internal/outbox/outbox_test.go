package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/md-rashed-zaman/appointbook/libs/kafkax"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
)

func TestAppointmentBookedPayload(t *testing.T) {
	a := model.Appointment{
		ID: "a1", BusinessID: "b1", EmployeeID: "e1", ServiceName: "Haircut",
		Date: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), StartMinute: 570, DurationMinutes: 30,
		Status: model.StatusConfirmed,
	}
	evt, err := AppointmentBooked(a, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, TypeAppointmentBooked, evt.EventType)
	assert.Equal(t, "a1", evt.AggregateID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(evt.Payload, &body))
	assert.Equal(t, "2024-01-08", body["date"])
	assert.Equal(t, "09:30", body["start_time"])
	assert.NotContains(t, body, "doctor_id")
}

func TestSeriesCreatedPayload(t *testing.T) {
	rule := model.RecurrenceRule{GroupID: "g1", BusinessID: "b1", Frequency: "weekly", Interval: 1}
	created := []model.Appointment{
		{ID: "a1", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "a2", Date: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
	}
	evt, err := SeriesCreated(rule, created, 1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "g1", evt.AggregateID)

	var body seriesPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &body))
	assert.Equal(t, []string{"a1", "a2"}, body.AppointmentIDs)
	assert.Equal(t, []string{"2024-01-01", "2024-01-08"}, body.Dates)
	assert.Equal(t, 1, body.SkippedCount)
}

func TestMessageCarriesMetaAndTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	rec := Record{
		ID: 7, EventID: "evt-1", AggregateID: "a1", EventType: TypeAppointmentCancelled,
		Payload:     []byte(`{}`),
		Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}
	msg := Message(context.Background(), rec)
	assert.Equal(t, TypeAppointmentCancelled, msg.Topic)
	assert.Equal(t, "a1", string(msg.Key))
	assert.Equal(t, "evt-1", kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID))
	assert.Equal(t, rec.Traceparent, kafkax.HeaderValue(msg.Headers, "traceparent"))
}
