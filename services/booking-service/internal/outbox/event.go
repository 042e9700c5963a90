package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	TypeAppointmentBooked    = "booking.appointment.booked.v1"
	TypeAppointmentCancelled = "booking.appointment.cancelled.v1"
	TypeSeriesCreated        = "booking.series.created.v1"

	aggregateAppointment = "appointment"
	aggregateSeries      = "appointment_series"
)

type appointmentPayload struct {
	AppointmentID   string    `json:"appointment_id"`
	BusinessID      string    `json:"business_id"`
	EmployeeID      string    `json:"employee_id,omitempty"`
	DoctorID        string    `json:"doctor_id,omitempty"`
	ClientName      string    `json:"client_name,omitempty"`
	ServiceName     string    `json:"service_name,omitempty"`
	Date            string    `json:"date"`
	StartTime       string    `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	GroupID         string    `json:"group_id,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func newAppointmentPayload(a model.Appointment, at time.Time) appointmentPayload {
	return appointmentPayload{
		AppointmentID:   a.ID,
		BusinessID:      a.BusinessID,
		EmployeeID:      a.EmployeeID,
		DoctorID:        a.DoctorID,
		ClientName:      a.ClientName,
		ServiceName:     a.ServiceName,
		Date:            model.FormatDate(a.Date),
		StartTime:       model.FormatClock(a.StartMinute),
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		GroupID:         a.GroupID,
		OccurredAt:      at.UTC(),
	}
}

func AppointmentBooked(a model.Appointment, at time.Time) (Event, error) {
	payload, err := json.Marshal(newAppointmentPayload(a, at))
	if err != nil {
		return Event{}, err
	}
	return Event{AggregateType: aggregateAppointment, AggregateID: a.ID, EventType: TypeAppointmentBooked, Payload: payload}, nil
}

func AppointmentCancelled(a model.Appointment, at time.Time) (Event, error) {
	p := newAppointmentPayload(a, at)
	p.Reason = a.CancelReason
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{AggregateType: aggregateAppointment, AggregateID: a.ID, EventType: TypeAppointmentCancelled, Payload: payload}, nil
}

type seriesPayload struct {
	GroupID        string    `json:"group_id"`
	BusinessID     string    `json:"business_id"`
	Frequency      string    `json:"frequency"`
	Interval       int       `json:"interval"`
	AppointmentIDs []string  `json:"appointment_ids"`
	Dates          []string  `json:"dates"`
	SkippedCount   int       `json:"skipped_count"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func SeriesCreated(rule model.RecurrenceRule, created []model.Appointment, skipped int, at time.Time) (Event, error) {
	p := seriesPayload{
		GroupID:      rule.GroupID,
		BusinessID:   rule.BusinessID,
		Frequency:    rule.Frequency,
		Interval:     rule.Interval,
		SkippedCount: skipped,
		OccurredAt:   at.UTC(),
	}
	for _, a := range created {
		p.AppointmentIDs = append(p.AppointmentIDs, a.ID)
		p.Dates = append(p.Dates, model.FormatDate(a.Date))
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{AggregateType: aggregateSeries, AggregateID: rule.GroupID, EventType: TypeSeriesCreated, Payload: payload}, nil
}
