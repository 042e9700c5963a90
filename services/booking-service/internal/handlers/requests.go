package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/recurrence"
)

func providerRef(employeeID, doctorID string) (model.ProviderRef, error) {
	employeeID, doctorID = strings.TrimSpace(employeeID), strings.TrimSpace(doctorID)
	switch {
	case employeeID != "" && doctorID != "":
		return model.ProviderRef{}, errors.New("only one of employee_id and doctor_id may be set")
	case employeeID != "":
		if _, err := uuid.Parse(employeeID); err != nil {
			return model.ProviderRef{}, errors.New("employee_id must be a uuid")
		}
		return model.EmployeeRef(employeeID), nil
	case doctorID != "":
		if _, err := uuid.Parse(doctorID); err != nil {
			return model.ProviderRef{}, errors.New("doctor_id must be a uuid")
		}
		return model.DoctorRef(doctorID), nil
	default:
		return model.ProviderRef{}, nil
	}
}

func (s slotRequest) candidate() (booking.Candidate, error) {
	p, err := providerRef(s.EmployeeID, s.DoctorID)
	if err != nil {
		return booking.Candidate{}, err
	}
	date, err := model.ParseDate(s.Date)
	if err != nil {
		return booking.Candidate{}, errors.New("date must be YYYY-MM-DD")
	}
	start, err := model.ParseClock(s.Time)
	if err != nil {
		return booking.Candidate{}, errors.New("time must be HH:MM")
	}
	if s.DurationMinutes <= 0 {
		return booking.Candidate{}, errors.New("duration_minutes must be positive")
	}
	return booking.Candidate{Provider: p, Date: date, StartMinute: start, DurationMinutes: s.DurationMinutes}, nil
}

func (a appointmentRequest) request() (booking.Request, error) {
	c, err := a.candidate()
	if err != nil {
		return booking.Request{}, err
	}
	req := booking.Request{
		Candidate:   c,
		ClientName:  strings.TrimSpace(a.ClientName),
		ServiceName: strings.TrimSpace(a.ServiceName),
		Notes:       strings.TrimSpace(a.Notes),
	}
	if a.Status != "" {
		st, ok := model.ParseStatus(a.Status)
		if !ok {
			return booking.Request{}, fmt.Errorf("unknown status %q", a.Status)
		}
		req.Status = st
	}
	return req, nil
}

func (r recurringRequest) series() (booking.SeriesRequest, error) {
	var out booking.SeriesRequest
	if r.Template != nil {
		tmpl, err := r.Template.request()
		if err != nil {
			return booking.SeriesRequest{}, err
		}
		out.Template = &tmpl
	}

	freq, err := recurrence.ParseFrequency(r.Recurrence.Frequency)
	if err != nil {
		return booking.SeriesRequest{}, err
	}
	out.Rule = recurrence.Rule{Frequency: freq, Interval: r.Recurrence.Interval, Occurrences: r.Recurrence.Occurrences}
	if out.Rule.Interval == 0 {
		out.Rule.Interval = 1
	}
	if strings.TrimSpace(r.Recurrence.EndDate) != "" {
		end, err := model.ParseDate(r.Recurrence.EndDate)
		if err != nil {
			return booking.SeriesRequest{}, errors.New("recurrence.end_date must be YYYY-MM-DD")
		}
		out.Rule.EndDate = &end
	}
	return out, nil
}
