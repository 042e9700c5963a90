package availability

import (
	"time"

	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
)

// Document renders the snapshot as plain maps and slices. It is encoded as JSON by the HTTP
// API and converted to a structpb.Struct by the gRPC API, so it only uses []any and map[string]any.
func (s Snapshot) Document() map[string]any {
	providers := make([]any, 0, len(s.Providers))
	for _, p := range s.Providers {
		providers = append(providers, p.document())
	}
	return map[string]any{
		"as_of":     s.AsOf.Format(time.RFC3339),
		"date":      model.FormatDate(s.Date),
		"time":      model.FormatClock(s.Minute),
		"providers": providers,
	}
}

func (p ProviderAvailability) document() map[string]any {
	appts := make([]any, 0, len(p.Appointments))
	for _, a := range p.Appointments {
		appts = append(appts, AppointmentDocument(a))
	}
	doc := map[string]any{
		"provider_id":         p.Provider.Ref.ID,
		"provider_kind":       string(p.Provider.Ref.Kind),
		"name":                p.Provider.Name,
		"not_working":         p.NotWorking,
		"current_status":      string(p.Status),
		"appointment_count":   p.AppointmentCount,
		"appointments":        appts,
		"working_hours":       nil,
		"current_appointment": nil,
		"next_available_time": nil,
	}
	if p.WorkingHours != nil {
		doc["working_hours"] = map[string]any{
			"start": model.FormatClock(p.WorkingHours.Start),
			"end":   model.FormatClock(p.WorkingHours.End),
		}
	}
	if p.CurrentAppointment != nil {
		doc["current_appointment"] = AppointmentDocument(*p.CurrentAppointment)
	}
	if p.NextAvailable != nil {
		doc["next_available_time"] = model.FormatClock(*p.NextAvailable)
	}
	return doc
}

func AppointmentDocument(a model.Appointment) map[string]any {
	doc := map[string]any{
		"id":               a.ID,
		"date":             model.FormatDate(a.Date),
		"time":             model.FormatClock(a.StartMinute),
		"end_time":         model.FormatClock(a.EndMinute()),
		"duration_minutes": a.DurationMinutes,
		"status":           string(a.Status),
		"client_name":      a.ClientName,
		"service_name":     a.ServiceName,
	}
	if a.EmployeeID != "" {
		doc["employee_id"] = a.EmployeeID
	}
	if a.DoctorID != "" {
		doc["doctor_id"] = a.DoctorID
	}
	if a.GroupID != "" {
		doc["group_id"] = a.GroupID
	}
	if a.Notes != "" {
		doc["notes"] = a.Notes
	}
	return doc
}
