package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/appointbook/libs/httpx"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/recurrence"
)

type BookingService interface {
	Validate(ctx context.Context, businessID string, c booking.Candidate) (booking.Decision, error)
	Book(ctx context.Context, businessID string, req booking.Request) (model.Appointment, *booking.Rejection, error)
	CreateRecurring(ctx context.Context, businessID string, req booking.SeriesRequest) (booking.SeriesResult, error)
	Cancel(ctx context.Context, businessID, appointmentID, reason string) (model.Appointment, error)
	List(ctx context.Context, businessID string, date time.Time) ([]model.Appointment, error)
}

type BookingHandler struct {
	svc    BookingService
	logger *slog.Logger
}

func NewBookingHandler(svc BookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

type slotRequest struct {
	EmployeeID      string `json:"employee_id"`
	DoctorID        string `json:"doctor_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
}

type appointmentRequest struct {
	slotRequest
	ClientName  string `json:"client_name"`
	ServiceName string `json:"service_name"`
	Notes       string `json:"notes"`
	Status      string `json:"status"`
}

type recurrenceRequest struct {
	Frequency   string `json:"frequency"`
	Interval    int    `json:"interval"`
	EndDate     string `json:"end_date"`
	Occurrences int    `json:"occurrences"`
}

type recurringRequest struct {
	Template   *appointmentRequest `json:"template"`
	Recurrence recurrenceRequest   `json:"recurrence"`
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type windowBody struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type conflictBody struct {
	AppointmentID string `json:"appointment_id,omitempty"`
	ProviderKind  string `json:"provider_kind,omitempty"`
	Time          string `json:"time,omitempty"`
	EndTime       string `json:"end_time,omitempty"`
	ServiceName   string `json:"service_name,omitempty"`
}

type rejectionDetail struct {
	Window   *windowBody   `json:"window,omitempty"`
	Conflict *conflictBody `json:"conflict,omitempty"`
}

type decisionBody struct {
	Bookable bool             `json:"bookable"`
	Reason   string           `json:"reason,omitempty"`
	Detail   *rejectionDetail `json:"detail,omitempty"`
}

type skippedBody struct {
	Date   string           `json:"date"`
	Reason string           `json:"reason"`
	Detail *rejectionDetail `json:"detail,omitempty"`
}

type seriesBody struct {
	GroupID        string           `json:"group_id"`
	CreatedCount   int              `json:"created_count"`
	Created        []map[string]any `json:"created"`
	SkippedCount   int              `json:"skipped_count"`
	Skipped        []skippedBody    `json:"skipped"`
	TotalRequested int              `json:"total_requested"`
}

type seriesRejectedBody struct {
	Error          string        `json:"error"`
	CreatedCount   int           `json:"created_count"`
	SkippedCount   int           `json:"skipped_count"`
	Skipped        []skippedBody `json:"skipped"`
	TotalRequested int           `json:"total_requested"`
}

func (h *BookingHandler) Validate(w http.ResponseWriter, r *http.Request) {
	businessID, ok := requireMethodAndTenant(w, r, http.MethodPost)
	if !ok {
		return
	}
	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	c, err := req.candidate()
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.svc.Validate(r.Context(), businessID, c)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if !d.Bookable() {
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, rejectionBody(d.Rejection))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, decisionBody{Bookable: true})
}

func (h *BookingHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Create(w, r)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	businessID, ok := requireMethodAndTenant(w, r, http.MethodPost)
	if !ok {
		return
	}
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	breq, err := req.request()
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	appt, rej, err := h.svc.Book(r.Context(), businessID, breq)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if rej != nil {
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, rejectionBody(rej))
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, availability.AppointmentDocument(appt))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := requireMethodAndTenant(w, r, http.MethodGet)
	if !ok {
		return
	}
	date, err := model.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	appts, err := h.svc.List(r.Context(), businessID, date)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(appts))
	for _, a := range appts {
		items = append(items, availability.AppointmentDocument(a))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"date": model.FormatDate(date), "appointments": items})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	businessID, ok := requireMethodAndTenant(w, r, http.MethodPost)
	if !ok {
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if _, err := uuid.Parse(req.AppointmentID); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "appointment_id must be a uuid")
		return
	}

	appt, err := h.svc.Cancel(r.Context(), businessID, req.AppointmentID, strings.TrimSpace(req.Reason))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	body := availability.AppointmentDocument(appt)
	if appt.CancelledAt != nil {
		body["cancelled_at"] = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	httpx.WriteJSON(w, http.StatusOK, body)
}

func (h *BookingHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	businessID, ok := requireMethodAndTenant(w, r, http.MethodPost)
	if !ok {
		return
	}
	var req recurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	sreq, err := req.series()
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.CreateRecurring(r.Context(), businessID, sreq)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	body := seriesBody{
		GroupID:        res.GroupID,
		CreatedCount:   len(res.Created),
		Created:        make([]map[string]any, 0, len(res.Created)),
		SkippedCount:   len(res.Skipped),
		Skipped:        skippedBodies(res.Skipped),
		TotalRequested: res.TotalRequested,
	}
	for _, a := range res.Created {
		body.Created = append(body.Created, availability.AppointmentDocument(a))
	}
	httpx.WriteJSON(w, http.StatusCreated, body)
}

func (h *BookingHandler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var series *booking.SeriesRejectedError
	switch {
	case errors.As(err, &series):
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, seriesRejectedBody{
			Error:          "no date in the series could be booked",
			SkippedCount:   len(series.Skipped),
			Skipped:        skippedBodies(series.Skipped),
			TotalRequested: series.TotalRequested,
		})
	case isInputError(err):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, booking.ErrNotCancellable):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("booking request failed", "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func isInputError(err error) bool {
	for _, target := range []error{
		booking.ErrInvalidCandidate,
		booking.ErrMissingTemplate,
		booking.ErrNoOccurrences,
		recurrence.ErrInvalidFrequency,
		recurrence.ErrInvalidInterval,
		recurrence.ErrInvalidTermination,
		recurrence.ErrTooManyOccurrences,
		recurrence.ErrEndBeforeStart,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func requireMethodAndTenant(w http.ResponseWriter, r *http.Request, method string) (string, bool) {
	if r.Method != method {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return "", false
	}
	businessID := httpx.BusinessID(r)
	if businessID == "" {
		httpx.WriteError(w, http.StatusBadRequest, httpx.BusinessIDHeader+" header required")
		return "", false
	}
	return businessID, true
}

func rejectionBody(rej *booking.Rejection) decisionBody {
	return decisionBody{Bookable: false, Reason: string(rej.Reason), Detail: detailOf(*rej)}
}

func detailOf(rej booking.Rejection) *rejectionDetail {
	if rej.Window == nil && rej.Conflict == nil {
		return nil
	}
	d := &rejectionDetail{}
	if rej.Window != nil {
		d.Window = &windowBody{Start: model.FormatClock(rej.Window.Start), End: model.FormatClock(rej.Window.End)}
	}
	if c := rej.Conflict; c != nil {
		d.Conflict = &conflictBody{
			AppointmentID: c.AppointmentID,
			ProviderKind:  string(c.Kind),
			Time:          model.FormatClock(c.StartMinute),
			EndTime:       model.FormatClock(c.EndMinute),
			ServiceName:   c.ServiceName,
		}
	}
	return d
}

func skippedBodies(in []booking.DateRejection) []skippedBody {
	out := make([]skippedBody, 0, len(in))
	for _, s := range in {
		out = append(out, skippedBody{
			Date:   model.FormatDate(s.Date),
			Reason: string(s.Rejection.Reason),
			Detail: detailOf(s.Rejection),
		})
	}
	return out
}
