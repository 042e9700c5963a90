package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/appointbook/libs/httpx"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
)

type AvailabilityService interface {
	Today(ctx context.Context, businessID string) (availability.Snapshot, error)
	Snapshot(ctx context.Context, businessID string, asOf time.Time) (availability.Snapshot, error)
	Slots(ctx context.Context, businessID string, provider model.ProviderRef, date time.Time, duration, step int) ([]int, error)
}

type AvailabilityHandler struct {
	svc    AvailabilityService
	logger *slog.Logger
}

func NewAvailabilityHandler(svc AvailabilityService, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc, logger: logger}
}

// Today serves the front-desk dashboard. ?at=RFC3339 replays the snapshot at another instant.
func (h *AvailabilityHandler) Today(w http.ResponseWriter, r *http.Request) {
	businessID, ok := requireMethodAndTenant(w, r, http.MethodGet)
	if !ok {
		return
	}

	var (
		snap availability.Snapshot
		err  error
	)
	if raw := r.URL.Query().Get("at"); raw != "" {
		at, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			httpx.WriteError(w, http.StatusBadRequest, "at must be RFC3339")
			return
		}
		snap, err = h.svc.Snapshot(r.Context(), businessID, at)
	} else {
		snap, err = h.svc.Today(r.Context(), businessID)
	}
	if err != nil {
		h.logger.Error("availability snapshot failed", "business_id", businessID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, snap.Document())
}

func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	businessID, ok := requireMethodAndTenant(w, r, http.MethodGet)
	if !ok {
		return
	}
	q := r.URL.Query()
	provider, err := providerRef(q.Get("employee_id"), q.Get("doctor_id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if provider.IsZero() {
		httpx.WriteError(w, http.StatusBadRequest, "employee_id or doctor_id required")
		return
	}
	date, err := model.ParseDate(q.Get("date"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	duration, err := strconv.Atoi(q.Get("duration_minutes"))
	if err != nil || duration <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "duration_minutes must be a positive integer")
		return
	}
	step := 15
	if raw := q.Get("step_minutes"); raw != "" {
		step, err = strconv.Atoi(raw)
		if err != nil || step <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "step_minutes must be a positive integer")
			return
		}
	}

	slots, err := h.svc.Slots(r.Context(), businessID, provider, date, duration, step)
	if err != nil {
		h.logger.Error("slot listing failed", "business_id", businessID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	items := make([]windowBody, 0, len(slots))
	for _, s := range slots {
		items = append(items, windowBody{Start: model.FormatClock(s), End: model.FormatClock(s + duration)})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"date":             model.FormatDate(date),
		"duration_minutes": duration,
		"slots":            items,
	})
}
