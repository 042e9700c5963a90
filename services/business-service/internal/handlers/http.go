package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/appointbook/libs/httpx"
	"github.com/md-rashed-zaman/appointbook/services/business-service/internal/storage"
)

const minutesPerDay = 1440

type Repository interface {
	ListBusinessHours(ctx context.Context, businessID string) ([]storage.BusinessDay, error)
	PutBusinessHours(ctx context.Context, businessID string, days []storage.BusinessDay) error
	CreateProvider(ctx context.Context, p storage.Provider) (string, error)
	ListProviders(ctx context.Context, businessID string, kind storage.ProviderKind, limit int) ([]storage.Provider, error)
	SetProviderActive(ctx context.Context, businessID string, kind storage.ProviderKind, id string, active bool) error
	ListProviderSchedules(ctx context.Context, businessID string, kind storage.ProviderKind, id string) ([]storage.ProviderSchedule, error)
	PutProviderSchedule(ctx context.Context, businessID string, kind storage.ProviderKind, id string, s storage.ProviderSchedule) error
	DeleteProviderSchedule(ctx context.Context, businessID string, kind storage.ProviderKind, id string, dayOfWeek int) error
}

type Handler struct {
	repo   Repository
	logger *slog.Logger
}

func New(repo Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) tenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	businessID := httpx.BusinessID(r)
	if businessID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing "+httpx.BusinessIDHeader)
		return "", false
	}
	return businessID, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if storage.IsNotFound(err) {
		httpx.WriteError(w, http.StatusNotFound, "not found")
		return
	}
	h.logger.Error(msg, "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
	httpx.WriteError(w, http.StatusInternalServerError, msg)
}

// BusinessHours serves GET (seven rows) and PUT (replace the given rows).
func (h *Handler) BusinessHours(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		days, err := h.repo.ListBusinessHours(r.Context(), businessID)
		if err != nil {
			h.fail(w, r, "failed to load business hours", err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"days": days})
	case http.MethodPut:
		var req struct {
			Days []storage.BusinessDay `json:"days"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		days, err := normalizeBusinessDays(req.Days)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.repo.PutBusinessHours(r.Context(), businessID, days); err != nil {
			h.fail(w, r, "failed to update business hours", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func normalizeBusinessDays(days []storage.BusinessDay) ([]storage.BusinessDay, error) {
	if len(days) == 0 {
		return nil, errors.New("days is required")
	}
	seen := make(map[int]bool, len(days))
	out := make([]storage.BusinessDay, 0, len(days))
	for _, d := range days {
		if err := checkDay(d.DayOfWeek); err != nil {
			return nil, err
		}
		if seen[d.DayOfWeek] {
			return nil, fmt.Errorf("day_of_week %d listed twice", d.DayOfWeek)
		}
		seen[d.DayOfWeek] = true
		if !d.IsOpen {
			d.StartMinute, d.EndMinute = 0, 0
		} else if err := checkWindow(d.StartMinute, d.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func checkDay(day int) error {
	if day < 0 || day > 6 {
		return errors.New("day_of_week must be between 0 (Saturday) and 6 (Friday)")
	}
	return nil
}

func checkWindow(start, end int) error {
	if start < 0 || start >= minutesPerDay || end <= 0 || end > minutesPerDay || start >= end {
		return errors.New("invalid start_minute/end_minute")
	}
	return nil
}

// Providers returns the handler for /employees or /doctors.
func (h *Handler) Providers(kind storage.ProviderKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID, ok := h.tenant(w, r)
		if !ok {
			return
		}
		switch r.Method {
		case http.MethodGet:
			list, err := h.repo.ListProviders(r.Context(), businessID, kind, 100)
			if err != nil {
				h.fail(w, r, "failed to list providers", err)
				return
			}
			if list == nil {
				list = []storage.Provider{}
			}
			httpx.WriteJSON(w, http.StatusOK, list)
		case http.MethodPost:
			var req struct {
				Name      string `json:"name"`
				Specialty string `json:"specialty"`
				IsActive  *bool  `json:"is_active"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
				return
			}
			req.Name = strings.TrimSpace(req.Name)
			if req.Name == "" {
				httpx.WriteError(w, http.StatusBadRequest, "name is required")
				return
			}
			p := storage.Provider{
				BusinessID: businessID,
				Kind:       kind,
				Name:       req.Name,
				Specialty:  strings.TrimSpace(req.Specialty),
				IsActive:   req.IsActive == nil || *req.IsActive,
			}
			id, err := h.repo.CreateProvider(r.Context(), p)
			if err != nil {
				h.fail(w, r, "failed to create provider", err)
				return
			}
			httpx.WriteJSON(w, http.StatusCreated, map[string]any{"id": id})
		default:
			httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

// SetActive flips is_active for one employee or doctor.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	businessID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	var req struct {
		EmployeeID string `json:"employee_id"`
		DoctorID   string `json:"doctor_id"`
		IsActive   bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	kind, id, err := providerRef(req.EmployeeID, req.DoctorID)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.repo.SetProviderActive(r.Context(), businessID, kind, id, req.IsActive); err != nil {
		h.fail(w, r, "failed to update provider", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Schedules lists (GET), upserts (PUT) and removes (DELETE) provider override rows.
// Removing a row restores the fallback to business hours for that weekday.
func (h *Handler) Schedules(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	switch r.Method {
	case http.MethodGet:
		kind, id, err := providerRef(q.Get("employee_id"), q.Get("doctor_id"))
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		rows, err := h.repo.ListProviderSchedules(r.Context(), businessID, kind, id)
		if err != nil {
			h.fail(w, r, "failed to list schedules", err)
			return
		}
		if rows == nil {
			rows = []storage.ProviderSchedule{}
		}
		httpx.WriteJSON(w, http.StatusOK, rows)
	case http.MethodPut:
		var req struct {
			EmployeeID string `json:"employee_id"`
			DoctorID   string `json:"doctor_id"`
			storage.ProviderSchedule
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		kind, id, err := providerRef(req.EmployeeID, req.DoctorID)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		row := req.ProviderSchedule
		if err := checkDay(row.DayOfWeek); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !row.IsAvailable {
			row.StartMinute, row.EndMinute = 0, 0
		} else if err := checkWindow(row.StartMinute, row.EndMinute); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.repo.PutProviderSchedule(r.Context(), businessID, kind, id, row); err != nil {
			h.fail(w, r, "failed to update schedule", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		kind, id, err := providerRef(q.Get("employee_id"), q.Get("doctor_id"))
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		day, err := strconv.Atoi(q.Get("day_of_week"))
		if err != nil || checkDay(day) != nil {
			httpx.WriteError(w, http.StatusBadRequest, "day_of_week must be between 0 (Saturday) and 6 (Friday)")
			return
		}
		if err := h.repo.DeleteProviderSchedule(r.Context(), businessID, kind, id, day); err != nil {
			h.fail(w, r, "failed to delete schedule", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func providerRef(employeeID, doctorID string) (storage.ProviderKind, string, error) {
	employeeID, doctorID = strings.TrimSpace(employeeID), strings.TrimSpace(doctorID)
	switch {
	case employeeID != "" && doctorID != "":
		return "", "", errors.New("set only one of employee_id and doctor_id")
	case employeeID != "":
		if _, err := uuid.Parse(employeeID); err != nil {
			return "", "", errors.New("employee_id must be a uuid")
		}
		return storage.KindEmployee, employeeID, nil
	case doctorID != "":
		if _, err := uuid.Parse(doctorID); err != nil {
			return "", "", errors.New("doctor_id must be a uuid")
		}
		return storage.KindDoctor, doctorID, nil
	}
	return "", "", errors.New("employee_id or doctor_id is required")
}

func Register(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("/api/v1/business/hours", h.BusinessHours)
	mux.HandleFunc("/api/v1/business/employees", h.Providers(storage.KindEmployee))
	mux.HandleFunc("/api/v1/business/doctors", h.Providers(storage.KindDoctor))
	mux.HandleFunc("/api/v1/business/providers/active", h.SetActive)
	mux.HandleFunc("/api/v1/business/schedules", h.Schedules)
}
