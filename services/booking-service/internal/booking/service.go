package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/recurrence"
)

// Tx is the write side of one database transaction.
type Tx interface {
	// InsertAppointment assigns ID and CreatedAt. It returns model.ErrSlotTaken when the
	// provider's time is already taken, and the transaction stays usable afterwards.
	InsertAppointment(ctx context.Context, appt *model.Appointment) error
	InsertRecurrenceRule(ctx context.Context, rule *model.RecurrenceRule) error
	GetAppointmentForUpdate(ctx context.Context, businessID, id string) (model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, appt model.Appointment) error
	Enqueue(ctx context.Context, evt outbox.Event) error
}

type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	ListAppointments(ctx context.Context, businessID string, date time.Time) ([]model.Appointment, error)
}

// Request is a single appointment to create.
type Request struct {
	Candidate
	ClientName  string
	ServiceName string
	Notes       string
	Status      model.Status
}

func (r Request) appointment(businessID string, date time.Time) model.Appointment {
	a := model.Appointment{
		BusinessID:      businessID,
		ClientName:      r.ClientName,
		ServiceName:     r.ServiceName,
		Notes:           r.Notes,
		Date:            model.DateOf(date),
		StartMinute:     r.StartMinute,
		DurationMinutes: r.DurationMinutes,
		Status:          r.Status,
	}
	if a.Status == "" {
		a.Status = model.StatusPending
	}
	a.SetProvider(r.Provider)
	return a
}

func (r Request) check() error {
	if err := r.Candidate.check(); err != nil {
		return err
	}
	if r.Status != "" && !r.Status.BlocksProvider() {
		return invalid("cannot create an appointment with status %q", r.Status)
	}
	return nil
}

type SeriesRequest struct {
	Template *Request
	Rule     recurrence.Rule
}

type SeriesResult struct {
	GroupID        string
	Rule           model.RecurrenceRule
	Created        []model.Appointment
	Skipped        []DateRejection
	TotalRequested int
}

var errSeriesEmpty = errors.New("every accepted date was taken at insert time")

type Service struct {
	validator *Validator
	store     Store
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(validator *Validator, store Store, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{validator: validator, store: store, logger: logger, metrics: m, now: time.Now}
}

// Validate checks a single slot without writing anything.
func (s *Service) Validate(ctx context.Context, businessID string, c Candidate) (Decision, error) {
	return s.validator.Validate(ctx, businessID, c)
}

// Book validates the request and inserts it together with its outbox event. A non-nil
// Rejection means nothing was written.
func (s *Service) Book(ctx context.Context, businessID string, req Request) (model.Appointment, *Rejection, error) {
	if err := req.check(); err != nil {
		return model.Appointment{}, nil, err
	}
	d, err := s.validator.Validate(ctx, businessID, req.Candidate)
	if err != nil {
		return model.Appointment{}, nil, err
	}
	if !d.Bookable() {
		s.logger.Info("booking rejected", "business_id", businessID, "reason", d.Rejection.Reason)
		return model.Appointment{}, d.Rejection, nil
	}

	appt := req.appointment(businessID, req.Date)
	err = s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.InsertAppointment(ctx, &appt); err != nil {
			return err
		}
		evt, err := outbox.AppointmentBooked(appt, s.now())
		if err != nil {
			return err
		}
		return tx.Enqueue(ctx, evt)
	})
	if errors.Is(err, model.ErrSlotTaken) {
		s.logger.Info("booking lost race for slot", "business_id", businessID, "date", model.FormatDate(req.Date))
		return model.Appointment{}, &Rejection{Reason: ReasonProviderConflict}, nil
	}
	if err != nil {
		return model.Appointment{}, nil, fmt.Errorf("create appointment: %w", err)
	}
	return appt, nil, nil
}

// CreateRecurring expands the rule from the template's date, validates every date on its
// own and persists the bookable ones under a new group id with one recurrence rule row.
// It returns *SeriesRejectedError when no date can be booked.
func (s *Service) CreateRecurring(ctx context.Context, businessID string, req SeriesRequest) (SeriesResult, error) {
	if req.Template == nil || req.Template.Date.IsZero() {
		return SeriesResult{}, ErrMissingTemplate
	}
	tmpl := *req.Template
	if err := tmpl.check(); err != nil {
		return SeriesResult{}, err
	}
	if err := req.Rule.Validate(tmpl.Date); err != nil {
		return SeriesResult{}, err
	}
	dates := recurrence.Expand(tmpl.Date, req.Rule)
	if len(dates) == 0 {
		return SeriesResult{}, ErrNoOccurrences
	}

	candidates := make([]Candidate, 0, len(dates))
	for _, d := range dates {
		c := tmpl.Candidate
		c.Date = d
		candidates = append(candidates, c)
	}
	batch, err := s.validator.ValidateBatch(ctx, businessID, candidates)
	if err != nil {
		return SeriesResult{}, err
	}
	if len(batch.Accepted) == 0 {
		s.metrics.ObserveSeries(0, len(dates))
		s.logger.Info("recurring booking rejected", "business_id", businessID, "requested", len(dates))
		return SeriesResult{}, &SeriesRejectedError{TotalRequested: len(dates), Skipped: batch.Rejected}
	}

	rule := model.RecurrenceRule{
		BusinessID: businessID,
		GroupID:    uuid.NewString(),
		Frequency:  string(req.Rule.Frequency),
		Interval:   req.Rule.Interval,
		EndDate:    req.Rule.EndDate,
	}
	if req.Rule.Occurrences > 0 {
		n := req.Rule.Occurrences
		rule.Occurrences = &n
	}

	var (
		created []model.Appointment
		skipped []DateRejection
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		created, skipped = nil, append([]DateRejection(nil), batch.Rejected...)
		if err := tx.InsertRecurrenceRule(ctx, &rule); err != nil {
			return err
		}
		for _, c := range batch.Accepted {
			appt := tmpl.appointment(businessID, c.Date)
			appt.GroupID = rule.GroupID
			err := tx.InsertAppointment(ctx, &appt)
			if errors.Is(err, model.ErrSlotTaken) {
				skipped = append(skipped, DateRejection{Date: c.Date, Rejection: Rejection{Reason: ReasonProviderConflict}})
				continue
			}
			if err != nil {
				return err
			}
			created = append(created, appt)
		}
		if len(created) == 0 {
			return errSeriesEmpty
		}
		sortByDate(skipped)

		now := s.now()
		for _, appt := range created {
			evt, err := outbox.AppointmentBooked(appt, now)
			if err != nil {
				return err
			}
			if err := tx.Enqueue(ctx, evt); err != nil {
				return err
			}
		}
		evt, err := outbox.SeriesCreated(rule, created, len(skipped), now)
		if err != nil {
			return err
		}
		return tx.Enqueue(ctx, evt)
	})
	if errors.Is(err, errSeriesEmpty) {
		s.metrics.ObserveSeries(0, len(dates))
		return SeriesResult{}, &SeriesRejectedError{TotalRequested: len(dates), Skipped: skipped}
	}
	if err != nil {
		return SeriesResult{}, fmt.Errorf("create series: %w", err)
	}

	s.metrics.ObserveSeries(len(created), len(skipped))
	s.logger.Info("recurring booking created",
		"business_id", businessID,
		"group_id", rule.GroupID,
		"created", len(created),
		"skipped", len(skipped),
	)
	return SeriesResult{
		GroupID:        rule.GroupID,
		Rule:           rule,
		Created:        created,
		Skipped:        skipped,
		TotalRequested: len(dates),
	}, nil
}

// Cancel marks an appointment cancelled. Cancelling twice is a no-op.
func (s *Service) Cancel(ctx context.Context, businessID, appointmentID, reason string) (model.Appointment, error) {
	if appointmentID == "" {
		return model.Appointment{}, invalid("appointment id is required")
	}
	var out model.Appointment
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := tx.GetAppointmentForUpdate(ctx, businessID, appointmentID)
		if err != nil {
			return err
		}
		out = appt
		switch appt.Status {
		case model.StatusCancelled:
			return nil
		case model.StatusCompleted, model.StatusNoShow:
			return ErrNotCancellable
		}
		now := s.now()
		appt.Status = model.StatusCancelled
		appt.CancelReason = reason
		appt.CancelledAt = &now
		if err := tx.UpdateAppointmentStatus(ctx, appt); err != nil {
			return err
		}
		evt, err := outbox.AppointmentCancelled(appt, now)
		if err != nil {
			return err
		}
		out = appt
		return tx.Enqueue(ctx, evt)
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, businessID string, date time.Time) ([]model.Appointment, error) {
	return s.store.ListAppointments(ctx, businessID, model.DateOf(date))
}

func sortByDate(in []DateRejection) {
	sort.SliceStable(in, func(i, j int) bool { return in[i].Date.Before(in[j].Date) })
}
