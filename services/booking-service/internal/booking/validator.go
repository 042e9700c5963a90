package booking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	otelx "github.com/md-rashed-zaman/appointbook/libs/otel"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/hours"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
)

type Reason string

const (
	ReasonCenterClosed         Reason = "CENTER_CLOSED"
	ReasonOutsideBusinessHours Reason = "OUTSIDE_BUSINESS_HOURS"
	ReasonProviderConflict     Reason = "PROVIDER_CONFLICT"
	ReasonOutsideProviderHours Reason = "OUTSIDE_PROVIDER_HOURS"
)

// ConflictSummary describes the appointment a candidate collided with.
type ConflictSummary struct {
	AppointmentID string
	Kind          model.ProviderKind
	StartMinute   int
	EndMinute     int
	ServiceName   string
}

// Rejection is an expected scheduling outcome, not an error. Window is set for the
// OUTSIDE_* reasons when a window exists; Conflict is set for PROVIDER_CONFLICT when the
// conflicting appointment is known.
type Rejection struct {
	Reason   Reason
	Window   *hours.Window
	Conflict *ConflictSummary
}

// Candidate is a proposed slot. A zero Provider means the booking is not tied to anyone.
type Candidate struct {
	Provider        model.ProviderRef
	Date            time.Time
	StartMinute     int
	DurationMinutes int
}

func (c Candidate) EndMinute() int { return c.StartMinute + c.DurationMinutes }

func (c Candidate) check() error {
	if c.Date.IsZero() {
		return invalid("date is required")
	}
	if c.StartMinute < 0 || c.StartMinute >= model.MinutesPerDay {
		return invalid("start time out of range")
	}
	if c.DurationMinutes <= 0 || c.DurationMinutes > model.MinutesPerDay {
		return invalid("duration must be between 1 and %d minutes", model.MinutesPerDay)
	}
	if !c.Provider.IsZero() && c.Provider.Kind != model.ProviderEmployee && c.Provider.Kind != model.ProviderDoctor {
		return invalid("unknown provider kind %q", c.Provider.Kind)
	}
	return nil
}

type Decision struct {
	Rejection *Rejection
}

func (d Decision) Bookable() bool { return d.Rejection == nil }

type DateRejection struct {
	Date      time.Time
	Rejection Rejection
}

type BatchResult struct {
	Accepted []Candidate
	Rejected []DateRejection
}

type Validator struct {
	hours     *hours.Resolver
	conflicts *conflict.Detector
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

func NewValidator(resolver *hours.Resolver, detector *conflict.Detector, m *metrics.Metrics) *Validator {
	return &Validator{
		hours:     resolver,
		conflicts: detector,
		metrics:   m,
		tracer:    otelx.Tracer("booking-service/booking"),
	}
}

// Validate runs the checks in order and stops at the first rejection:
// business closed, outside business hours, provider conflict, outside provider hours.
func (v *Validator) Validate(ctx context.Context, businessID string, c Candidate) (Decision, error) {
	if err := c.check(); err != nil {
		return Decision{}, err
	}
	ctx, span := v.tracer.Start(ctx, "booking.validate", trace.WithAttributes(
		attribute.String("business_id", businessID),
		attribute.String("date", model.FormatDate(c.Date)),
		attribute.String("provider_kind", string(c.Provider.Kind)),
	))
	defer span.End()

	d, err := v.validate(ctx, businessID, c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validate failed")
		return Decision{}, err
	}
	outcome := "bookable"
	if d.Rejection != nil {
		outcome = string(d.Rejection.Reason)
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	v.metrics.ObserveDecision(outcome)
	return d, nil
}

func (v *Validator) validate(ctx context.Context, businessID string, c Candidate) (Decision, error) {
	business, err := v.hours.Business(ctx, businessID, c.Date)
	if err != nil {
		return Decision{}, err
	}
	if !business.IsOpen {
		return reject(Rejection{Reason: ReasonCenterClosed}), nil
	}
	if !business.Window.Contains(c.StartMinute, c.EndMinute()) {
		w := business.Window
		return reject(Rejection{Reason: ReasonOutsideBusinessHours, Window: &w}), nil
	}
	if c.Provider.IsZero() {
		return Decision{}, nil
	}

	res, err := v.conflicts.Check(ctx, businessID, c.Provider, c.Date, c.StartMinute, c.DurationMinutes)
	if err != nil {
		return Decision{}, err
	}
	if res.HasConflict {
		a := res.Appointment
		return reject(Rejection{Reason: ReasonProviderConflict, Conflict: &ConflictSummary{
			AppointmentID: a.ID,
			Kind:          res.Kind,
			StartMinute:   a.StartMinute,
			EndMinute:     a.EndMinute(),
			ServiceName:   a.ServiceName,
		}}), nil
	}

	provider, err := v.hours.ProviderOn(ctx, businessID, c.Provider, c.Date, business)
	if err != nil {
		return Decision{}, err
	}
	if !provider.HasOverride() {
		return Decision{}, nil
	}
	if !provider.IsAvailable() {
		return reject(Rejection{Reason: ReasonOutsideProviderHours}), nil
	}
	if w := provider.Window(); !w.Contains(c.StartMinute, c.EndMinute()) {
		return reject(Rejection{Reason: ReasonOutsideProviderHours, Window: &w}), nil
	}
	return Decision{}, nil
}

// ValidateBatch validates each candidate independently, keeping the input order in
// both result lists. It never fails because of rejections, only on infrastructure errors.
func (v *Validator) ValidateBatch(ctx context.Context, businessID string, candidates []Candidate) (BatchResult, error) {
	ctx, span := v.tracer.Start(ctx, "booking.validate_batch", trace.WithAttributes(
		attribute.String("business_id", businessID),
		attribute.Int("candidates", len(candidates)),
	))
	defer span.End()

	var out BatchResult
	for _, c := range candidates {
		d, err := v.Validate(ctx, businessID, c)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validate batch failed")
			return BatchResult{}, err
		}
		if d.Bookable() {
			out.Accepted = append(out.Accepted, c)
			continue
		}
		out.Rejected = append(out.Rejected, DateRejection{Date: c.Date, Rejection: *d.Rejection})
	}
	span.SetAttributes(attribute.Int("accepted", len(out.Accepted)), attribute.Int("rejected", len(out.Rejected)))
	return out, nil
}

func reject(r Rejection) Decision {
	return Decision{Rejection: &r}
}
