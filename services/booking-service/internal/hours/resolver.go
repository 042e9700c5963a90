// Package hours resolves the opening hours of a business and the working hours of its
// providers for a calendar day.
package hours

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
)

// Window is a half-open [Start, End) range in minutes after midnight.
type Window struct {
	Start int
	End   int
}

func (w Window) Valid() bool {
	return w.Start >= 0 && w.End > w.Start && w.End <= model.MinutesPerDay
}

// Contains reports whether [start, end) lies inside the window. Touching the edges is allowed.
func (w Window) Contains(start, end int) bool {
	return start >= w.Start && end <= w.End
}

// BusinessDay is the resolved opening state of a business for one date.
type BusinessDay struct {
	IsOpen bool
	Window Window
}

// ScheduleOverride is an explicit provider schedule row for one weekday.
type ScheduleOverride struct {
	IsAvailable bool
	Window      Window
}

// ProviderDay is the resolved working state of a provider for one date.
// Override is nil when the provider has no row for the weekday, in which case the
// provider follows the business hours.
type ProviderDay struct {
	Override *ScheduleOverride
	Business BusinessDay
}

func (p ProviderDay) HasOverride() bool { return p.Override != nil }

// IsAvailable is false only for an explicit "not available" row. Whether the business
// itself is open is a separate question.
func (p ProviderDay) IsAvailable() bool {
	if p.Override != nil {
		return p.Override.IsAvailable
	}
	return true
}

func (p ProviderDay) Window() Window {
	if p.Override != nil {
		return p.Override.Window
	}
	return p.Business.Window
}

// RuleStore reads the per-tenant rule tables. A missing row is reported with ok=false
// and a nil error.
type RuleStore interface {
	BusinessHoursRule(ctx context.Context, businessID string, weekday int) (day BusinessDay, ok bool, err error)
	ProviderScheduleRule(ctx context.Context, businessID string, provider model.ProviderRef, weekday int) (rule ScheduleOverride, ok bool, err error)
}

type Resolver struct {
	store RuleStore
}

func NewResolver(store RuleStore) *Resolver {
	return &Resolver{store: store}
}

// EffectiveWeekday maps a date onto the stored day-of-week convention,
// 0=Saturday through 6=Friday.
func EffectiveWeekday(date time.Time) int {
	native := int(date.Weekday())
	if native == 6 {
		return 0
	}
	return native + 1
}

// Business resolves the business hours for date. A missing or unusable row means closed.
func (r *Resolver) Business(ctx context.Context, businessID string, date time.Time) (BusinessDay, error) {
	day, ok, err := r.store.BusinessHoursRule(ctx, businessID, EffectiveWeekday(date))
	if err != nil {
		return BusinessDay{}, fmt.Errorf("business hours: %w", err)
	}
	if !ok || !day.IsOpen || !day.Window.Valid() {
		return BusinessDay{}, nil
	}
	return day, nil
}

// Provider resolves the provider's hours for date, reading the business hours as well.
func (r *Resolver) Provider(ctx context.Context, businessID string, provider model.ProviderRef, date time.Time) (ProviderDay, error) {
	business, err := r.Business(ctx, businessID, date)
	if err != nil {
		return ProviderDay{}, err
	}
	return r.ProviderOn(ctx, businessID, provider, date, business)
}

// ProviderOn is Provider with the business hours already resolved by the caller.
func (r *Resolver) ProviderOn(ctx context.Context, businessID string, provider model.ProviderRef, date time.Time, business BusinessDay) (ProviderDay, error) {
	rule, ok, err := r.store.ProviderScheduleRule(ctx, businessID, provider, EffectiveWeekday(date))
	if err != nil {
		return ProviderDay{}, fmt.Errorf("%s schedule: %w", provider.Kind, err)
	}
	out := ProviderDay{Business: business}
	if ok {
		// An "available" row whose window cannot hold any time is read as unavailable.
		if rule.IsAvailable && !rule.Window.Valid() {
			rule = ScheduleOverride{}
		}
		out.Override = &rule
	}
	return out, nil
}
