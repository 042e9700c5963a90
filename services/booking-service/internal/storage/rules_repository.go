package storage

import (
	"context"

	"github.com/md-rashed-zaman/appointbook/libs/db"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/hours"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
)

// RulesRepository reads the business hours, provider schedules and provider tables.
type RulesRepository struct {
	pool *db.Pool
}

func NewRulesRepository(pool *db.Pool) *RulesRepository {
	return &RulesRepository{pool: pool}
}

func (r *RulesRepository) BusinessHoursRule(ctx context.Context, businessID string, weekday int) (hours.BusinessDay, bool, error) {
	var day hours.BusinessDay
	err := r.pool.QueryRow(ctx, `
		SELECT is_open, start_minute, end_minute
		FROM business_hours
		WHERE business_id = $1 AND day_of_week = $2
	`, businessID, weekday).Scan(&day.IsOpen, &day.Window.Start, &day.Window.End)
	if IsNotFound(err) {
		return hours.BusinessDay{}, false, nil
	}
	if err != nil {
		return hours.BusinessDay{}, false, err
	}
	return day, true, nil
}

func (r *RulesRepository) ProviderScheduleRule(ctx context.Context, businessID string, provider model.ProviderRef, weekday int) (hours.ScheduleOverride, bool, error) {
	query := `
		SELECT is_available, start_minute, end_minute
		FROM employee_schedules
		WHERE business_id = $1 AND employee_id = $2 AND day_of_week = $3`
	if provider.Kind == model.ProviderDoctor {
		query = `
		SELECT is_available, start_minute, end_minute
		FROM doctor_schedules
		WHERE business_id = $1 AND doctor_id = $2 AND day_of_week = $3`
	}

	var available int16
	var rule hours.ScheduleOverride
	err := r.pool.QueryRow(ctx, query, businessID, provider.ID, weekday).Scan(&available, &rule.Window.Start, &rule.Window.End)
	if IsNotFound(err) {
		return hours.ScheduleOverride{}, false, nil
	}
	if err != nil {
		return hours.ScheduleOverride{}, false, err
	}
	rule.IsAvailable = available != 0
	return rule, true, nil
}

// ListActiveProviders returns active employees first, then active doctors, each by name.
func (r *RulesRepository) ListActiveProviders(ctx context.Context, businessID string) ([]model.Provider, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT 'employee', id::text, name FROM employees WHERE business_id = $1 AND is_active
		UNION ALL
		SELECT 'doctor', id::text, name FROM doctors WHERE business_id = $1 AND is_active
		ORDER BY 1 DESC, 3 ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Provider
	for rows.Next() {
		var kind string
		p := model.Provider{IsActive: true}
		if err := rows.Scan(&kind, &p.Ref.ID, &p.Name); err != nil {
			return nil, err
		}
		p.Ref.Kind = model.ProviderKind(kind)
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ hours.RuleStore = (*RulesRepository)(nil)
