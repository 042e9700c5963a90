package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/appointbook/libs/db"
)

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrUnknownKind = errors.New("storage: unknown provider kind")
)

type ProviderKind string

const (
	KindEmployee ProviderKind = "employee"
	KindDoctor   ProviderKind = "doctor"
)

// table returns the provider table, its schedule table and the schedule's provider column.
func (k ProviderKind) table() (providers, schedules, column string, err error) {
	switch k {
	case KindEmployee:
		return "employees", "employee_schedules", "employee_id", nil
	case KindDoctor:
		return "doctors", "doctor_schedules", "doctor_id", nil
	}
	return "", "", "", ErrUnknownKind
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// BusinessDay is one row of business_hours. DayOfWeek counts from 0 = Saturday.
type BusinessDay struct {
	DayOfWeek   int  `json:"day_of_week"`
	IsOpen      bool `json:"is_open"`
	StartMinute int  `json:"start_minute"`
	EndMinute   int  `json:"end_minute"`
}

// ListBusinessHours always returns seven days; days without a row are reported closed.
func (r *Repository) ListBusinessHours(ctx context.Context, businessID string) ([]BusinessDay, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day_of_week, is_open, start_minute, end_minute
		FROM business_hours
		WHERE business_id = $1
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	week := make([]BusinessDay, 7)
	for i := range week {
		week[i].DayOfWeek = i
	}
	for rows.Next() {
		var d BusinessDay
		if err := rows.Scan(&d.DayOfWeek, &d.IsOpen, &d.StartMinute, &d.EndMinute); err != nil {
			return nil, err
		}
		if d.DayOfWeek >= 0 && d.DayOfWeek < len(week) {
			week[d.DayOfWeek] = d
		}
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return week, nil
}

func (r *Repository) PutBusinessHours(ctx context.Context, businessID string, days []BusinessDay) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, d := range days {
		if _, err := tx.Exec(ctx, `
			INSERT INTO business_hours (business_id, day_of_week, is_open, start_minute, end_minute)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (business_id, day_of_week) DO UPDATE
			SET is_open = EXCLUDED.is_open,
				start_minute = EXCLUDED.start_minute,
				end_minute = EXCLUDED.end_minute,
				updated_at = now()
		`, businessID, d.DayOfWeek, d.IsOpen, d.StartMinute, d.EndMinute); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

type Provider struct {
	ID         string       `json:"id"`
	BusinessID string       `json:"business_id"`
	Kind       ProviderKind `json:"kind"`
	Name       string       `json:"name"`
	Specialty  string       `json:"specialty,omitempty"`
	IsActive   bool         `json:"is_active"`
	CreatedAt  time.Time    `json:"created_at"`
}

func (r *Repository) CreateProvider(ctx context.Context, p Provider) (string, error) {
	var id string
	var err error
	switch p.Kind {
	case KindEmployee:
		err = r.pool.QueryRow(ctx, `
			INSERT INTO employees (business_id, name, is_active)
			VALUES ($1, $2, $3)
			RETURNING id::text
		`, p.BusinessID, p.Name, p.IsActive).Scan(&id)
	case KindDoctor:
		err = r.pool.QueryRow(ctx, `
			INSERT INTO doctors (business_id, name, specialty, is_active)
			VALUES ($1, $2, $3, $4)
			RETURNING id::text
		`, p.BusinessID, p.Name, p.Specialty, p.IsActive).Scan(&id)
	default:
		return "", ErrUnknownKind
	}
	return id, err
}

func (r *Repository) ListProviders(ctx context.Context, businessID string, kind ProviderKind, limit int) ([]Provider, error) {
	if limit <= 0 {
		limit = 100
	}
	var query string
	switch kind {
	case KindEmployee:
		query = `SELECT id::text, business_id, name, '', is_active, created_at FROM employees WHERE business_id = $1 ORDER BY name LIMIT $2`
	case KindDoctor:
		query = `SELECT id::text, business_id, name, specialty, is_active, created_at FROM doctors WHERE business_id = $1 ORDER BY name LIMIT $2`
	default:
		return nil, ErrUnknownKind
	}
	rows, err := r.pool.Query(ctx, query, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Provider
	for rows.Next() {
		p := Provider{Kind: kind}
		if err := rows.Scan(&p.ID, &p.BusinessID, &p.Name, &p.Specialty, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// SetProviderActive toggles whether the provider shows up in availability snapshots.
func (r *Repository) SetProviderActive(ctx context.Context, businessID string, kind ProviderKind, id string, active bool) error {
	table, _, _, err := kind.table()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE `+table+` SET is_active = $3 WHERE business_id = $1 AND id = $2`, businessID, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ProviderSchedule is one per-weekday override row for an employee or doctor.
type ProviderSchedule struct {
	DayOfWeek   int  `json:"day_of_week"`
	IsAvailable bool `json:"is_available"`
	StartMinute int  `json:"start_minute"`
	EndMinute   int  `json:"end_minute"`
}

func (r *Repository) ListProviderSchedules(ctx context.Context, businessID string, kind ProviderKind, id string) ([]ProviderSchedule, error) {
	_, schedules, column, err := kind.table()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT day_of_week, is_available, start_minute, end_minute
		FROM `+schedules+`
		WHERE business_id = $1 AND `+column+` = $2
		ORDER BY day_of_week ASC
	`, businessID, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProviderSchedule
	for rows.Next() {
		var s ProviderSchedule
		var available int16
		if err := rows.Scan(&s.DayOfWeek, &available, &s.StartMinute, &s.EndMinute); err != nil {
			return nil, err
		}
		s.IsAvailable = available != 0
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) PutProviderSchedule(ctx context.Context, businessID string, kind ProviderKind, id string, s ProviderSchedule) error {
	providers, schedules, column, err := kind.table()
	if err != nil {
		return err
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM `+providers+` WHERE id = $1 AND business_id = $2)
	`, id, businessID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	var available int16
	if s.IsAvailable {
		available = 1
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO `+schedules+` (business_id, `+column+`, day_of_week, is_available, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (`+column+`, day_of_week) DO UPDATE
		SET is_available = EXCLUDED.is_available,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			updated_at = now()
	`, businessID, id, s.DayOfWeek, available, s.StartMinute, s.EndMinute)
	return err
}

// DeleteProviderSchedule removes the override so the provider falls back to business hours that day.
func (r *Repository) DeleteProviderSchedule(ctx context.Context, businessID string, kind ProviderKind, id string, dayOfWeek int) error {
	_, schedules, column, err := kind.table()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM `+schedules+`
		WHERE business_id = $1 AND `+column+` = $2 AND day_of_week = $3
	`, businessID, id, dayOfWeek)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}
