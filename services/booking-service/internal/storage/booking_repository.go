package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/md-rashed-zaman/appointbook/libs/db"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/outbox"
)

const appointmentColumns = `
	id::text, business_id, COALESCE(employee_id::text, ''), COALESCE(doctor_id::text, ''),
	client_name, service_name, appointment_date, start_minute, duration_minutes, status,
	COALESCE(group_id::text, ''), notes, cancelled_at, COALESCE(cancellation_reason, ''), created_at`

type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: outboxRepo}
}

// WithTx runs fn in one transaction and commits when fn returns nil.
func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &writer{tx: tx, outbox: r.outbox}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *BookingRepository) ListAppointments(ctx context.Context, businessID string, date time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1 AND appointment_date = $2
		ORDER BY start_minute ASC, created_at ASC
	`, businessID, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// ListProviderAppointments returns the provider's appointments on date that still block time.
func (r *BookingRepository) ListProviderAppointments(ctx context.Context, businessID string, provider model.ProviderRef, date time.Time) ([]model.Appointment, error) {
	column := "employee_id"
	if provider.Kind == model.ProviderDoctor {
		column = "doctor_id"
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1
			AND `+column+` = $2
			AND appointment_date = $3
			AND status NOT IN ('cancelled', 'no_show')
		ORDER BY start_minute ASC
	`, businessID, provider.ID, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var status string
	err := row.Scan(
		&appt.ID,
		&appt.BusinessID,
		&appt.EmployeeID,
		&appt.DoctorID,
		&appt.ClientName,
		&appt.ServiceName,
		&appt.Date,
		&appt.StartMinute,
		&appt.DurationMinutes,
		&status,
		&appt.GroupID,
		&appt.Notes,
		&appt.CancelledAt,
		&appt.CancelReason,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.Status(status)
	appt.Date = model.DateOf(appt.Date)
	return appt, nil
}

type writer struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

// InsertAppointment runs inside a savepoint so an exclusion violation only discards this row.
func (w *writer) InsertAppointment(ctx context.Context, appt *model.Appointment) error {
	sp, err := w.tx.Begin(ctx)
	if err != nil {
		return err
	}
	err = sp.QueryRow(ctx, `
		INSERT INTO appointments
			(business_id, employee_id, doctor_id, client_name, service_name, appointment_date,
			 start_minute, duration_minutes, status, group_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id::text, created_at
	`, appt.BusinessID, nullable(appt.EmployeeID), nullable(appt.DoctorID), appt.ClientName, appt.ServiceName,
		appt.Date, appt.StartMinute, appt.DurationMinutes, string(appt.Status), nullable(appt.GroupID), appt.Notes,
	).Scan(&appt.ID, &appt.CreatedAt)
	if err != nil {
		_ = sp.Rollback(ctx)
		if IsConflict(err) {
			return model.ErrSlotTaken
		}
		return err
	}
	return sp.Commit(ctx)
}

func (w *writer) InsertRecurrenceRule(ctx context.Context, rule *model.RecurrenceRule) error {
	return w.tx.QueryRow(ctx, `
		INSERT INTO recurrence_rules (business_id, group_id, frequency, interval_count, end_date, occurrences)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, created_at
	`, rule.BusinessID, rule.GroupID, rule.Frequency, rule.Interval, rule.EndDate, rule.Occurrences,
	).Scan(&rule.ID, &rule.CreatedAt)
}

func (w *writer) GetAppointmentForUpdate(ctx context.Context, businessID, id string) (model.Appointment, error) {
	appt, err := scanAppointment(w.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND business_id = $2
		FOR UPDATE
	`, id, businessID))
	if IsNotFound(err) {
		return model.Appointment{}, model.ErrNotFound
	}
	return appt, err
}

func (w *writer) UpdateAppointmentStatus(ctx context.Context, appt model.Appointment) error {
	tag, err := w.tx.Exec(ctx, `
		UPDATE appointments
		SET status = $3,
			cancelled_at = $4,
			cancellation_reason = NULLIF($5, '')
		WHERE id = $1 AND business_id = $2
	`, appt.ID, appt.BusinessID, string(appt.Status), appt.CancelledAt, appt.CancelReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (w *writer) Enqueue(ctx context.Context, evt outbox.Event) error {
	return w.outbox.Insert(ctx, w.tx, evt)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// IsConflict reports an exclusion constraint violation, which the appointments table raises
// for overlapping bookings of one provider.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23P01"
	}
	return false
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

var _ booking.Store = (*BookingRepository)(nil)
