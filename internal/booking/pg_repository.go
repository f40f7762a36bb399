package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ja5on1in/gym-book-sub000/internal/outbox"
	"github.com/Ja5on1in/gym-book-sub000/internal/schedule"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const appointmentColumns = `id, type, date, slot, coach_id, service_name, service_minutes,
	customer_name, customer_phone, customer_email, external_user_id, reason,
	capacity, status, cancel_reason, debited_account_id, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var serviceName *string
	var serviceMinutes *int
	var custName, custPhone, custEmail *string
	var debited *uuid.UUID

	err := row.Scan(
		&a.ID,
		&a.Type,
		&a.Date,
		&a.Slot,
		&a.CoachID,
		&serviceName,
		&serviceMinutes,
		&custName,
		&custPhone,
		&custEmail,
		&a.ExternalUserID,
		&a.Reason,
		&a.Capacity,
		&a.Status,
		&a.CancelReason,
		&debited,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if serviceName != nil {
		svc := Service{Name: *serviceName}
		if serviceMinutes != nil {
			svc.Minutes = *serviceMinutes
		}
		a.Service = &svc
	}
	if custName != nil || custPhone != nil || custEmail != nil {
		c := Customer{}
		if custName != nil {
			c.Name = *custName
		}
		if custPhone != nil {
			c.Phone = *custPhone
		}
		if custEmail != nil {
			c.Email = *custEmail
		}
		a.Customer = &c
	}
	a.DebitedAccountID = debited

	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func isSlotClaimViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Interface methods

func (r *PgRepository) GetCoach(ctx context.Context, id uuid.UUID) (*schedule.Coach, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, role, work_days, work_start, work_end, daily_hours, off_dates, created_at, updated_at
		FROM coaches
		WHERE id = $1
	`, id)

	var c schedule.Coach
	var workDays []int32
	var dailyHours []byte

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Role,
		&workDays,
		&c.WorkStart,
		&c.WorkEnd,
		&dailyHours,
		&c.OffDates,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCoachNotFound
		}
		return nil, err
	}

	c.WorkDays = make([]int, 0, len(workDays))
	for _, d := range workDays {
		c.WorkDays = append(c.WorkDays, int(d))
	}
	if len(dailyHours) > 0 {
		if err := json.Unmarshal(dailyHours, &c.DailyHours); err != nil {
			return nil, fmt.Errorf("decode daily hours for coach %s: %w", c.ID, err)
		}
	}

	return &c, nil
}

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListActiveForDay(ctx context.Context, coachID uuid.UUID, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE coach_id = $1 AND date = $2 AND status <> 'cancelled'
		ORDER BY slot
	`, coachID, date)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *PgRepository) ListForRange(ctx context.Context, coachID uuid.UUID, from, to string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE coach_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, slot
	`, coachID, from, to)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *PgRepository) SaveBatch(ctx context.Context, appts []Appointment, events []outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range appts {
		a := &appts[i]

		var serviceName *string
		var serviceMinutes *int
		if a.Service != nil {
			serviceName = &a.Service.Name
			serviceMinutes = &a.Service.Minutes
		}
		var custName, custPhone, custEmail *string
		if a.Customer != nil {
			custName = &a.Customer.Name
			custPhone = &a.Customer.Phone
			custEmail = &a.Customer.Email
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO appointments (id, type, date, slot, coach_id, service_name, service_minutes,
				customer_name, customer_phone, customer_email, external_user_id, reason,
				capacity, status, cancel_reason, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, '', now(), now())
			ON CONFLICT (id) DO UPDATE SET
				type = EXCLUDED.type,
				date = EXCLUDED.date,
				slot = EXCLUDED.slot,
				coach_id = EXCLUDED.coach_id,
				service_name = EXCLUDED.service_name,
				service_minutes = EXCLUDED.service_minutes,
				customer_name = EXCLUDED.customer_name,
				customer_phone = EXCLUDED.customer_phone,
				customer_email = EXCLUDED.customer_email,
				external_user_id = EXCLUDED.external_user_id,
				reason = EXCLUDED.reason,
				capacity = EXCLUDED.capacity,
				updated_at = now()
		`, a.ID, a.Type, a.Date, a.Slot, a.CoachID, serviceName, serviceMinutes,
			custName, custPhone, custEmail, a.ExternalUserID, a.Reason,
			a.Capacity, a.Status)
		if err != nil {
			if isSlotClaimViolation(err) {
				return ErrSlotConflict
			}
			return fmt.Errorf("upsert appointment %s: %w", a.ID, err)
		}
	}

	for _, ev := range events {
		_, err := tx.Exec(ctx, `
			INSERT INTO outbox_events (event_type, appointment_id, payload, created_at)
			VALUES ($1, $2, $3, now())
		`, ev.EventType, ev.AppointmentID, ev.Payload)
		if err != nil {
			return fmt.Errorf("append outbox event %s: %w", ev.EventType, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save batch: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancel_reason = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('confirmed', 'checked_in')
		RETURNING `+appointmentColumns+`
	`, id, reason)
	return scanAppointment(row)
}

func (r *PgRepository) CompleteWithDebit(ctx context.Context, id uuid.UUID, accountID *uuid.UUID) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin complete: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'completed',
		    debited_account_id = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('confirmed', 'checked_in')
		RETURNING `+appointmentColumns+`
	`, id, accountID)
	appt, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	if accountID != nil {
		_, err := tx.Exec(ctx, `
			UPDATE credit_accounts
			SET private_credits = private_credits - 1,
			    last_updated = now()
			WHERE id = $1
		`, *accountID)
		if err != nil {
			return nil, fmt.Errorf("debit account %s: %w", *accountID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit complete: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) ReverseWithRefund(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reversal: %w", err)
	}
	defer tx.Rollback(ctx)

	var debited *uuid.UUID
	var status Status
	err = tx.QueryRow(ctx, `
		SELECT debited_account_id, status FROM appointments WHERE id = $1 FOR UPDATE
	`, id).Scan(&debited, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	if status != StatusCompleted {
		return nil, ErrAppointmentNotFound
	}

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'confirmed',
		    debited_account_id = NULL,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	if debited != nil {
		_, err := tx.Exec(ctx, `
			UPDATE credit_accounts
			SET private_credits = private_credits + 1,
			    last_updated = now()
			WHERE id = $1
		`, *debited)
		if err != nil {
			return nil, fmt.Errorf("refund account %s: %w", *debited, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reversal: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) CancelBatch(ctx context.Context, ids []uuid.UUID, reason string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	idStrs := make([]string, 0, len(ids))
	for _, id := range ids {
		idStrs = append(idStrs, id.String())
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin cancel batch: %w", err)
	}
	defer tx.Rollback(ctx)

	var protected int
	err = tx.QueryRow(ctx, `
		SELECT count(*) FROM appointments
		WHERE id = ANY($1::uuid[])
		  AND status IN ('checked_in', 'completed')
	`, idStrs).Scan(&protected)
	if err != nil {
		return 0, err
	}
	if protected > 0 {
		return 0, ErrProtectedStatus
	}

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancel_reason = $2,
		    updated_at = now()
		WHERE id = ANY($1::uuid[])
		  AND status = 'confirmed'
	`, idStrs, reason)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit cancel batch: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var status Status
	err := r.pool.QueryRow(ctx, `
		SELECT status FROM appointments WHERE id = $1
	`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAppointmentNotFound
		}
		return err
	}
	if status == StatusCheckedIn || status == StatusCompleted {
		return ErrProtectedStatus
	}

	_, err = r.pool.Exec(ctx, `
		DELETE FROM appointments WHERE id = $1 AND status NOT IN ('checked_in', 'completed')
	`, id)
	return err
}
