package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"queueease/queue-service/internal/models"
	"queueease/queue-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateAppointment(ctx context.Context, input store.CreateAppointmentInput) (models.AppointmentEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.AppointmentEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	svc, err := lookupService(ctx, tx, input.ServiceID)
	if err != nil {
		return models.AppointmentEntry{}, err
	}
	if err = ensureUserExists(ctx, tx, input.UserID); err != nil {
		return models.AppointmentEntry{}, err
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	duration := svc.AverageDuration
	if duration <= 0 {
		duration = 15
	}

	appt := models.AppointmentEntry{
		AppointmentID:    uuid.NewString(),
		OrderID:          newOrderID(input.UserID, now),
		UserID:           input.UserID,
		ServiceID:        svc.ServiceID,
		AppointmentDate:  input.AppointmentDate,
		AppointmentTime:  input.AppointmentTime,
		ExpectedDuration: duration,
		Status:           models.ApptStatusScheduled,
		CreatedAt:        now,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (
			appointment_id, order_id, user_id, service_id, appointment_date,
			appointment_time, expected_duration, status, delay_minutes,
			delay_notified, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,FALSE,$9)
	`, appt.AppointmentID, appt.OrderID, appt.UserID, appt.ServiceID, appt.AppointmentDate,
		appt.AppointmentTime, appt.ExpectedDuration, appt.Status, appt.CreatedAt)
	if err != nil {
		return models.AppointmentEntry{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.AppointmentEntry{}, err
	}
	return appt, nil
}

// GetAppointment reads one appointment with its derived day position.
// A scheduled appointment whose date has fully passed is swept to
// missed in the same transaction.
func (s *Store) GetAppointment(ctx context.Context, orderID string, now time.Time) (store.AppointmentDetail, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.AppointmentDetail{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	appt, serviceName, err := lockAppointment(ctx, tx, orderID)
	if err != nil {
		return store.AppointmentDetail{}, err
	}

	dayEnd := time.Date(appt.AppointmentDate.Year(), appt.AppointmentDate.Month(), appt.AppointmentDate.Day(),
		0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	if appt.Status == models.ApptStatusScheduled && !now.Before(dayEnd) {
		if _, err = tx.Exec(ctx, `
			UPDATE appointments SET status = $1 WHERE appointment_id = $2
		`, models.ApptStatusMissed, appt.AppointmentID); err != nil {
			return store.AppointmentDetail{}, err
		}
		appt.Status = models.ApptStatusMissed
	}

	detail := store.AppointmentDetail{
		Appointment:   appt,
		ServiceName:   serviceName,
		ExpectedStart: appt.ExpectedStartAt(time.UTC),
	}
	detail.Position, err = appointmentPosition(ctx, tx, appt)
	if err != nil {
		return store.AppointmentDetail{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return store.AppointmentDetail{}, err
	}
	return detail, nil
}

func (s *Store) UserAppointments(ctx context.Context, userID string) ([]store.AppointmentDetail, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.appointment_id, a.order_id, a.user_id, a.service_id, a.appointment_date,
			a.appointment_time, a.expected_duration, a.status, a.actual_start_time,
			a.actual_end_time, a.delay_minutes, a.delay_notified, a.last_reminder_sent,
			a.created_at, s.name
		FROM appointments a
		JOIN services s ON s.service_id = a.service_id
		WHERE a.user_id = $1
		ORDER BY a.appointment_date DESC, a.appointment_time DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []store.AppointmentDetail
	for rows.Next() {
		var detail store.AppointmentDetail
		if err := scanAppointment(rows, &detail.Appointment, &detail.ServiceName); err != nil {
			return nil, err
		}
		detail.ExpectedStart = detail.Appointment.ExpectedStartAt(time.UTC)
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

func (s *Store) CheckInAppointment(ctx context.Context, orderID string, now time.Time) (models.AppointmentEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.AppointmentEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	appt, _, err := lockAppointment(ctx, tx, orderID)
	if err != nil {
		return models.AppointmentEntry{}, err
	}
	if !store.ValidAppointmentTransition("check_in", appt.Status) {
		return models.AppointmentEntry{}, store.ErrInvalidTransition
	}

	_, err = tx.Exec(ctx, `
		UPDATE appointments SET status = $1 WHERE appointment_id = $2
	`, models.ApptStatusCheckedIn, appt.AppointmentID)
	if err != nil {
		return models.AppointmentEntry{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.AppointmentEntry{}, err
	}
	appt.Status = models.ApptStatusCheckedIn
	return appt, nil
}

// StartAppointment flips a checked-in appointment to in-progress and
// pushes any late-start delay onto the rest of the day's schedule.
func (s *Store) StartAppointment(ctx context.Context, orderID string, now time.Time) (models.AppointmentEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.AppointmentEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	appt, _, err := lockAppointment(ctx, tx, orderID)
	if err != nil {
		return models.AppointmentEntry{}, err
	}
	if !store.ValidAppointmentTransition("start", appt.Status) {
		return models.AppointmentEntry{}, store.ErrInvalidTransition
	}

	delay := store.DelayBetween(appt.ScheduledAt(time.UTC), now)
	merged := store.MergeDelay(appt.DelayMinutes, delay)

	_, err = tx.Exec(ctx, `
		UPDATE appointments
		SET status = $1, actual_start_time = $2, delay_minutes = $3
		WHERE appointment_id = $4
	`, models.ApptStatusInProgress, now, merged, appt.AppointmentID)
	if err != nil {
		return models.AppointmentEntry{}, err
	}

	if delay > 0 {
		if err = propagateDelay(ctx, tx, appt, delay); err != nil {
			return models.AppointmentEntry{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return models.AppointmentEntry{}, err
	}
	appt.Status = models.ApptStatusInProgress
	appt.ActualStartTime = &now
	appt.DelayMinutes = merged
	return appt, nil
}

// CompleteAppointment closes an in-progress appointment; running
// over the expected duration propagates the overrun downstream.
func (s *Store) CompleteAppointment(ctx context.Context, orderID string, now time.Time) (models.AppointmentEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.AppointmentEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	appt, _, err := lockAppointment(ctx, tx, orderID)
	if err != nil {
		return models.AppointmentEntry{}, err
	}
	if !store.ValidAppointmentTransition("complete", appt.Status) {
		return models.AppointmentEntry{}, store.ErrInvalidTransition
	}

	_, err = tx.Exec(ctx, `
		UPDATE appointments SET status = $1, actual_end_time = $2 WHERE appointment_id = $3
	`, models.ApptStatusCompleted, now, appt.AppointmentID)
	if err != nil {
		return models.AppointmentEntry{}, err
	}

	if appt.ActualStartTime != nil {
		expectedEnd := appt.ActualStartTime.Add(time.Duration(appt.ExpectedDuration) * time.Minute)
		overrun := store.DelayBetween(expectedEnd, now)
		if overrun > 0 {
			if err = propagateDelay(ctx, tx, appt, overrun); err != nil {
				return models.AppointmentEntry{}, err
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return models.AppointmentEntry{}, err
	}
	appt.Status = models.ApptStatusCompleted
	appt.ActualEndTime = &now
	return appt, nil
}

func (s *Store) CancelAppointment(ctx context.Context, orderID, userID string, now time.Time) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	appt, _, err := lockAppointment(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if appt.UserID != userID {
		return store.ErrNotAuthorized
	}
	if !store.ValidAppointmentTransition("cancel", appt.Status) {
		return store.ErrInvalidTransition
	}
	if !store.BeforeCutoff(appt.ScheduledAt(time.UTC), now, s.cancelCutoff) {
		return store.ErrCancelWindowExpired
	}

	_, err = tx.Exec(ctx, `
		UPDATE appointments SET status = $1 WHERE appointment_id = $2
	`, models.ApptStatusCancelled, appt.AppointmentID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SetAppointmentDelay applies a staff-entered delay. Delays only
// ever grow, except an explicit zero which resets the delay and
// rearms the one-shot delay notice.
func (s *Store) SetAppointmentDelay(ctx context.Context, orderID string, minutes int, now time.Time) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	appt, _, err := lockAppointment(ctx, tx, orderID)
	if err != nil {
		return err
	}

	if minutes == 0 {
		_, err = tx.Exec(ctx, `
			UPDATE appointments SET delay_minutes = 0, delay_notified = FALSE WHERE appointment_id = $1
		`, appt.AppointmentID)
		if err != nil {
			return err
		}
		return tx.Commit(ctx)
	}

	merged := store.MergeDelay(appt.DelayMinutes, minutes)
	if merged != appt.DelayMinutes {
		_, err = tx.Exec(ctx, `
			UPDATE appointments SET delay_minutes = $1 WHERE appointment_id = $2
		`, merged, appt.AppointmentID)
		if err != nil {
			return err
		}
		if err = propagateDelay(ctx, tx, appt, minutes); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// propagateDelay raises the stored delay of every later same-day
// appointment still waiting to run. delay_notified stays as-is so an
// already-sent notice is not repeated for a bigger delay.
func propagateDelay(ctx context.Context, tx pgx.Tx, trigger models.AppointmentEntry, minutes int) error {
	_, err := tx.Exec(ctx, `
		UPDATE appointments
		SET delay_minutes = GREATEST(delay_minutes, $1)
		WHERE service_id = $2 AND appointment_date = $3 AND appointment_time > $4
			AND status IN ('scheduled', 'checked_in')
	`, minutes, trigger.ServiceID, trigger.AppointmentDate, trigger.AppointmentTime)
	return err
}

// appointmentPosition counts the same-day same-service rows still in
// play ahead of this one, ordered by slot time then id.
func appointmentPosition(ctx context.Context, tx pgx.Tx, appt models.AppointmentEntry) (int, error) {
	var ahead int
	row := tx.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM appointments
		WHERE service_id = $1 AND appointment_date = $2
			AND status NOT IN ('completed', 'cancelled')
			AND (appointment_time, appointment_id) < ($3, $4)
	`, appt.ServiceID, appt.AppointmentDate, appt.AppointmentTime, appt.AppointmentID)
	if err := row.Scan(&ahead); err != nil {
		return 0, err
	}
	return ahead + 1, nil
}

func lockAppointment(ctx context.Context, tx pgx.Tx, orderID string) (models.AppointmentEntry, string, error) {
	var appt models.AppointmentEntry
	var serviceName string
	row := tx.QueryRow(ctx, `
		SELECT a.appointment_id, a.order_id, a.user_id, a.service_id, a.appointment_date,
			a.appointment_time, a.expected_duration, a.status, a.actual_start_time,
			a.actual_end_time, a.delay_minutes, a.delay_notified, a.last_reminder_sent,
			a.created_at, s.name
		FROM appointments a
		JOIN services s ON s.service_id = a.service_id
		WHERE a.order_id = $1
		FOR UPDATE OF a
	`, orderID)
	if err := scanAppointment(row, &appt, &serviceName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AppointmentEntry{}, "", store.ErrAppointmentNotFound
		}
		return models.AppointmentEntry{}, "", err
	}
	return appt, serviceName, nil
}

func scanAppointment(row rowScanner, appt *models.AppointmentEntry, serviceName *string) error {
	var startNull, endNull, reminderNull sql.NullTime
	err := row.Scan(&appt.AppointmentID, &appt.OrderID, &appt.UserID, &appt.ServiceID, &appt.AppointmentDate,
		&appt.AppointmentTime, &appt.ExpectedDuration, &appt.Status, &startNull,
		&endNull, &appt.DelayMinutes, &appt.DelayNotified, &reminderNull,
		&appt.CreatedAt, serviceName)
	if err != nil {
		return err
	}
	appt.ActualStartTime = nullTimePtr(startNull)
	appt.ActualEndTime = nullTimePtr(endNull)
	appt.LastReminderSent = nullTimePtr(reminderNull)
	return nil
}

// newOrderID builds the user-facing reference: user, compact
// timestamp, short random suffix.
func newOrderID(userID string, now time.Time) string {
	suffix := uuid.NewString()[:4]
	return fmt.Sprintf("%s-%s-%s", userID, now.Format("20060102150405"), suffix)
}
