package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"queueease/queue-service/internal/models"
	"queueease/queue-service/internal/store"

	"github.com/jackc/pgx/v5"
)

// PendingItems feeds the notification cycle: every live entry with
// its derived position and the service's notification policy in one
// query. Services without a policy row behave as enabled with a zero
// frequency the worker replaces with its default.
func (s *Store) PendingItems(ctx context.Context, limit int) ([]store.PendingItem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT e.entry_id, e.user_id, e.service_id, e.queue_id, e.sequence_number,
			e.status, e.is_active, e.created_at, e.expected_ready_time,
			e.last_notification_time, e.last_notified_position, e.transferred_from,
			s.name,
			ROW_NUMBER() OVER (PARTITION BY e.service_id ORDER BY e.created_at ASC, e.entry_id ASC),
			COALESCE(p.is_enabled, TRUE), COALESCE(p.frequency_minutes, 0)
		FROM queue_entries e
		JOIN services s ON s.service_id = e.service_id
		LEFT JOIN notification_policies p ON p.service_id = e.service_id
		WHERE e.status = 'pending' AND e.is_active
		ORDER BY e.created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPendingItems(rows)
}

func (s *Store) DueEntries(ctx context.Context, now time.Time, limit int) ([]store.PendingItem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT e.entry_id, e.user_id, e.service_id, e.queue_id, e.sequence_number,
			e.status, e.is_active, e.created_at, e.expected_ready_time,
			e.last_notification_time, e.last_notified_position, e.transferred_from,
			s.name,
			ROW_NUMBER() OVER (PARTITION BY e.service_id ORDER BY e.created_at ASC, e.entry_id ASC),
			COALESCE(p.is_enabled, TRUE), COALESCE(p.frequency_minutes, 0)
		FROM queue_entries e
		JOIN services s ON s.service_id = e.service_id
		LEFT JOIN notification_policies p ON p.service_id = e.service_id
		WHERE e.status = 'pending' AND e.is_active AND e.expected_ready_time <= $1
		ORDER BY e.expected_ready_time ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPendingItems(rows)
}

// AutoCompleteEntry is the sweep half of reconcile-on-read. It
// reports false when a concurrent read already completed the entry.
func (s *Store) AutoCompleteEntry(ctx context.Context, entryID string, now time.Time) (bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	entry, _, err := lockEntry(ctx, tx, entryID)
	if err != nil {
		if errors.Is(err, store.ErrEntryNotFound) {
			return false, nil
		}
		return false, err
	}
	if entry.Status != models.StatusPending || !entry.IsActive {
		if err = tx.Commit(ctx); err != nil {
			return false, err
		}
		return false, nil
	}

	completedAt := now
	if entry.ExpectedReadyTime != nil && entry.ExpectedReadyTime.Before(now) {
		completedAt = *entry.ExpectedReadyTime
	}
	if err = completePendingEntry(ctx, tx, &entry, completedAt); err != nil {
		return false, err
	}
	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// UpcomingAppointments feeds the appointment half of the cycle. The
// window reaches two days ahead so the day-before reminder mark is
// observable before the appointment's own day; time gates downstream
// decide what actually fires.
func (s *Store) UpcomingAppointments(ctx context.Context, now time.Time, limit int) ([]store.AppointmentItem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT a.appointment_id, a.order_id, a.user_id, a.service_id, a.appointment_date,
			a.appointment_time, a.expected_duration, a.status, a.actual_start_time,
			a.actual_end_time, a.delay_minutes, a.delay_notified, a.last_reminder_sent,
			a.created_at, s.name
		FROM appointments a
		JOIN services s ON s.service_id = a.service_id
		WHERE a.appointment_date BETWEEN $1::date AND ($1::date + 2)
			AND a.status IN ('scheduled', 'checked_in')
		ORDER BY a.appointment_date ASC, a.appointment_time ASC, a.appointment_id ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []store.AppointmentItem
	for rows.Next() {
		var item store.AppointmentItem
		if err := scanAppointment(rows, &item.Appointment, &item.ServiceName); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) RecordQueueNotification(ctx context.Context, entryID string, position int, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE queue_entries
		SET last_notification_time = $1, last_notified_position = $2
		WHERE entry_id = $3
	`, now, position, entryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrEntryNotFound
	}
	return nil
}

func (s *Store) RecordReminderSent(ctx context.Context, orderID string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments SET last_reminder_sent = $1 WHERE order_id = $2
	`, now, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAppointmentNotFound
	}
	return nil
}

func (s *Store) MarkDelayNotified(ctx context.Context, orderID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments SET delay_notified = TRUE WHERE order_id = $1
	`, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAppointmentNotFound
	}
	return nil
}

func (s *Store) MarkMissed(ctx context.Context, orderID string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $1
		WHERE order_id = $2 AND status IN ('scheduled', 'checked_in')
	`, models.ApptStatusMissed, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrInvalidTransition
	}
	return nil
}

func (s *Store) LatestActiveToken(ctx context.Context, userID string) (string, error) {
	var token string
	row := s.pool.QueryRow(ctx, `
		SELECT token
		FROM device_tokens
		WHERE user_id = $1 AND is_active
		ORDER BY updated_at DESC
		LIMIT 1
	`, userID)
	if err := row.Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrTokenNotFound
		}
		return "", err
	}
	return token, nil
}

func collectPendingItems(rows pgx.Rows) ([]store.PendingItem, error) {
	var items []store.PendingItem
	for rows.Next() {
		var item store.PendingItem
		var serviceName string
		var position int64
		var enabled bool
		var frequency int
		var readyNull, notifiedNull sql.NullTime
		var notifiedPosNull sql.NullInt64
		var fromNull sql.NullString
		err := rows.Scan(&item.Entry.EntryID, &item.Entry.UserID, &item.Entry.ServiceID, &item.Entry.QueueID,
			&item.Entry.SequenceNumber, &item.Entry.Status, &item.Entry.IsActive, &item.Entry.CreatedAt,
			&readyNull, &notifiedNull, &notifiedPosNull, &fromNull,
			&serviceName, &position, &enabled, &frequency)
		if err != nil {
			return nil, err
		}
		item.Entry.ExpectedReadyTime = nullTimePtr(readyNull)
		item.Entry.LastNotificationTime = nullTimePtr(notifiedNull)
		item.Entry.LastNotifiedPosition = nullIntPtr(notifiedPosNull)
		if fromNull.Valid {
			item.Entry.TransferredFrom = &fromNull.String
		}
		item.ServiceName = serviceName
		item.Position = int(position)
		item.Policy = models.NotificationPolicy{
			ServiceID:        item.Entry.ServiceID,
			IsEnabled:        enabled,
			FrequencyMinutes: frequency,
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
