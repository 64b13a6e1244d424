package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"queueease/queue-service/internal/estimator"
	"queueease/queue-service/internal/models"
	"queueease/queue-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// sampleFetchLimit covers both the two-week time-of-day window and
// the most-recent fallback.
const sampleFetchLimit = 200

const maxTransferHops = 10

type Store struct {
	pool           *pgxpool.Pool
	leaveWindow    time.Duration
	transferWindow time.Duration
	cancelCutoff   time.Duration
}

type Options struct {
	LeaveWindow    time.Duration
	TransferWindow time.Duration
	CancelCutoff   time.Duration
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	leave := options.LeaveWindow
	if leave <= 0 {
		leave = store.DefaultLeaveWindow
	}
	transfer := options.TransferWindow
	if transfer <= 0 {
		transfer = store.DefaultTransferWindow
	}
	cutoff := options.CancelCutoff
	if cutoff <= 0 {
		cutoff = store.DefaultCancelCutoff
	}
	return &Store{
		pool:           pool,
		leaveWindow:    leave,
		transferWindow: transfer,
		cancelCutoff:   cutoff,
	}
}

func (s *Store) JoinQueue(ctx context.Context, input store.JoinQueueInput) (store.EntryDetail, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.EntryDetail{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	svc, err := lookupService(ctx, tx, input.ServiceID)
	if err != nil {
		return store.EntryDetail{}, err
	}
	if err = ensureUserExists(ctx, tx, input.UserID); err != nil {
		return store.EntryDetail{}, err
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	queueID, err := findOrCreateQueue(ctx, tx, svc.ServiceID, now)
	if err != nil {
		return store.EntryDetail{}, err
	}

	position, err := pendingCount(ctx, tx, svc.ServiceID)
	if err != nil {
		return store.EntryDetail{}, err
	}
	position++

	readyAt, waitMinutes, err := estimateReady(ctx, tx, svc, position, now)
	if err != nil {
		return store.EntryDetail{}, err
	}

	entry := models.QueueEntry{
		EntryID:           uuid.NewString(),
		UserID:            input.UserID,
		ServiceID:         svc.ServiceID,
		QueueID:           queueID,
		SequenceNumber:    position,
		Status:            models.StatusPending,
		IsActive:          true,
		CreatedAt:         now,
		ExpectedReadyTime: &readyAt,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO queue_entries (
			entry_id, user_id, service_id, queue_id, sequence_number,
			status, is_active, created_at, expected_ready_time
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.EntryID, entry.UserID, entry.ServiceID, entry.QueueID, entry.SequenceNumber,
		entry.Status, entry.IsActive, entry.CreatedAt, readyAt)
	if err != nil {
		return store.EntryDetail{}, err
	}

	hash := newQRHash(entry.EntryID)
	_, err = tx.Exec(ctx, `
		INSERT INTO qr_codes (entry_id, qr_hash, is_active, created_at)
		VALUES ($1, $2, TRUE, $3)
	`, entry.EntryID, hash, now)
	if err != nil {
		return store.EntryDetail{}, err
	}

	if err = recountMembership(ctx, tx, queueID); err != nil {
		return store.EntryDetail{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return store.EntryDetail{}, err
	}

	return store.EntryDetail{
		Entry:       entry,
		ServiceName: svc.Name,
		ServiceType: svc.ServiceType,
		Position:    position,
		WaitMinutes: waitMinutes,
		QRHash:      hash,
	}, nil
}

// GetEntry reads an entry and reconciles its state in the same
// transaction: transferred entries resolve to their successor,
// overdue pending entries flip to completed (recording one wait
// sample), and a front-of-queue immediate entry still inside its
// prep window gets its ready time refreshed.
func (s *Store) GetEntry(ctx context.Context, entryID string, now time.Time) (store.EntryDetail, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.EntryDetail{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	entry, svc, err := lockEntry(ctx, tx, entryID)
	if err != nil {
		return store.EntryDetail{}, err
	}

	for hops := 0; entry.Status == models.StatusTransferred && hops < maxTransferHops; hops++ {
		var nextID string
		row := tx.QueryRow(ctx, `
			SELECT entry_id FROM queue_entries WHERE transferred_from = $1 LIMIT 1
		`, entry.EntryID)
		if err = row.Scan(&nextID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = nil
				break
			}
			return store.EntryDetail{}, err
		}
		entry, svc, err = lockEntry(ctx, tx, nextID)
		if err != nil {
			return store.EntryDetail{}, err
		}
	}

	if entry.Status == models.StatusPending && entry.IsActive &&
		entry.ExpectedReadyTime != nil && !entry.ExpectedReadyTime.After(now) {
		if err = completePendingEntry(ctx, tx, &entry, *entry.ExpectedReadyTime); err != nil {
			return store.EntryDetail{}, err
		}
	}

	detail := store.EntryDetail{Entry: entry, ServiceName: svc.Name, ServiceType: svc.ServiceType}

	if entry.Status == models.StatusPending && entry.IsActive {
		detail.Position, err = entryPosition(ctx, tx, entry)
		if err != nil {
			return store.EntryDetail{}, err
		}

		if svc.ServiceType == models.ServiceTypeImmediate && detail.Position == 1 {
			prep := svc.MinimalPrepTime
			if prep <= 0 {
				prep = 5
			}
			prepDeadline := entry.CreatedAt.Add(time.Duration(prep) * time.Minute)
			if now.Before(prepDeadline) {
				if entry.ExpectedReadyTime == nil || !entry.ExpectedReadyTime.Equal(prepDeadline) {
					if _, err = tx.Exec(ctx, `
						UPDATE queue_entries SET expected_ready_time = $1 WHERE entry_id = $2
					`, prepDeadline, entry.EntryID); err != nil {
						return store.EntryDetail{}, err
					}
					entry.ExpectedReadyTime = &prepDeadline
					detail.Entry = entry
				}
			}
		}
		if entry.ExpectedReadyTime != nil && entry.ExpectedReadyTime.After(now) {
			detail.WaitMinutes = int(entry.ExpectedReadyTime.Sub(now).Round(time.Minute) / time.Minute)
		}
	}

	detail.QRHash, err = entryQRHash(ctx, tx, entry.EntryID)
	if err != nil {
		return store.EntryDetail{}, err
	}
	detail.TransferredTo, err = transferSuccessor(ctx, tx, entry.EntryID)
	if err != nil {
		return store.EntryDetail{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return store.EntryDetail{}, err
	}
	return detail, nil
}

// CompleteEntry marks a pending entry served by staff and records
// the observed wait.
func (s *Store) CompleteEntry(ctx context.Context, entryID string, now time.Time) (models.QueueEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.QueueEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	entry, _, err := lockEntry(ctx, tx, entryID)
	if err != nil {
		return models.QueueEntry{}, err
	}
	if !store.ValidQueueTransition("complete", entry.Status) || !entry.IsActive {
		return models.QueueEntry{}, store.ErrAlreadyCompleted
	}

	if err = completePendingEntry(ctx, tx, &entry, now); err != nil {
		return models.QueueEntry{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (s *Store) LeaveQueue(ctx context.Context, entryID, userID string, now time.Time) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	entry, _, err := lockEntry(ctx, tx, entryID)
	if err != nil {
		return err
	}
	if entry.UserID != userID {
		return store.ErrNotAuthorized
	}
	if !store.ValidQueueTransition("cancel", entry.Status) || !entry.IsActive {
		return store.ErrAlreadyCompleted
	}
	if !store.WithinWindow(entry.CreatedAt, now, s.leaveWindow) {
		return store.ErrLeaveWindowExpired
	}

	_, err = tx.Exec(ctx, `
		UPDATE queue_entries SET status = $1, is_active = FALSE WHERE entry_id = $2
	`, models.StatusCancelled, entry.EntryID)
	if err != nil {
		return err
	}
	if err = compactSequence(ctx, tx, entry.ServiceID, entry.SequenceNumber); err != nil {
		return err
	}
	if err = recountMembership(ctx, tx, entry.QueueID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// TransferEntry moves a fresh entry to a sibling service atomically:
// the original flips to transferred, a successor joins the target
// queue at the back, and the QR identity follows the successor.
func (s *Store) TransferEntry(ctx context.Context, input store.TransferInput) (store.EntryDetail, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.EntryDetail{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	entry, source, err := lockEntry(ctx, tx, input.EntryID)
	if err != nil {
		return store.EntryDetail{}, err
	}
	target, err := lookupService(ctx, tx, input.TargetServiceID)
	if err != nil {
		return store.EntryDetail{}, err
	}
	if entry.UserID != input.UserID {
		return store.EntryDetail{}, store.ErrNotAuthorized
	}
	if !store.ValidQueueTransition("transfer", entry.Status) || !entry.IsActive {
		return store.EntryDetail{}, store.ErrAlreadyCompleted
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if !store.WithinWindow(entry.CreatedAt, now, s.transferWindow) {
		return store.EntryDetail{}, store.ErrTransferWindowExpired
	}
	if source.ServiceType != models.ServiceTypeImmediate || target.ServiceType != models.ServiceTypeImmediate ||
		source.Name != target.Name {
		return store.EntryDetail{}, store.ErrIncompatibleService
	}
	if source.ServiceID == target.ServiceID {
		return store.EntryDetail{}, store.ErrSameService
	}

	_, err = tx.Exec(ctx, `
		UPDATE queue_entries SET status = $1, is_active = FALSE WHERE entry_id = $2
	`, models.StatusTransferred, entry.EntryID)
	if err != nil {
		return store.EntryDetail{}, err
	}
	if err = compactSequence(ctx, tx, source.ServiceID, entry.SequenceNumber); err != nil {
		return store.EntryDetail{}, err
	}
	if err = recountMembership(ctx, tx, entry.QueueID); err != nil {
		return store.EntryDetail{}, err
	}

	targetQueueID, err := findOrCreateQueue(ctx, tx, target.ServiceID, now)
	if err != nil {
		return store.EntryDetail{}, err
	}
	position, err := pendingCount(ctx, tx, target.ServiceID)
	if err != nil {
		return store.EntryDetail{}, err
	}
	position++

	readyAt, waitMinutes, err := estimateReady(ctx, tx, target, position, now)
	if err != nil {
		return store.EntryDetail{}, err
	}

	from := entry.EntryID
	successor := models.QueueEntry{
		EntryID:           uuid.NewString(),
		UserID:            entry.UserID,
		ServiceID:         target.ServiceID,
		QueueID:           targetQueueID,
		SequenceNumber:    position,
		Status:            models.StatusPending,
		IsActive:          true,
		CreatedAt:         now,
		ExpectedReadyTime: &readyAt,
		TransferredFrom:   &from,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO queue_entries (
			entry_id, user_id, service_id, queue_id, sequence_number,
			status, is_active, created_at, expected_ready_time, transferred_from
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, successor.EntryID, successor.UserID, successor.ServiceID, successor.QueueID, successor.SequenceNumber,
		successor.Status, successor.IsActive, successor.CreatedAt, readyAt, from)
	if err != nil {
		return store.EntryDetail{}, err
	}

	hash, err := reassignQR(ctx, tx, entry.EntryID, successor.EntryID, now)
	if err != nil {
		return store.EntryDetail{}, err
	}

	if err = recountMembership(ctx, tx, targetQueueID); err != nil {
		return store.EntryDetail{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return store.EntryDetail{}, err
	}

	return store.EntryDetail{
		Entry:       successor,
		ServiceName: target.Name,
		ServiceType: target.ServiceType,
		Position:    position,
		WaitMinutes: waitMinutes,
		QRHash:      hash,
	}, nil
}

func (s *Store) ActiveEntryForUser(ctx context.Context, userID string, now time.Time) (store.EntryDetail, error) {
	var entryID string
	row := s.pool.QueryRow(ctx, `
		SELECT entry_id
		FROM queue_entries
		WHERE user_id = $1 AND status = 'pending' AND is_active
		ORDER BY created_at ASC, entry_id ASC
		LIMIT 1
	`, userID)
	if err := row.Scan(&entryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.EntryDetail{}, store.ErrEntryNotFound
		}
		return store.EntryDetail{}, err
	}
	return s.GetEntry(ctx, entryID, now)
}

func (s *Store) EntryHistory(ctx context.Context, userID string) ([]store.EntryDetail, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.entry_id, e.user_id, e.service_id, e.queue_id, e.sequence_number,
			e.status, e.is_active, e.created_at, e.expected_ready_time,
			e.last_notification_time, e.last_notified_position, e.transferred_from,
			s.name, s.service_type,
			succ.entry_id
		FROM queue_entries e
		JOIN services s ON s.service_id = e.service_id
		LEFT JOIN queue_entries succ ON succ.transferred_from = e.entry_id
		WHERE e.user_id = $1
		ORDER BY e.created_at DESC, e.entry_id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []store.EntryDetail
	for rows.Next() {
		var detail store.EntryDetail
		var succNull sql.NullString
		if err := scanEntryWithService(rows, &detail.Entry, &detail.ServiceName, &detail.ServiceType, &succNull); err != nil {
			return nil, err
		}
		if succNull.Valid {
			detail.TransferredTo = succNull.String
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

func (s *Store) LookupQR(ctx context.Context, hash string) (store.EntryDetail, error) {
	var entryID string
	row := s.pool.QueryRow(ctx, `
		SELECT entry_id
		FROM qr_codes
		WHERE qr_hash = $1 AND is_active
	`, hash)
	if err := row.Scan(&entryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.EntryDetail{}, store.ErrQRCodeNotFound
		}
		return store.EntryDetail{}, err
	}
	return s.GetEntry(ctx, entryID, time.Now().UTC())
}

// completePendingEntry flips a pending entry to completed, records
// one wait sample, and compacts the positions behind it. completedAt
// doubles as the sample's end point.
func completePendingEntry(ctx context.Context, tx pgx.Tx, entry *models.QueueEntry, completedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE queue_entries SET status = $1, is_active = FALSE WHERE entry_id = $2
	`, models.StatusCompleted, entry.EntryID)
	if err != nil {
		return err
	}

	waited := store.DelayBetween(entry.CreatedAt, completedAt)
	_, err = tx.Exec(ctx, `
		INSERT INTO wait_samples (service_id, wait_minutes, recorded_at)
		VALUES ($1, $2, $3)
	`, entry.ServiceID, waited, completedAt)
	if err != nil {
		return err
	}

	if err = compactSequence(ctx, tx, entry.ServiceID, entry.SequenceNumber); err != nil {
		return err
	}
	if err = recountMembership(ctx, tx, entry.QueueID); err != nil {
		return err
	}

	entry.Status = models.StatusCompleted
	entry.IsActive = false
	return nil
}

func lockEntry(ctx context.Context, tx pgx.Tx, entryID string) (models.QueueEntry, models.Service, error) {
	var entry models.QueueEntry
	var svc models.Service
	var readyNull, notifiedNull sql.NullTime
	var notifiedPosNull sql.NullInt64
	var fromNull sql.NullString
	row := tx.QueryRow(ctx, `
		SELECT e.entry_id, e.user_id, e.service_id, e.queue_id, e.sequence_number,
			e.status, e.is_active, e.created_at, e.expected_ready_time,
			e.last_notification_time, e.last_notified_position, e.transferred_from,
			s.service_id, s.name, s.service_type, s.parallel_capacity,
			s.average_duration, s.minimal_prep_time, s.requires_prep_time
		FROM queue_entries e
		JOIN services s ON s.service_id = e.service_id
		WHERE e.entry_id = $1
		FOR UPDATE OF e
	`, entryID)
	err := row.Scan(&entry.EntryID, &entry.UserID, &entry.ServiceID, &entry.QueueID, &entry.SequenceNumber,
		&entry.Status, &entry.IsActive, &entry.CreatedAt, &readyNull,
		&notifiedNull, &notifiedPosNull, &fromNull,
		&svc.ServiceID, &svc.Name, &svc.ServiceType, &svc.ParallelCapacity,
		&svc.AverageDuration, &svc.MinimalPrepTime, &svc.RequiresPrepTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.QueueEntry{}, models.Service{}, store.ErrEntryNotFound
		}
		return models.QueueEntry{}, models.Service{}, err
	}
	entry.ExpectedReadyTime = nullTimePtr(readyNull)
	entry.LastNotificationTime = nullTimePtr(notifiedNull)
	entry.LastNotifiedPosition = nullIntPtr(notifiedPosNull)
	if fromNull.Valid {
		entry.TransferredFrom = &fromNull.String
	}
	return entry, svc, nil
}

func lookupService(ctx context.Context, tx pgx.Tx, serviceID string) (models.Service, error) {
	var svc models.Service
	row := tx.QueryRow(ctx, `
		SELECT service_id, name, service_type, parallel_capacity,
			average_duration, minimal_prep_time, requires_prep_time
		FROM services
		WHERE service_id = $1 AND is_active
	`, serviceID)
	err := row.Scan(&svc.ServiceID, &svc.Name, &svc.ServiceType, &svc.ParallelCapacity,
		&svc.AverageDuration, &svc.MinimalPrepTime, &svc.RequiresPrepTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, store.ErrServiceNotFound
		}
		return models.Service{}, err
	}
	svc.IsActive = true
	return svc, nil
}

func ensureUserExists(ctx context.Context, tx pgx.Tx, userID string) error {
	var exists bool
	row := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE user_id = $1)
	`, userID)
	if err := row.Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrUserNotFound
	}
	return nil
}

func findOrCreateQueue(ctx context.Context, tx pgx.Tx, serviceID string, now time.Time) (string, error) {
	var queueID string
	row := tx.QueryRow(ctx, `
		INSERT INTO service_queues (queue_id, service_id, is_active, member_count, created_at)
		VALUES ($1, $2, TRUE, 0, $3)
		ON CONFLICT (service_id) DO UPDATE SET is_active = TRUE
		RETURNING queue_id
	`, uuid.NewString(), serviceID, now)
	if err := row.Scan(&queueID); err != nil {
		return "", err
	}
	return queueID, nil
}

func pendingCount(ctx context.Context, tx pgx.Tx, serviceID string) (int, error) {
	var count int
	row := tx.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM queue_entries
		WHERE service_id = $1 AND status = 'pending' AND is_active
	`, serviceID)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// entryPosition derives the live 1-indexed position by counting
// earlier pending rows, tie-broken on entry id.
func entryPosition(ctx context.Context, tx pgx.Tx, entry models.QueueEntry) (int, error) {
	var ahead int
	row := tx.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM queue_entries
		WHERE service_id = $1 AND status = 'pending' AND is_active
			AND (created_at, entry_id) < ($2, $3)
	`, entry.ServiceID, entry.CreatedAt, entry.EntryID)
	if err := row.Scan(&ahead); err != nil {
		return 0, err
	}
	return ahead + 1, nil
}

func compactSequence(ctx context.Context, tx pgx.Tx, serviceID string, afterSeq int) error {
	_, err := tx.Exec(ctx, `
		UPDATE queue_entries
		SET sequence_number = sequence_number - 1
		WHERE service_id = $1 AND status = 'pending' AND is_active AND sequence_number > $2
	`, serviceID, afterSeq)
	return err
}

func recountMembership(ctx context.Context, tx pgx.Tx, queueID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE service_queues
		SET member_count = (
			SELECT COUNT(1) FROM queue_entries
			WHERE queue_id = $1 AND status = 'pending' AND is_active
		)
		WHERE queue_id = $1
	`, queueID)
	return err
}

func recentWaitSamples(ctx context.Context, tx pgx.Tx, serviceID string, limit int) ([]models.WaitSample, error) {
	rows, err := tx.Query(ctx, `
		SELECT service_id, wait_minutes, recorded_at
		FROM wait_samples
		WHERE service_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, serviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.WaitSample
	for rows.Next() {
		var sample models.WaitSample
		if err := rows.Scan(&sample.ServiceID, &sample.WaitMinutes, &sample.RecordedAt); err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

func estimateReady(ctx context.Context, tx pgx.Tx, svc models.Service, position int, now time.Time) (time.Time, int, error) {
	samples, err := recentWaitSamples(ctx, tx, svc.ServiceID, sampleFetchLimit)
	if err != nil {
		return time.Time{}, 0, err
	}
	picked := estimator.SelectSamples(samples, now)
	return estimator.Estimate(svc, position, picked, now)
}

func entryQRHash(ctx context.Context, tx pgx.Tx, entryID string) (string, error) {
	var hash string
	row := tx.QueryRow(ctx, `
		SELECT qr_hash FROM qr_codes WHERE entry_id = $1 AND is_active LIMIT 1
	`, entryID)
	if err := row.Scan(&hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return hash, nil
}

func transferSuccessor(ctx context.Context, tx pgx.Tx, entryID string) (string, error) {
	var successorID string
	row := tx.QueryRow(ctx, `
		SELECT entry_id FROM queue_entries WHERE transferred_from = $1 LIMIT 1
	`, entryID)
	if err := row.Scan(&successorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return successorID, nil
}

// reassignQR repoints the original entry's QR identity at its
// successor so a printed code keeps working across a transfer.
func reassignQR(ctx context.Context, tx pgx.Tx, fromEntryID, toEntryID string, now time.Time) (string, error) {
	var hash string
	row := tx.QueryRow(ctx, `
		UPDATE qr_codes SET entry_id = $1 WHERE entry_id = $2 AND is_active
		RETURNING qr_hash
	`, toEntryID, fromEntryID)
	err := row.Scan(&hash)
	if err == nil {
		return hash, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	hash = newQRHash(toEntryID)
	_, err = tx.Exec(ctx, `
		INSERT INTO qr_codes (entry_id, qr_hash, is_active, created_at)
		VALUES ($1, $2, TRUE, $3)
	`, toEntryID, hash, now)
	if err != nil {
		return "", err
	}
	return hash, nil
}

func newQRHash(entryID string) string {
	sum := sha256.Sum256([]byte(entryID + ":" + uuid.NewString()))
	return hex.EncodeToString(sum[:])
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntryWithService(row rowScanner, entry *models.QueueEntry, serviceName, serviceType *string, extra ...any) error {
	var readyNull, notifiedNull sql.NullTime
	var notifiedPosNull sql.NullInt64
	var fromNull sql.NullString
	dest := []any{
		&entry.EntryID, &entry.UserID, &entry.ServiceID, &entry.QueueID, &entry.SequenceNumber,
		&entry.Status, &entry.IsActive, &entry.CreatedAt, &readyNull,
		&notifiedNull, &notifiedPosNull, &fromNull,
		serviceName, serviceType,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	entry.ExpectedReadyTime = nullTimePtr(readyNull)
	entry.LastNotificationTime = nullTimePtr(notifiedNull)
	entry.LastNotifiedPosition = nullIntPtr(notifiedPosNull)
	if fromNull.Valid {
		entry.TransferredFrom = &fromNull.String
	}
	return nil
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func nullIntPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}
