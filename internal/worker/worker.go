// Package worker runs the polling notification scheduler: queue
// update pushes, the completion sweep, appointment reminders, delay
// notices, and the missed-appointment sweep. One bad record never
// stops a cycle; state only advances after a confirmed send.
package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"queueease/queue-service/internal/models"
	"queueease/queue-service/internal/notify"
	"queueease/queue-service/internal/store"
)

type Worker struct {
	store            store.Store
	sender           notify.Sender
	now              func() time.Time
	batchSize        int
	defaultFrequency int
}

type Config struct {
	BatchSize        int
	DefaultFrequency int
	Now              func() time.Time
}

func New(st store.Store, sender notify.Sender, cfg Config) *Worker {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	frequency := cfg.DefaultFrequency
	if frequency <= 0 {
		frequency = 5
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Worker{
		store:            st,
		sender:           sender,
		now:              now,
		batchSize:        batch,
		defaultFrequency: frequency,
	}
}

// Run executes one scheduler cycle.
func (w *Worker) Run(ctx context.Context) error {
	w.processQueueUpdates(ctx)
	w.processCompletions(ctx)
	w.processAppointments(ctx)
	return ctx.Err()
}

func (w *Worker) processQueueUpdates(ctx context.Context) {
	now := w.now()
	items, err := w.store.PendingItems(ctx, w.batchSize)
	if err != nil {
		log.Printf("scheduler list pending error: %v", err)
		return
	}

	for _, item := range items {
		if err := w.notifyQueueItem(ctx, item, now); err != nil {
			log.Printf("scheduler queue entry %s error: %v", item.Entry.EntryID, err)
		}
	}
	if len(items) > 0 {
		log.Printf("scheduler queue updates processed=%d", len(items))
	}
}

func (w *Worker) notifyQueueItem(ctx context.Context, item store.PendingItem, now time.Time) error {
	if !item.Policy.IsEnabled {
		return nil
	}
	frequency := item.Policy.FrequencyMinutes
	if frequency <= 0 {
		frequency = w.defaultFrequency
	}

	kind := queueTrigger(item.Entry, item.Position, frequency, now)
	if kind == triggerNone {
		return nil
	}

	token, err := w.store.LatestActiveToken(ctx, item.Entry.UserID)
	if errors.Is(err, store.ErrTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var n notify.Notification
	if kind == triggerAlmostReady {
		n = notify.AlmostReady{EntryID: item.Entry.EntryID, ServiceName: item.ServiceName}
	} else {
		n = notify.QueueUpdate{
			EntryID:     item.Entry.EntryID,
			ServiceName: item.ServiceName,
			Position:    item.Position,
			WaitMinutes: waitMinutes(item.Entry.ExpectedReadyTime, now),
		}
	}
	if err := w.sender.Send(ctx, token, n); err != nil {
		return err
	}
	return w.store.RecordQueueNotification(ctx, item.Entry.EntryID, item.Position, now)
}

func (w *Worker) processCompletions(ctx context.Context) {
	now := w.now()
	due, err := w.store.DueEntries(ctx, now, w.batchSize)
	if err != nil {
		log.Printf("scheduler list due error: %v", err)
		return
	}

	completed := 0
	for _, item := range due {
		flipped, err := w.store.AutoCompleteEntry(ctx, item.Entry.EntryID, now)
		if err != nil {
			log.Printf("scheduler auto-complete %s error: %v", item.Entry.EntryID, err)
			continue
		}
		if !flipped {
			continue
		}
		completed++

		token, err := w.store.LatestActiveToken(ctx, item.Entry.UserID)
		if errors.Is(err, store.ErrTokenNotFound) {
			continue
		}
		if err != nil {
			log.Printf("scheduler token lookup %s error: %v", item.Entry.UserID, err)
			continue
		}
		n := notify.Completion{EntryID: item.Entry.EntryID, ServiceName: item.ServiceName}
		if err := w.sender.Send(ctx, token, n); err != nil {
			log.Printf("scheduler completion push %s error: %v", item.Entry.EntryID, err)
		}
	}
	if completed > 0 {
		log.Printf("scheduler auto-completed %d entries", completed)
	}
}

func (w *Worker) processAppointments(ctx context.Context) {
	now := w.now()
	items, err := w.store.UpcomingAppointments(ctx, now, w.batchSize)
	if err != nil {
		log.Printf("scheduler list appointments error: %v", err)
		return
	}

	for _, item := range items {
		if err := w.processAppointment(ctx, item, now); err != nil {
			log.Printf("scheduler appointment %s error: %v", item.Appointment.OrderID, err)
		}
	}
}

func (w *Worker) processAppointment(ctx context.Context, item store.AppointmentItem, now time.Time) error {
	appt := item.Appointment
	expectedStart := appt.ExpectedStartAt(now.Location())

	// One-shot delay notice, guarded by delay_notified.
	if appt.DelayMinutes > 0 && !appt.DelayNotified {
		token, err := w.store.LatestActiveToken(ctx, appt.UserID)
		if err == nil {
			n := notify.AppointmentDelay{
				OrderID:       appt.OrderID,
				ServiceName:   item.ServiceName,
				DelayMinutes:  appt.DelayMinutes,
				ExpectedStart: expectedStart,
			}
			if err := w.sender.Send(ctx, token, n); err != nil {
				return err
			}
			if err := w.store.MarkDelayNotified(ctx, appt.OrderID); err != nil {
				return err
			}
		} else if !errors.Is(err, store.ErrTokenNotFound) {
			return err
		}
	}

	if appt.Status == models.ApptStatusScheduled && missedDue(expectedStart, now) {
		return w.store.MarkMissed(ctx, appt.OrderID, now)
	}

	if appt.Status != models.ApptStatusScheduled && appt.Status != models.ApptStatusCheckedIn {
		return nil
	}

	threshold, due := reminderDue(expectedStart, appt.LastReminderSent, now)
	if !due {
		return nil
	}
	token, err := w.store.LatestActiveToken(ctx, appt.UserID)
	if errors.Is(err, store.ErrTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	n := notify.AppointmentReminder{
		OrderID:      appt.OrderID,
		ServiceName:  item.ServiceName,
		MinutesUntil: threshold,
	}
	if err := w.sender.Send(ctx, token, n); err != nil {
		return err
	}
	return w.store.RecordReminderSent(ctx, appt.OrderID, now)
}

// Start runs cycles on a fixed interval until ctx is done.
func Start(ctx context.Context, interval time.Duration, w *Worker) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Run(ctx); err != nil {
				log.Printf("scheduler cycle error: %v", err)
			}
		}
	}
}
