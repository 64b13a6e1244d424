package store

import (
	"context"
	"time"

	"queueease/queue-service/internal/models"
)

type JoinQueueInput struct {
	UserID    string
	ServiceID string
	Now       time.Time
}

type TransferInput struct {
	EntryID         string
	TargetServiceID string
	UserID          string
	Now             time.Time
}

type CreateAppointmentInput struct {
	UserID          string
	ServiceID       string
	AppointmentDate time.Time
	AppointmentTime string
	Now             time.Time
}

// EntryDetail is a queue entry with its read-time derived state:
// live position, remaining wait, and the QR identity attached to it.
type EntryDetail struct {
	Entry         models.QueueEntry
	ServiceName   string
	ServiceType   string
	Position      int
	WaitMinutes   int
	QRHash        string
	TransferredTo string
}

type AppointmentDetail struct {
	Appointment   models.AppointmentEntry
	ServiceName   string
	Position      int
	ExpectedStart time.Time
}

// PendingItem feeds the notification scheduler: one pending entry
// joined with its live position and the service's policy in a single
// aggregate query.
type PendingItem struct {
	Entry       models.QueueEntry
	ServiceName string
	Position    int
	Policy      models.NotificationPolicy
}

type AppointmentItem struct {
	Appointment models.AppointmentEntry
	ServiceName string
}

type Store interface {
	// Queue lifecycle.
	JoinQueue(ctx context.Context, input JoinQueueInput) (EntryDetail, error)
	GetEntry(ctx context.Context, entryID string, now time.Time) (EntryDetail, error)
	CompleteEntry(ctx context.Context, entryID string, now time.Time) (models.QueueEntry, error)
	LeaveQueue(ctx context.Context, entryID, userID string, now time.Time) error
	TransferEntry(ctx context.Context, input TransferInput) (EntryDetail, error)
	ActiveEntryForUser(ctx context.Context, userID string, now time.Time) (EntryDetail, error)
	EntryHistory(ctx context.Context, userID string) ([]EntryDetail, error)
	LookupQR(ctx context.Context, hash string) (EntryDetail, error)

	// Appointment lifecycle.
	CreateAppointment(ctx context.Context, input CreateAppointmentInput) (models.AppointmentEntry, error)
	GetAppointment(ctx context.Context, orderID string, now time.Time) (AppointmentDetail, error)
	UserAppointments(ctx context.Context, userID string) ([]AppointmentDetail, error)
	CheckInAppointment(ctx context.Context, orderID string, now time.Time) (models.AppointmentEntry, error)
	StartAppointment(ctx context.Context, orderID string, now time.Time) (models.AppointmentEntry, error)
	CompleteAppointment(ctx context.Context, orderID string, now time.Time) (models.AppointmentEntry, error)
	CancelAppointment(ctx context.Context, orderID, userID string, now time.Time) error
	SetAppointmentDelay(ctx context.Context, orderID string, minutes int, now time.Time) error

	// Scheduler feed.
	PendingItems(ctx context.Context, limit int) ([]PendingItem, error)
	DueEntries(ctx context.Context, now time.Time, limit int) ([]PendingItem, error)
	AutoCompleteEntry(ctx context.Context, entryID string, now time.Time) (bool, error)
	UpcomingAppointments(ctx context.Context, now time.Time, limit int) ([]AppointmentItem, error)
	RecordQueueNotification(ctx context.Context, entryID string, position int, now time.Time) error
	RecordReminderSent(ctx context.Context, orderID string, now time.Time) error
	MarkDelayNotified(ctx context.Context, orderID string) error
	MarkMissed(ctx context.Context, orderID string, now time.Time) error
	LatestActiveToken(ctx context.Context, userID string) (string, error)
}
