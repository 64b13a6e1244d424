package models

import "time"

type QueueEntry struct {
	EntryID              string     `json:"entry_id"`
	UserID               string     `json:"user_id"`
	ServiceID            string     `json:"service_id"`
	QueueID              string     `json:"queue_id,omitempty"`
	SequenceNumber       int        `json:"sequence_number"`
	Status               string     `json:"status"`
	IsActive             bool       `json:"is_active"`
	CreatedAt            time.Time  `json:"created_at"`
	ExpectedReadyTime    *time.Time `json:"expected_ready_time,omitempty"`
	LastNotificationTime *time.Time `json:"last_notification_time,omitempty"`
	LastNotifiedPosition *int       `json:"last_notified_position,omitempty"`
	TransferredFrom      *string    `json:"transferred_from,omitempty"`
}

const (
	StatusPending     = "pending"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
	StatusTransferred = "transferred"
)

// ServiceQueue groups entries for one service and carries the live
// membership counter.
type ServiceQueue struct {
	QueueID     string    `json:"queue_id"`
	ServiceID   string    `json:"service_id"`
	IsActive    bool      `json:"is_active"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type QRCode struct {
	EntryID   string    `json:"entry_id"`
	Hash      string    `json:"qr_hash"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
