package models

import "time"

// NotificationPolicy controls routine queue-update pushes per
// service. Absent rows behave as an enabled policy with the default
// frequency.
type NotificationPolicy struct {
	ServiceID        string    `json:"service_id"`
	IsEnabled        bool      `json:"is_enabled"`
	FrequencyMinutes int       `json:"frequency_minutes"`
	MessageTemplate  string    `json:"message_template,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type DeviceToken struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WaitSample is one observed completed wait, in minutes. Rows are
// append-only.
type WaitSample struct {
	ServiceID   string    `json:"service_id"`
	WaitMinutes int       `json:"wait_minutes"`
	RecordedAt  time.Time `json:"recorded_at"`
}
