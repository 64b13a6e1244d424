package models

import "time"

type AppointmentEntry struct {
	AppointmentID    string     `json:"appointment_id"`
	OrderID          string     `json:"order_id"`
	UserID           string     `json:"user_id"`
	ServiceID        string     `json:"service_id"`
	AppointmentDate  time.Time  `json:"appointment_date"`
	AppointmentTime  string     `json:"appointment_time"`
	ExpectedDuration int        `json:"expected_duration"`
	Status           string     `json:"status"`
	ActualStartTime  *time.Time `json:"actual_start_time,omitempty"`
	ActualEndTime    *time.Time `json:"actual_end_time,omitempty"`
	DelayMinutes     int        `json:"delay_minutes"`
	DelayNotified    bool       `json:"delay_notified"`
	LastReminderSent *time.Time `json:"last_reminder_sent,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

const (
	ApptStatusScheduled  = "scheduled"
	ApptStatusCheckedIn  = "checked_in"
	ApptStatusInProgress = "in_progress"
	ApptStatusCompleted  = "completed"
	ApptStatusCancelled  = "cancelled"
	ApptStatusMissed     = "missed"
)

// ScheduledAt combines the appointment date and wall-clock time in
// the given location.
func (a AppointmentEntry) ScheduledAt(loc *time.Location) time.Time {
	t, err := time.Parse("15:04", a.AppointmentTime)
	if err != nil {
		t, err = time.Parse("15:04:05", a.AppointmentTime)
		if err != nil {
			t = time.Time{}
		}
	}
	return time.Date(a.AppointmentDate.Year(), a.AppointmentDate.Month(), a.AppointmentDate.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// ExpectedStartAt is the scheduled slot pushed back by any
// propagated delay.
func (a AppointmentEntry) ExpectedStartAt(loc *time.Location) time.Time {
	return a.ScheduledAt(loc).Add(time.Duration(a.DelayMinutes) * time.Minute)
}
