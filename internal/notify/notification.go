// Package notify composes push notifications and hands them to a
// delivery provider. Delivery itself is a black box behind Sender.
package notify

import (
	"fmt"
	"strconv"
	"time"
)

// Notification is one strongly-typed push variant. Data flattens to
// the string map the FCM-style transport expects; that conversion
// happens only here, at the sender boundary.
type Notification interface {
	Title() string
	Body() string
	Data() map[string]string
}

type QueueUpdate struct {
	EntryID     string
	ServiceName string
	Position    int
	WaitMinutes int
}

func (n QueueUpdate) Title() string {
	return fmt.Sprintf("Queue Update: %s", n.ServiceName)
}

func (n QueueUpdate) Body() string {
	return fmt.Sprintf("Your position is now #%d. Estimated wait: %d min.", n.Position, n.WaitMinutes)
}

func (n QueueUpdate) Data() map[string]string {
	return map[string]string{
		"type":      "queue_update",
		"queue_id":  n.EntryID,
		"position":  strconv.Itoa(n.Position),
		"wait_time": strconv.Itoa(n.WaitMinutes),
		"url":       "/success/" + n.EntryID,
	}
}

type AlmostReady struct {
	EntryID     string
	ServiceName string
}

func (n AlmostReady) Title() string {
	return fmt.Sprintf("Almost Ready: %s", n.ServiceName)
}

func (n AlmostReady) Body() string {
	return "Your order is almost ready! About 2 minutes remaining."
}

func (n AlmostReady) Data() map[string]string {
	return map[string]string{
		"type":     "queue_almost_ready",
		"queue_id": n.EntryID,
		"url":      "/success/" + n.EntryID,
	}
}

type Completion struct {
	EntryID     string
	ServiceName string
}

func (n Completion) Title() string {
	return "Your order is ready!"
}

func (n Completion) Body() string {
	return fmt.Sprintf("Your order at %s is now ready for collection.", n.ServiceName)
}

func (n Completion) Data() map[string]string {
	return map[string]string{
		"type":     "queue_completed",
		"queue_id": n.EntryID,
		"url":      "/success/" + n.EntryID,
	}
}

type AppointmentReminder struct {
	OrderID      string
	ServiceName  string
	MinutesUntil int
}

func (n AppointmentReminder) Title() string {
	return fmt.Sprintf("Appointment Reminder: %s", n.ServiceName)
}

func (n AppointmentReminder) Body() string {
	switch {
	case n.MinutesUntil <= 15:
		return fmt.Sprintf("Your appointment is in %d minutes! Please arrive soon.", n.MinutesUntil)
	case n.MinutesUntil <= 60:
		return fmt.Sprintf("Your appointment is in %d minutes.", n.MinutesUntil)
	default:
		hours := n.MinutesUntil / 60
		plural := ""
		if hours > 1 {
			plural = "s"
		}
		return fmt.Sprintf("Your appointment is in %d hour%s.", hours, plural)
	}
}

func (n AppointmentReminder) Data() map[string]string {
	return map[string]string{
		"type":           "appointment_reminder",
		"appointment_id": n.OrderID,
		"time_until":     strconv.Itoa(n.MinutesUntil),
		"url":            "/appointment/" + n.OrderID,
	}
}

type AppointmentDelay struct {
	OrderID       string
	ServiceName   string
	DelayMinutes  int
	ExpectedStart time.Time
}

func (n AppointmentDelay) Title() string {
	return fmt.Sprintf("Appointment Delayed: %s", n.ServiceName)
}

func (n AppointmentDelay) Body() string {
	return fmt.Sprintf("Your appointment is running about %d minutes late. New expected start: %s.",
		n.DelayMinutes, n.ExpectedStart.Format("15:04"))
}

func (n AppointmentDelay) Data() map[string]string {
	return map[string]string{
		"type":           "appointment_delay",
		"appointment_id": n.OrderID,
		"delay_minutes":  strconv.Itoa(n.DelayMinutes),
		"expected_start": n.ExpectedStart.Format(time.RFC3339),
		"url":            "/appointment/" + n.OrderID,
	}
}
