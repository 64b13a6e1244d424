package notify

import (
	"testing"
	"time"
)

func TestQueueUpdateMessage(t *testing.T) {
	n := QueueUpdate{EntryID: "e-1", ServiceName: "Coffee Corner", Position: 3, WaitMinutes: 12}
	if got := n.Body(); got != "Your position is now #3. Estimated wait: 12 min." {
		t.Fatalf("unexpected body: %s", got)
	}
	data := n.Data()
	if data["type"] != "queue_update" || data["position"] != "3" || data["wait_time"] != "12" {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestReminderBodyScalesWithTime(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{10, "Your appointment is in 10 minutes! Please arrive soon."},
		{45, "Your appointment is in 45 minutes."},
		{60, "Your appointment is in 60 minutes."},
		{180, "Your appointment is in 3 hours."},
		{90, "Your appointment is in 1 hour."},
	}
	for _, tt := range cases {
		n := AppointmentReminder{OrderID: "o-1", ServiceName: "City Clinic", MinutesUntil: tt.minutes}
		if got := n.Body(); got != tt.want {
			t.Fatalf("minutes=%d: got %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestDelayNoticeCarriesExpectedStart(t *testing.T) {
	start := time.Date(2026, 3, 4, 9, 12, 0, 0, time.UTC)
	n := AppointmentDelay{OrderID: "o-2", ServiceName: "City Clinic", DelayMinutes: 12, ExpectedStart: start}
	if got := n.Body(); got != "Your appointment is running about 12 minutes late. New expected start: 09:12." {
		t.Fatalf("unexpected body: %s", got)
	}
	if n.Data()["delay_minutes"] != "12" {
		t.Fatalf("unexpected data: %v", n.Data())
	}
}
