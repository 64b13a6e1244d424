package worker

import (
	"testing"
	"time"

	"queueease/queue-service/internal/models"
)

var decisionNow = time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }
func intPtr(v int) *int              { return &v }

func TestQueueTriggerNeverNotified(t *testing.T) {
	entry := models.QueueEntry{Status: models.StatusPending}
	if got := queueTrigger(entry, 4, 5, decisionNow); got != triggerFrequency {
		t.Fatalf("never-notified entry: got %v, want frequency trigger", got)
	}
}

func TestQueueTriggerMinuteGate(t *testing.T) {
	entry := models.QueueEntry{
		LastNotificationTime: timePtr(decisionNow.Add(-30 * time.Second)),
		LastNotifiedPosition: intPtr(5),
	}
	// Position changed but the minute gate is closed.
	if got := queueTrigger(entry, 3, 5, decisionNow); got != triggerNone {
		t.Fatalf("gate closed: got %v, want none", got)
	}
}

func TestQueueTriggerPositionChange(t *testing.T) {
	entry := models.QueueEntry{
		LastNotificationTime: timePtr(decisionNow.Add(-2 * time.Minute)),
		LastNotifiedPosition: intPtr(5),
	}
	if got := queueTrigger(entry, 3, 5, decisionNow); got != triggerPositionChanged {
		t.Fatalf("position change: got %v, want position trigger", got)
	}
	// Same position, inside frequency: nothing fires.
	if got := queueTrigger(entry, 5, 5, decisionNow); got != triggerNone {
		t.Fatalf("no change within frequency: got %v, want none", got)
	}
}

func TestQueueTriggerAlmostReadyWinsFirst(t *testing.T) {
	entry := models.QueueEntry{
		ExpectedReadyTime:    timePtr(decisionNow.Add(2 * time.Minute)),
		LastNotificationTime: timePtr(decisionNow.Add(-10 * time.Minute)),
		LastNotifiedPosition: intPtr(5),
	}
	// Position change and frequency are both due, but the 2-minute
	// window takes precedence.
	if got := queueTrigger(entry, 1, 5, decisionNow); got != triggerAlmostReady {
		t.Fatalf("almost ready: got %v, want almost-ready trigger", got)
	}
}

func TestQueueTriggerAlmostReadyBounds(t *testing.T) {
	cases := []struct {
		remaining time.Duration
		want      trigger
	}{
		{90 * time.Second, triggerAlmostReady},
		{150 * time.Second, triggerAlmostReady},
		{60 * time.Second, triggerFrequency},
		{4 * time.Minute, triggerFrequency},
	}
	for _, tt := range cases {
		entry := models.QueueEntry{ExpectedReadyTime: timePtr(decisionNow.Add(tt.remaining))}
		if got := queueTrigger(entry, 1, 5, decisionNow); got != tt.want {
			t.Fatalf("remaining=%v: got %v, want %v", tt.remaining, got, tt.want)
		}
	}
}

func TestQueueTriggerFrequencyElapsed(t *testing.T) {
	entry := models.QueueEntry{
		LastNotificationTime: timePtr(decisionNow.Add(-6 * time.Minute)),
		LastNotifiedPosition: intPtr(5),
	}
	if got := queueTrigger(entry, 5, 5, decisionNow); got != triggerFrequency {
		t.Fatalf("frequency elapsed: got %v, want frequency trigger", got)
	}
}

func TestReminderDueThresholds(t *testing.T) {
	cases := []struct {
		until time.Duration
		want  int
		due   bool
	}{
		{15 * time.Minute, 15, true},
		{13 * time.Minute, 15, true},
		{19 * time.Minute, 15, true},
		{30 * time.Minute, 0, false},
		{58 * time.Minute, 60, true},
		{3 * time.Hour, 180, true},
		{24 * time.Hour, 1440, true},
		{12 * time.Hour, 0, false},
		{-10 * time.Minute, 0, false},
	}
	for _, tt := range cases {
		threshold, due := reminderDue(decisionNow.Add(tt.until), nil, decisionNow)
		if due != tt.due || threshold != tt.want {
			t.Fatalf("until=%v: got (%d, %v), want (%d, %v)", tt.until, threshold, due, tt.want, tt.due)
		}
	}
}

func TestReminderDedupWindow(t *testing.T) {
	start := decisionNow.Add(15 * time.Minute)
	recent := decisionNow.Add(-20 * time.Minute)
	if _, due := reminderDue(start, &recent, decisionNow); due {
		t.Fatal("reminder sent 20 minutes ago must suppress the next one")
	}
	old := decisionNow.Add(-2 * time.Hour)
	if _, due := reminderDue(start, &old, decisionNow); !due {
		t.Fatal("reminder sent 2 hours ago must not suppress")
	}
}

func TestMissedDue(t *testing.T) {
	if missedDue(decisionNow.Add(-29*time.Minute), decisionNow) {
		t.Fatal("29 minutes late is still inside the grace period")
	}
	if !missedDue(decisionNow.Add(-30*time.Minute), decisionNow) {
		t.Fatal("30 minutes late should be swept to missed")
	}
}

func TestWaitMinutesFloorsAtZero(t *testing.T) {
	past := decisionNow.Add(-5 * time.Minute)
	if got := waitMinutes(&past, decisionNow); got != 0 {
		t.Fatalf("past ready time: got %d, want 0", got)
	}
	future := decisionNow.Add(12*time.Minute + 30*time.Second)
	if got := waitMinutes(&future, decisionNow); got != 12 {
		t.Fatalf("future ready time: got %d, want 12", got)
	}
}
