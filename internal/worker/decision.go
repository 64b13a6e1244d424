package worker

import (
	"time"

	"queueease/queue-service/internal/models"
)

type trigger int

const (
	triggerNone trigger = iota
	triggerAlmostReady
	triggerPositionChanged
	triggerFrequency
)

const (
	// Minimum gap between any two pushes for one entry.
	minNotifyGap = time.Minute

	almostReadyLow  = 1.5
	almostReadyHigh = 2.5

	reminderTolerance   = 5 * time.Minute
	reminderDedupWindow = time.Hour

	missedGrace = 30 * time.Minute
)

// reminderThresholds are minutes-before-start marks at which an
// appointment reminder should fire.
var reminderThresholds = []int{15, 60, 180, 1440}

// queueTrigger decides whether a pending entry is due a push and
// which kind. First match wins: the almost-ready window, then a
// position change, then the routine frequency. Everything shares the
// one-minute gate so at most one push fires per entry per cycle.
func queueTrigger(entry models.QueueEntry, position int, frequencyMinutes int, now time.Time) trigger {
	gateOpen := entry.LastNotificationTime == nil ||
		now.Sub(*entry.LastNotificationTime) >= minNotifyGap
	if !gateOpen {
		return triggerNone
	}

	if entry.ExpectedReadyTime != nil {
		remaining := entry.ExpectedReadyTime.Sub(now).Minutes()
		if remaining >= almostReadyLow && remaining <= almostReadyHigh {
			return triggerAlmostReady
		}
	}

	if entry.LastNotifiedPosition != nil && *entry.LastNotifiedPosition != position {
		return triggerPositionChanged
	}

	if entry.LastNotificationTime == nil ||
		now.Sub(*entry.LastNotificationTime) >= time.Duration(frequencyMinutes)*time.Minute {
		return triggerFrequency
	}

	return triggerNone
}

// reminderDue reports whether an appointment sits close enough to
// one of the reminder thresholds, returning the threshold hit.
// Reminders dedup on a per-appointment one-hour window.
func reminderDue(expectedStart time.Time, lastReminder *time.Time, now time.Time) (int, bool) {
	if lastReminder != nil && now.Sub(*lastReminder) < reminderDedupWindow {
		return 0, false
	}
	until := expectedStart.Sub(now)
	if until < 0 {
		return 0, false
	}
	for _, threshold := range reminderThresholds {
		mark := time.Duration(threshold) * time.Minute
		diff := until - mark
		if diff < 0 {
			diff = -diff
		}
		if diff <= reminderTolerance {
			return threshold, true
		}
	}
	return 0, false
}

// missedDue reports whether a still-scheduled appointment is long
// enough past its delayed expected start to be swept to missed.
func missedDue(expectedStart, now time.Time) bool {
	return now.Sub(expectedStart) >= missedGrace
}

func waitMinutes(expectedReady *time.Time, now time.Time) int {
	if expectedReady == nil {
		return 0
	}
	remaining := expectedReady.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining / time.Minute)
}
