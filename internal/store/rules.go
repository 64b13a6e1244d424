package store

import "time"

// Default action windows. The leave window is the later iteration's
// 3 minutes; transfers have always been 2.
const (
	DefaultLeaveWindow    = 3 * time.Minute
	DefaultTransferWindow = 2 * time.Minute
	DefaultCancelCutoff   = 24 * time.Hour
)

// WithinWindow reports whether now still falls inside the action
// window that opened at createdAt.
func WithinWindow(createdAt, now time.Time, window time.Duration) bool {
	return now.Sub(createdAt) <= window
}

// BeforeCutoff reports whether now is at least cutoff ahead of the
// scheduled slot, i.e. the appointment may still be cancelled.
func BeforeCutoff(scheduledAt, now time.Time, cutoff time.Duration) bool {
	return scheduledAt.Sub(now) >= cutoff
}

// MergeDelay applies the monotonic propagation rule: an incoming
// delay only ever raises the stored one.
func MergeDelay(current, incoming int) int {
	if incoming > current {
		return incoming
	}
	return current
}

// DelayBetween is the whole-minute delay from scheduled to actual,
// floored at zero (early starts are not negative delays).
func DelayBetween(scheduled, actual time.Time) int {
	if !actual.After(scheduled) {
		return 0
	}
	return int(actual.Sub(scheduled).Round(time.Minute) / time.Minute)
}
