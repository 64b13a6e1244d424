package estimator

import (
	"time"

	"queueease/queue-service/internal/models"
)

const (
	samplerWindowDays    = 14
	samplerMinPoints     = 5
	samplerFallbackCount = 30
)

// SelectSamples picks the wait observations most relevant to now:
// samples recorded within an hour of the current time of day over
// the trailing two weeks, narrowed to the matching weekend/weekday
// class when that subset is large enough. Thin data falls back to
// the most recent samples regardless of time. samples must be
// ordered newest first; an empty result means estimate structurally.
func SelectSamples(samples []models.WaitSample, now time.Time) []int {
	if len(samples) == 0 {
		return nil
	}

	cutoff := now.AddDate(0, 0, -samplerWindowDays)
	hour := now.Hour()
	weekend := isWeekend(now)

	var windowed []models.WaitSample
	for _, s := range samples {
		if s.RecordedAt.Before(cutoff) {
			continue
		}
		if !hourWithinWindow(s.RecordedAt.Hour(), hour) {
			continue
		}
		windowed = append(windowed, s)
	}

	var matched []models.WaitSample
	for _, s := range windowed {
		if isWeekend(s.RecordedAt) == weekend {
			matched = append(matched, s)
		}
	}
	if len(matched) >= samplerMinPoints {
		windowed = matched
	}

	if len(windowed) < samplerMinPoints {
		limit := samplerFallbackCount
		if len(samples) < limit {
			limit = len(samples)
		}
		windowed = samples[:limit]
	}

	out := make([]int, 0, len(windowed))
	for _, s := range windowed {
		out = append(out, s.WaitMinutes)
	}
	return out
}

// hourWithinWindow reports whether h falls inside [center-1,
// center+1] on the 24-hour clock, wrapping at midnight.
func hourWithinWindow(h, center int) bool {
	lo := (center + 23) % 24
	hi := (center + 1) % 24
	if lo <= hi {
		return h >= lo && h <= hi
	}
	return h >= lo || h <= hi
}

func isWeekend(t time.Time) bool {
	day := t.Weekday()
	return day == time.Saturday || day == time.Sunday
}
