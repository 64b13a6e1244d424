package store

import (
	"testing"
	"time"
)

func TestWithinWindow(t *testing.T) {
	created := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		now  time.Time
		want bool
	}{
		{created.Add(30 * time.Second), true},
		{created.Add(3 * time.Minute), true},
		{created.Add(3*time.Minute + time.Second), false},
	}
	for _, tt := range cases {
		if got := WithinWindow(created, tt.now, DefaultLeaveWindow); got != tt.want {
			t.Fatalf("WithinWindow(+%v)=%v, want %v", tt.now.Sub(created), got, tt.want)
		}
	}
}

func TestBeforeCutoff(t *testing.T) {
	slot := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if !BeforeCutoff(slot, slot.Add(-25*time.Hour), DefaultCancelCutoff) {
		t.Fatal("25h ahead should allow cancellation")
	}
	if BeforeCutoff(slot, slot.Add(-23*time.Hour), DefaultCancelCutoff) {
		t.Fatal("23h ahead should be past the cutoff")
	}
}

func TestMergeDelayIsMonotonic(t *testing.T) {
	cases := []struct {
		current, incoming, want int
	}{
		{15, 10, 15},
		{15, 20, 20},
		{0, 12, 12},
		{12, 12, 12},
		{12, 0, 12},
	}
	for _, tt := range cases {
		if got := MergeDelay(tt.current, tt.incoming); got != tt.want {
			t.Fatalf("MergeDelay(%d, %d)=%d, want %d", tt.current, tt.incoming, got, tt.want)
		}
	}
}

func TestDelayBetween(t *testing.T) {
	scheduled := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		actual time.Time
		want   int
	}{
		{scheduled.Add(12 * time.Minute), 12},
		{scheduled.Add(-5 * time.Minute), 0},
		{scheduled, 0},
		{scheduled.Add(90 * time.Second), 2},
	}
	for _, tt := range cases {
		if got := DelayBetween(scheduled, tt.actual); got != tt.want {
			t.Fatalf("DelayBetween(+%v)=%d, want %d", tt.actual.Sub(scheduled), got, tt.want)
		}
	}
}
