package store

import "testing"

func TestValidQueueTransition(t *testing.T) {
	cases := []struct {
		action string
		from   string
		valid  bool
	}{
		{"complete", "pending", true},
		{"complete", "completed", false},
		{"complete", "transferred", false},
		{"cancel", "pending", true},
		{"cancel", "cancelled", false},
		{"transfer", "pending", true},
		{"transfer", "completed", false},
		{"unknown", "pending", false},
	}

	for _, tt := range cases {
		if got := ValidQueueTransition(tt.action, tt.from); got != tt.valid {
			t.Fatalf("ValidQueueTransition(%q, %q)=%v, want %v", tt.action, tt.from, got, tt.valid)
		}
	}
}

func TestValidAppointmentTransition(t *testing.T) {
	cases := []struct {
		action string
		from   string
		valid  bool
	}{
		{"check_in", "scheduled", true},
		{"check_in", "checked_in", false},
		{"start", "checked_in", true},
		{"start", "scheduled", false},
		{"complete", "in_progress", true},
		{"complete", "checked_in", false},
		{"cancel", "scheduled", true},
		{"cancel", "checked_in", true},
		{"cancel", "in_progress", true},
		{"cancel", "completed", false},
		{"miss", "scheduled", true},
		{"miss", "in_progress", false},
		{"unknown", "scheduled", false},
	}

	for _, tt := range cases {
		if got := ValidAppointmentTransition(tt.action, tt.from); got != tt.valid {
			t.Fatalf("ValidAppointmentTransition(%q, %q)=%v, want %v", tt.action, tt.from, got, tt.valid)
		}
	}
}
