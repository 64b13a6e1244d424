package models

import "time"

type Service struct {
	ServiceID        string    `json:"service_id"`
	Name             string    `json:"name"`
	Category         string    `json:"category,omitempty"`
	Description      string    `json:"description,omitempty"`
	ServiceType      string    `json:"service_type"`
	ParallelCapacity int       `json:"parallel_capacity"`
	AverageDuration  int       `json:"average_duration"`
	MinimalPrepTime  int       `json:"minimal_prep_time"`
	RequiresPrepTime bool      `json:"requires_prep_time"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

const (
	ServiceTypeImmediate   = "immediate"
	ServiceTypeAppointment = "appointment"
)
