package store

import "queueease/queue-service/internal/models"

var queueTransitionMap = map[string][]string{
	"complete": {models.StatusPending},
	"cancel":   {models.StatusPending},
	"transfer": {models.StatusPending},
}

var appointmentTransitionMap = map[string][]string{
	"check_in": {models.ApptStatusScheduled},
	"start":    {models.ApptStatusCheckedIn},
	"complete": {models.ApptStatusInProgress},
	"cancel":   {models.ApptStatusScheduled, models.ApptStatusCheckedIn, models.ApptStatusInProgress},
	"miss":     {models.ApptStatusScheduled, models.ApptStatusCheckedIn},
}

func ValidQueueTransition(action, fromStatus string) bool {
	return contains(queueTransitionMap[action], fromStatus)
}

func ValidAppointmentTransition(action, fromStatus string) bool {
	return contains(appointmentTransitionMap[action], fromStatus)
}

func contains(allowed []string, status string) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}
