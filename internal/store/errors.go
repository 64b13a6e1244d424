package store

import "errors"

var (
	ErrServiceNotFound     = errors.New("service not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrEntryNotFound       = errors.New("queue entry not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrTokenNotFound       = errors.New("no active device token")
	ErrQRCodeNotFound      = errors.New("qr code not found")

	ErrNotAuthorized         = errors.New("not authorized")
	ErrAlreadyCompleted      = errors.New("entry is no longer pending")
	ErrLeaveWindowExpired    = errors.New("leave window expired")
	ErrTransferWindowExpired = errors.New("transfer window expired")
	ErrIncompatibleService   = errors.New("services are not compatible for transfer")
	ErrSameService           = errors.New("cannot transfer to the same service")
	ErrCancelWindowExpired   = errors.New("cancellation cutoff passed")
	ErrInvalidTransition     = errors.New("invalid status transition")
)
