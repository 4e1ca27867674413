package appointment

import "errors"

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrAppointmentConflict     = errors.New("veterinarian is not available at that time: schedule conflict")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
	ErrInvalidStatus           = errors.New("invalid appointment status")
	ErrScheduledInPast         = errors.New("appointment start must be in the future")
	ErrInvalidDuration         = errors.New("appointment duration cannot be negative")
	ErrInvalidLocation         = errors.New("location must be one of clinic, home_visit, teleconsult")
	ErrAddressRequired         = errors.New("an address is required for home visits")
	ErrNoServices              = errors.New("at least one service is required")
	ErrPetNotOwnedByClient     = errors.New("pet does not belong to the given client")
	ErrScheduleBusy            = errors.New("veterinarian schedule is being modified, retry shortly")
)
