package veterinarian

import "errors"

var (
	ErrVeterinarianNotFound    = errors.New("veterinarian not found")
	ErrLicenseAlreadyExists    = errors.New("a veterinarian with this license number already exists")
	ErrHasUpcomingAppointments = errors.New("veterinarian cannot be deleted while it has upcoming appointments")
	ErrInvalidWeekday          = errors.New("weekday must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidClock            = errors.New("time must use the HH:MM format")
	ErrWindowEndBeforeStart    = errors.New("end time must be after start time")
	ErrInvalidSlotMinutes      = errors.New("slot minutes must be between 10 and 120")
)
