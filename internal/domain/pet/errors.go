package pet

import "errors"

var (
	ErrPetNotFound         = errors.New("pet not found")
	ErrInvalidSex          = errors.New("invalid sex value")
	ErrInvalidBirthDate    = errors.New("birth date cannot be in the future")
	ErrPetHasAppointments  = errors.New("pet cannot be deleted while it has upcoming appointments")
	ErrChipAlreadyAssigned = errors.New("chip id is already assigned to another pet")
)
