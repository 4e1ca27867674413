package catalog

import "errors"

var (
	ErrServiceNotFound    = errors.New("service not found")
	ErrServiceCodeExists  = errors.New("a service with this code already exists")
	ErrInvalidServiceType = errors.New("invalid service type")
	ErrInvalidDuration    = errors.New("duration cannot be negative")
	ErrInvalidPrice       = errors.New("price cannot be negative")
	ErrUnknownServices    = errors.New("one or more services do not exist")
)
