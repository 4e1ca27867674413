package notification

import "errors"

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidType          = errors.New("invalid notification type")
	ErrInvalidPlatform      = errors.New("platform must be android, ios or web")
	ErrDeviceTokenNotFound  = errors.New("device token not found")
)
