package notification

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAppointmentCreated     Type = "appointment_created"
	TypeAppointmentRescheduled Type = "appointment_rescheduled"
	TypeAppointmentCancelled   Type = "appointment_cancelled"
	TypeAppointmentReminder    Type = "appointment_reminder"
	TypeInvoiceIssued          Type = "invoice_issued"
	TypeGeneral                Type = "general"
)

var Types = []Type{
	TypeAppointmentCreated,
	TypeAppointmentRescheduled,
	TypeAppointmentCancelled,
	TypeAppointmentReminder,
	TypeInvoiceIssued,
	TypeGeneral,
}

func (t Type) IsValid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
)

type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Type   Type      `gorm:"column:type;type:varchar(40);not null;index" json:"type"`
	Title  string    `gorm:"column:title;type:varchar(200);not null" json:"title"`
	Body   string    `gorm:"column:body;type:text" json:"body"`

	Meta    map[string]string `gorm:"column:meta;serializer:json" json:"meta,omitempty"`
	Channel string            `gorm:"column:channel;type:varchar(20);not null;default:'in_app'" json:"channel"`

	Read   bool       `gorm:"column:is_read;not null;default:false;index" json:"read"`
	ReadAt *time.Time `gorm:"column:read_at" json:"read_at,omitempty"`
	SentAt *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
}

func (Notification) TableName() string {
	return "clinical.notifications"
}

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

func (p Platform) IsValid() bool {
	switch p {
	case PlatformAndroid, PlatformIOS, PlatformWeb:
		return true
	}
	return false
}

// DeviceToken registers a device for push delivery.
type DeviceToken struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Token      string    `gorm:"column:token;type:varchar(512);uniqueIndex;not null" json:"token"`
	Platform   Platform  `gorm:"column:platform;type:varchar(10);not null" json:"platform"`
	LastSeenAt time.Time `gorm:"column:last_seen_at;not null" json:"last_seen_at"`
}

func (DeviceToken) TableName() string {
	return "auth.device_tokens"
}

type ListNotificationsQuery struct {
	UserID     uuid.UUID
	UnreadOnly bool
	Type       *Type
	Page       int
	PageSize   int
}

type PagedNotifications struct {
	Notifications []*Notification `json:"notifications"`
	TotalCount    int64           `json:"total_count"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
	TotalPages    int             `json:"total_pages"`
}
