package client

import (
	"time"

	"github.com/google/uuid"
)

type ContactInfo struct {
	Phone   string `gorm:"column:phone;type:varchar(20);index" json:"phone,omitempty"`
	Email   string `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	Address string `gorm:"column:address;type:varchar(255)" json:"address,omitempty"`
}

// Client is a pet owner.
type Client struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	// PublicID is printed in QR codes; it is not the primary key so it can be
	// handed out without exposing internal identifiers.
	PublicID uuid.UUID `gorm:"column:public_id;type:uuid;uniqueIndex;not null" json:"public_id"`

	// Optional login linked to this profile.
	UserID *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex" json:"user_id,omitempty"`

	Name           string `gorm:"column:name;type:varchar(150);not null;index" json:"name"`
	DocumentType   string `gorm:"column:document_type;type:varchar(50)" json:"document_type,omitempty"`
	DocumentNumber string `gorm:"column:document_number;type:varchar(50)" json:"document_number,omitempty"`

	ContactInfo

	Notes string `gorm:"column:notes;type:text" json:"notes,omitempty"`

	CreatedBy *uuid.UUID `gorm:"column:created_by;type:uuid" json:"-"`
}

func (Client) TableName() string {
	return "clinical.clients"
}

type CreateClientCommand struct {
	UserID         *uuid.UUID
	Name           string
	Email          string
	Phone          string
	DocumentType   string
	DocumentNumber string
	Address        string
	Notes          string
	CreatedBy      *uuid.UUID
}

type UpdateClientCommand struct {
	UserID         *uuid.UUID
	Name           *string
	Email          *string
	Phone          *string
	DocumentType   *string
	DocumentNumber *string
	Address        *string
	Notes          *string
}

// ListClientsQuery defines filtering and pagination for client list queries.
type ListClientsQuery struct {
	Search   string // name, email or phone
	Page     int
	PageSize int
}

type PagedClients struct {
	Clients    []*Client `json:"clients"`
	TotalCount int64     `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}
