package catalog

import (
	"time"

	"github.com/google/uuid"
)

type ServiceType string

const (
	TypeConsultation ServiceType = "consultation"
	TypeVaccine      ServiceType = "vaccine"
	TypeSurgery      ServiceType = "surgery"
	TypeGrooming     ServiceType = "grooming"
	TypeLaboratory   ServiceType = "laboratory"
	TypeOther        ServiceType = "other"
)

// Types lists every service type in display order.
var Types = []ServiceType{TypeConsultation, TypeVaccine, TypeSurgery, TypeGrooming, TypeLaboratory, TypeOther}

func (t ServiceType) IsValid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

// Service is an entry of the clinic's price list. Prices are stored in cents.
type Service struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	Code                string      `gorm:"column:code;type:varchar(30);uniqueIndex;not null" json:"code"`
	Name                string      `gorm:"column:name;type:varchar(150);not null;index" json:"name"`
	Description         string      `gorm:"column:description;type:text" json:"description,omitempty"`
	Type                ServiceType `gorm:"column:type;type:varchar(20);not null;index" json:"type"`
	DurationMins        int         `gorm:"column:duration_mins;not null;default:0" json:"duration_mins"`
	PriceCents          int64       `gorm:"column:price_cents;not null;default:0" json:"price_cents"`
	RequiresVaccineInfo bool        `gorm:"column:requires_vaccine_info;not null;default:false" json:"requires_vaccine_info"`
}

func (Service) TableName() string {
	return "clinical.services"
}

func (s *Service) Validate() error {
	if !s.Type.IsValid() {
		return ErrInvalidServiceType
	}
	if s.DurationMins < 0 {
		return ErrInvalidDuration
	}
	if s.PriceCents < 0 {
		return ErrInvalidPrice
	}
	return nil
}

type UpdateServiceCommand struct {
	Code                *string
	Name                *string
	Description         *string
	Type                *ServiceType
	DurationMins        *int
	PriceCents          *int64
	RequiresVaccineInfo *bool
}

type ListServicesQuery struct {
	Type     *ServiceType
	Search   string // code or name
	Page     int
	PageSize int
}

type PagedServices struct {
	Services   []*Service `json:"services"`
	TotalCount int64      `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}
