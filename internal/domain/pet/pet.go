package pet

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

func (s Sex) IsValid() bool {
	switch s {
	case SexMale, SexFemale, SexUnknown:
		return true
	}
	return false
}

type Pet struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"` // Soft Delete

	ClientID uuid.UUID `gorm:"column:client_id;type:uuid;not null;index" json:"client_id"`
	PublicID uuid.UUID `gorm:"column:public_id;type:uuid;uniqueIndex;not null" json:"public_id"`

	Name      string     `gorm:"column:name;type:varchar(100);not null;index" json:"name"`
	Species   string     `gorm:"column:species;type:varchar(50);not null;index" json:"species"`
	Breed     string     `gorm:"column:breed;type:varchar(100)" json:"breed,omitempty"`
	Sex       Sex        `gorm:"column:sex;type:varchar(10);not null;default:'unknown'" json:"sex"`
	BirthDate *time.Time `gorm:"column:birth_date;type:date" json:"birth_date,omitempty"`
	Color     string     `gorm:"column:color;type:varchar(50)" json:"color,omitempty"`
	ChipID    string     `gorm:"column:chip_id;type:varchar(50);index" json:"chip_id,omitempty"`
	PhotoURL  string     `gorm:"column:photo_url;type:text" json:"photo_url,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"-"`
}

func (Pet) TableName() string {
	return "clinical.pets"
}

// Age returns completed years and the remaining months since birth. ok is
// false when the birth date is unknown.
func (p *Pet) Age(now time.Time) (years, months int, ok bool) {
	if p.BirthDate == nil {
		return 0, 0, false
	}
	b := *p.BirthDate
	total := (now.Year()-b.Year())*12 + int(now.Month()) - int(b.Month())
	if now.Day() < b.Day() {
		total--
	}
	if total < 0 {
		total = 0
	}
	return total / 12, total % 12, true
}

// AgeLabel renders Age as "2 years 3 months", "1 year" or "5 months".
func (p *Pet) AgeLabel(now time.Time) string {
	years, months, ok := p.Age(now)
	if !ok {
		return ""
	}
	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("%d %s", n, unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	switch {
	case years > 0 && months > 0:
		return plural(years, "year") + " " + plural(months, "month")
	case years > 0:
		return plural(years, "year")
	default:
		return plural(months, "month")
	}
}

type CreatePetCommand struct {
	ClientID  uuid.UUID
	Name      string
	Species   string
	Breed     string
	Sex       Sex
	BirthDate *time.Time
	Color     string
	ChipID    string
	PhotoURL  string
	CreatedBy uuid.UUID
}

type UpdatePetCommand struct {
	Name      *string
	Species   *string
	Breed     *string
	Sex       *Sex
	BirthDate *time.Time
	Color     *string
	ChipID    *string
	PhotoURL  *string
}

// ListPetsQuery defines filtering and pagination for pet list queries.
type ListPetsQuery struct {
	ClientID *uuid.UUID
	Species  string
	Search   string // name or chip id
	Page     int
	PageSize int
}

type PagedPets struct {
	Pets       []*Pet `json:"pets"`
	TotalCount int64  `json:"total_count"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
}
