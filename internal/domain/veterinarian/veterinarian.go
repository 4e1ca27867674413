package veterinarian

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Veterinarian struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	UserID *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex" json:"user_id,omitempty"`

	Name          string `gorm:"column:name;type:varchar(150);not null;index" json:"name"`
	LicenseNumber string `gorm:"column:license_number;type:varchar(50);uniqueIndex" json:"license_number,omitempty"`
	Specialty     string `gorm:"column:specialty;type:varchar(100);index" json:"specialty,omitempty"`
	Phone         string `gorm:"column:phone;type:varchar(20)" json:"phone,omitempty"`
	Email         string `gorm:"column:email;type:varchar(150)" json:"email,omitempty"`

	Availability []Availability `gorm:"foreignKey:VeterinarianID" json:"availability,omitempty"`
}

func (Veterinarian) TableName() string {
	return "clinical.veterinarians"
}

// Availability is a recurring weekly working window.
type Availability struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	VeterinarianID uuid.UUID `gorm:"column:veterinarian_id;type:uuid;not null;index" json:"-"`

	Weekday     int    `gorm:"column:weekday;not null" json:"weekday"` // 0 = Sunday
	StartTime   string `gorm:"column:start_time;type:varchar(5);not null" json:"start_time"`
	EndTime     string `gorm:"column:end_time;type:varchar(5);not null" json:"end_time"`
	SlotMinutes int    `gorm:"column:slot_minutes;not null" json:"slot_minutes"`
	Active      bool   `gorm:"column:active;not null" json:"active"`
}

func (Availability) TableName() string {
	return "clinical.veterinarian_availability"
}

const (
	MinSlotMinutes = 10
	MaxSlotMinutes = 120
)

// Validate checks a window in isolation.
func (a Availability) Validate() error {
	if a.Weekday < 0 || a.Weekday > 6 {
		return ErrInvalidWeekday
	}
	start, err := ParseClock(a.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseClock(a.EndTime)
	if err != nil {
		return err
	}
	if end <= start {
		return ErrWindowEndBeforeStart
	}
	if a.SlotMinutes < MinSlotMinutes || a.SlotMinutes > MaxSlotMinutes {
		return ErrInvalidSlotMinutes
	}
	return nil
}

// Window resolves the window on a concrete day. day must be the midnight of
// that date in the clinic's location.
func (a Availability) Window(day time.Time) (start, end time.Time, err error) {
	s, err := ParseClock(a.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := ParseClock(a.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return day.Add(s), day.Add(e), nil
}

// ParseClock parses HH:MM into an offset from midnight.
func ParseClock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", v)
	if err != nil || len(v) != 5 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, v)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

type CreateVeterinarianCommand struct {
	UserID        *uuid.UUID
	Name          string
	LicenseNumber string
	Specialty     string
	Phone         string
	Email         string
}

type UpdateVeterinarianCommand struct {
	UserID        *uuid.UUID
	Name          *string
	LicenseNumber *string
	Specialty     *string
	Phone         *string
	Email         *string
}

type ListVeterinariansQuery struct {
	Search    string // name, specialty or license number
	Specialty string
	Page      int
	PageSize  int
}

type PagedVeterinarians struct {
	Veterinarians []*Veterinarian `json:"veterinarians"`
	TotalCount    int64           `json:"total_count"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
	TotalPages    int             `json:"total_pages"`
}
