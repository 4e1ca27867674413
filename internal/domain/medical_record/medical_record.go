package medical_record

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

type RecordType string

const (
	TypeConsultation RecordType = "consultation"
	TypeVaccine      RecordType = "vaccine"
	TypeProcedure    RecordType = "procedure"
	TypeCheckup      RecordType = "checkup"
	TypeOther        RecordType = "other"
)

func (t RecordType) IsValid() bool {
	switch t {
	case TypeConsultation, TypeVaccine, TypeProcedure, TypeCheckup, TypeOther:
		return true
	}
	return false
}

// MaxAttachmentBytes caps a single uploaded file.
const MaxAttachmentBytes = 10 << 20

var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// AttachmentContentType returns the content type stored for fileName, or
// ErrUnsupportedAttachment when the extension is not accepted.
func AttachmentContentType(fileName string) (string, error) {
	ct, ok := allowedExtensions[strings.ToLower(path.Ext(fileName))]
	if !ok {
		return "", ErrUnsupportedAttachment
	}
	return ct, nil
}

// Attachment is a file stored in object storage for a record.
type Attachment struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UploadedAt      time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
	MedicalRecordID uuid.UUID `gorm:"column:medical_record_id;type:uuid;not null;index" json:"-"`

	FileName    string    `gorm:"column:file_name;type:varchar(255);not null" json:"file_name"`
	ContentType string    `gorm:"column:content_type;type:varchar(100);not null" json:"content_type"`
	ObjectKey   string    `gorm:"column:object_key;type:varchar(500);not null" json:"-"`
	SizeBytes   int64     `gorm:"column:size_bytes;not null" json:"size_bytes"`
	UploadedBy  uuid.UUID `gorm:"column:uploaded_by;type:uuid;not null" json:"uploaded_by"`
}

func (Attachment) TableName() string {
	return "clinical.medical_record_attachments"
}

// ServiceLine is a catalog service performed during the visit.
type ServiceLine struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	MedicalRecordID uuid.UUID `gorm:"column:medical_record_id;type:uuid;not null;index" json:"-"`
	ServiceID       uuid.UUID `gorm:"column:service_id;type:uuid;not null;index" json:"service_id"`
	ServiceName     string    `gorm:"column:service_name;type:varchar(150);not null" json:"service_name"`
	Quantity        int       `gorm:"column:quantity;not null;default:1" json:"quantity"`
	UnitPriceCents  int64     `gorm:"column:unit_price_cents;not null" json:"unit_price_cents"`
	Notes           string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
}

func (ServiceLine) TableName() string {
	return "clinical.medical_record_services"
}

type MedicalRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PetID         uuid.UUID  `gorm:"column:pet_id;type:uuid;not null;index" json:"pet_id"`
	AppointmentID *uuid.UUID `gorm:"column:appointment_id;type:uuid;index" json:"appointment_id,omitempty"`
	PerformedBy   uuid.UUID  `gorm:"column:performed_by;type:uuid;not null;index" json:"performed_by"` // veterinarian id

	RecordedAt time.Time  `gorm:"column:recorded_at;not null;index" json:"recorded_at"`
	Type       RecordType `gorm:"column:type;type:varchar(20);not null;index" json:"type"`

	Diagnosis    string `gorm:"column:diagnosis;type:text" json:"diagnosis,omitempty"`
	Treatment    string `gorm:"column:treatment;type:text" json:"treatment,omitempty"`
	Observations string `gorm:"column:observations;type:text" json:"observations,omitempty"`

	Billed    bool       `gorm:"column:billed;not null;default:false;index" json:"billed"`
	InvoiceID *uuid.UUID `gorm:"column:invoice_id;type:uuid;index" json:"invoice_id,omitempty"`

	Services    []ServiceLine `gorm:"foreignKey:MedicalRecordID" json:"services,omitempty"`
	Attachments []Attachment  `gorm:"foreignKey:MedicalRecordID" json:"attachments,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"-"`
}

func (MedicalRecord) TableName() string {
	return "clinical.medical_records"
}

// TotalServicesCents is sum(quantity * unit price) over the service lines.
func (r *MedicalRecord) TotalServicesCents() int64 {
	var total int64
	for _, l := range r.Services {
		total += int64(l.Quantity) * l.UnitPriceCents
	}
	return total
}

type ServiceLineInput struct {
	ServiceID uuid.UUID
	Quantity  int
	// nil means the current catalog price
	UnitPriceCents *int64
	Notes          string
}

type CreateRecordCommand struct {
	PetID         uuid.UUID
	AppointmentID *uuid.UUID
	RecordedAt    *time.Time
	Type          RecordType
	Diagnosis     string
	Treatment     string
	Observations  string
	Services      []ServiceLineInput
	CreatedBy     uuid.UUID
}

type UpdateRecordCommand struct {
	Type         *RecordType
	Diagnosis    *string
	Treatment    *string
	Observations *string
}

type ListRecordsQuery struct {
	PetID          *uuid.UUID
	ClientID       *uuid.UUID // records of every pet owned by the client
	VeterinarianID *uuid.UUID
	Type           *RecordType
	Billed         *bool
	DateFrom       *time.Time
	DateTo         *time.Time
	PetName        string
	ClientName     string
	Search         string // diagnosis, treatment or observations
	Page           int
	PageSize       int
}

type PagedRecords struct {
	Records    []*MedicalRecord `json:"records"`
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}
