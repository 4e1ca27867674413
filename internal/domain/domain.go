// Package domain holds the identity and audit types shared by every clinic
// module. Entity packages live underneath it.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleReceptionist Role = "receptionist"
	RoleVeterinarian Role = "veterinarian"
	RoleClient       Role = "client"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleReceptionist, RoleVeterinarian, RoleClient:
		return true
	}
	return false
}

// IsStaff reports whether the role belongs to clinic personnel.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleReceptionist || r == RoleVeterinarian
}

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("a user with this email already exists")
)

// Claims is what an access token proves about its bearer.
type Claims struct {
	UserID         uuid.UUID  `json:"sub"`
	Email          string     `json:"email"`
	Role           Role       `json:"role"`
	VeterinarianID *uuid.UUID `json:"veterinarian_id,omitempty"`
	ClientID       *uuid.UUID `json:"client_id,omitempty"`
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// User is a login. Clients and veterinarians keep their clinic data in their
// own profile rows; the user only points at them.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Name         string `gorm:"column:name;type:varchar(150);not null"`
	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	Phone        string `gorm:"column:phone;type:varchar(20)"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index"`

	VeterinarianID *uuid.UUID `gorm:"column:veterinarian_id;type:uuid;index"`
	ClientID       *uuid.UUID `gorm:"column:client_id;type:uuid;index"`

	IsActive          bool       `gorm:"column:is_active;default:true;index"`
	FailedLoginCount  int        `gorm:"column:failed_login_count;default:0"`
	LockedUntil       *time.Time `gorm:"column:locked_until"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at"`
	PasswordChangedAt time.Time  `gorm:"column:password_changed_at"`
}

func (User) TableName() string {
	return "auth.users"
}

// IsLocked reports whether failed logins still block the account at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// Claims derives the token claims for the user.
func (u *User) Claims() *Claims {
	return &Claims{
		UserID:         u.ID,
		Email:          u.Email,
		Role:           u.Role,
		VeterinarianID: u.VeterinarianID,
		ClientID:       u.ClientID,
	}
}

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionRead   AuditAction = "read"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
	ActionCancel AuditAction = "cancel"
	ActionLogin  AuditAction = "login"
)

// AuditLog is append-only. UserID is nil for anonymous actions such as a
// self-registration before the user row exists.
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid;index"`
	UserRole  Role       `gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string     `gorm:"column:ip_address;type:varchar(45)"`
	RequestID string     `gorm:"column:request_id;type:varchar(50);index"`

	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`
	Changes      string      `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}
