package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole represents the role of a back-office account
type UserRole string

const (
	UserRoleAdmin   UserRole = "ADMINISTRATIVO"
	UserRoleTrainer UserRole = "ENTRENADOR"
)

// Valid reports whether r is one of the known roles
func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleTrainer
}

// User represents a back-office account. Trainers are users with UserRoleTrainer.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Username     string   `gorm:"type:varchar(255);not null" json:"username"`
	DNI          int64    `gorm:"uniqueIndex;not null" json:"dni"`
	PasswordHash string   `gorm:"type:varchar(255)" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);default:'ENTRENADOR'" json:"role"`
}

// IsTrainer reports whether the user can be assigned socios
func (u User) IsTrainer() bool {
	return u.Role == UserRoleTrainer
}

// Trainer is the read-only projection of a trainer account
type Trainer struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// AsTrainer projects the user into a Trainer
func (u User) AsTrainer() Trainer {
	return Trainer{ID: u.ID, Username: u.Username}
}
