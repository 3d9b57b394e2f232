package models

import "time"

// Socio represents a gym member being billed. Like shares, socios are
// hard-deleted and the payments foreign key keeps billed ones.
type Socio struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Surname   string    `gorm:"type:varchar(255);not null" json:"apellido"`
	GivenName string    `gorm:"type:varchar(255);not null" json:"nombre"`
	BirthDate time.Time `gorm:"type:date" json:"fechaNacimiento"`
	TrainerID *uint     `gorm:"index" json:"trainerId"`

	// Relationships
	Trainer *User `gorm:"foreignKey:TrainerID" json:"trainer,omitempty"`
}

// FullName returns the display name, e.g. "Pérez, Juan"
func (s Socio) FullName() string {
	return s.Surname + ", " + s.GivenName
}

// SortName is the key used for alphabetical listings
func (s Socio) SortName() string {
	return s.Surname + " " + s.GivenName
}

// TrainerUsername returns the assigned trainer's username, or "" when unassigned
func (s Socio) TrainerUsername() string {
	if s.Trainer == nil {
		return ""
	}
	return s.Trainer.Username
}

// AssignedTo reports whether the socio belongs to the given trainer
func (s Socio) AssignedTo(trainerID uint) bool {
	return s.TrainerID != nil && *s.TrainerID == trainerID
}
