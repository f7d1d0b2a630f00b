package models

import "time"

// RegistrationStatus represents the lifecycle of a registration.
type RegistrationStatus string

// Possible registration statuses. Only ACTIVE counts against class capacity.
const (
	RegistrationStatusActive    RegistrationStatus = "ACTIVE"
	RegistrationStatusCompleted RegistrationStatus = "COMPLETED"
	RegistrationStatusWithdrawn RegistrationStatus = "WITHDRAWN"
	RegistrationStatusSuspended RegistrationStatus = "SUSPENDED"
)

// Valid reports whether the status is one of the known values.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusActive, RegistrationStatusCompleted, RegistrationStatusWithdrawn, RegistrationStatusSuspended:
		return true
	}
	return false
}

// Registration captures a student's place in a school class.
type Registration struct {
	ID            string             `db:"id" json:"id"`
	StudentID     string             `db:"student_id" json:"student_id"`
	SchoolClassID string             `db:"school_class_id" json:"school_class_id"`
	Status        RegistrationStatus `db:"status" json:"status"`
	RegisteredAt  time.Time          `db:"registered_at" json:"registered_at"`
	Notes         *string            `db:"notes" json:"notes,omitempty"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// RegistrationFilter provides filters for listing registrations.
type RegistrationFilter struct {
	StudentID     string
	SchoolClassID string
	Status        RegistrationStatus
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
