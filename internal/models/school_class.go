package models

import "time"

// SchoolClass is a group of students sharing a roster and a teacher team.
type SchoolClass struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	MaxStudents int       `db:"max_students" json:"max_students"`
	TeacherIDs  []string  `db:"-" json:"teacher_ids"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolClassFilter defines filter criteria for listing school classes.
type SchoolClassFilter struct {
	Search    string
	TeacherID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// SeatSummary is the enrollment capacity view of a school class.
type SeatSummary struct {
	SchoolClassID       string `json:"school_class_id"`
	MaxStudents         int    `json:"max_students"`
	ActiveRegistrations int    `json:"active_registrations"`
	AvailableSeats      int    `json:"available_seats"`
	IsFull              bool   `json:"is_full"`
}

// NewSeatSummary derives available seats, clamped to [0, maxStudents].
func NewSeatSummary(classID string, maxStudents, active int) SeatSummary {
	available := maxStudents - active
	if available < 0 {
		available = 0
	}
	if available > maxStudents {
		available = maxStudents
	}
	return SeatSummary{
		SchoolClassID:       classID,
		MaxStudents:         maxStudents,
		ActiveRegistrations: active,
		AvailableSeats:      available,
		IsFull:              available == 0,
	}
}
