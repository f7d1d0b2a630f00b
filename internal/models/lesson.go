package models

import "time"

// Lesson is a scheduled teaching session for a school class in a classroom.
type Lesson struct {
	ID            string `db:"id" json:"id"`
	ClassroomID   string `db:"classroom_id" json:"classroom_id"`
	TeacherID     string `db:"teacher_id" json:"teacher_id"`
	SchoolClassID string `db:"school_class_id" json:"school_class_id"`
	SubjectID     string `db:"subject_id" json:"subject_id"`
	TimeSlot
	Topic     *string   `db:"topic" json:"topic,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Booking returns the occupancy view of the lesson.
func (l Lesson) Booking() Booking {
	return Booking{Kind: BookingKindLesson, ID: l.ID, ClassroomID: l.ClassroomID, TimeSlot: l.TimeSlot}
}

// LessonFilter describes query params for listing lessons.
type LessonFilter struct {
	ClassroomID   string
	TeacherID     string
	SchoolClassID string
	SubjectID     string
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
