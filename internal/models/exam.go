package models

import "time"

// Exam shares the lesson shape and adds scoring data and course links.
type Exam struct {
	ID            string `db:"id" json:"id"`
	Title         string `db:"title" json:"title"`
	ClassroomID   string `db:"classroom_id" json:"classroom_id"`
	TeacherID     string `db:"teacher_id" json:"teacher_id"`
	SchoolClassID string `db:"school_class_id" json:"school_class_id"`
	SubjectID     string `db:"subject_id" json:"subject_id"`
	TimeSlot
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	MaxScore        float64   `db:"max_score" json:"max_score"`
	PassingScore    float64   `db:"passing_score" json:"passing_score"`
	CourseIDs       []string  `db:"-" json:"course_ids"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Booking returns the occupancy view of the exam.
func (e Exam) Booking() Booking {
	return Booking{Kind: BookingKindExam, ID: e.ID, ClassroomID: e.ClassroomID, TimeSlot: e.TimeSlot}
}

// ExamFilter describes query params for listing exams.
type ExamFilter struct {
	ClassroomID   string
	TeacherID     string
	SchoolClassID string
	SubjectID     string
	CourseID      string
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
