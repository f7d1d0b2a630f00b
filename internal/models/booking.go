package models

// BookingKind distinguishes the two entity kinds sharing a classroom timeline.
type BookingKind string

const (
	BookingKindLesson BookingKind = "LESSON"
	BookingKindExam   BookingKind = "EXAM"
)

// BookingRef identifies one existing booking. The zero value refers to nothing.
type BookingRef struct {
	Kind BookingKind
	ID   string
}

// IsZero reports whether the reference is empty.
func (r BookingRef) IsZero() bool {
	return r.ID == ""
}

// Matches reports whether the reference points at the given booking.
func (r BookingRef) Matches(kind BookingKind, id string) bool {
	return !r.IsZero() && r.Kind == kind && r.ID == id
}

// Booking is the classroom-occupancy view of a lesson or exam.
type Booking struct {
	Kind        BookingKind `json:"kind"`
	ID          string      `json:"id"`
	ClassroomID string      `json:"classroom_id"`
	TimeSlot
}

// BookingConflict describes an existing booking overlapping a requested slot.
type BookingConflict struct {
	Kind        BookingKind `json:"kind"`
	ID          string      `json:"id"`
	ClassroomID string      `json:"classroom_id"`
	TimeSlot
}

// AvailabilityReport answers an availability query for one classroom.
type AvailabilityReport struct {
	ClassroomID string            `json:"classroom_id"`
	Slot        TimeSlot          `json:"slot"`
	Available   bool              `json:"available"`
	Conflicts   []BookingConflict `json:"conflicts"`
}
