package models

import (
	"time"

	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

// TimeSlot is the half-open interval [Start, End) a booking occupies.
type TimeSlot struct {
	Start time.Time `db:"start_time" json:"start_time"`
	End   time.Time `db:"end_time" json:"end_time"`
}

// NewTimeSlot validates the bounds and returns the interval.
func NewTimeSlot(start, end time.Time) (TimeSlot, error) {
	slot := TimeSlot{Start: start, End: end}
	if err := slot.Validate(); err != nil {
		return TimeSlot{}, err
	}
	return slot, nil
}

// Validate fails with INVALID_TIME_RANGE unless End is strictly after Start.
func (s TimeSlot) Validate() error {
	if !s.End.After(s.Start) {
		return appErrors.Clone(appErrors.ErrInvalidTimeRange, "").
			WithDetail("start", s.Start).
			WithDetail("end", s.End)
	}
	return nil
}

// Overlaps reports whether two slots intersect. Touching endpoints do not overlap.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return Overlaps(s, other)
}

// Duration returns End - Start.
func (s TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Overlaps is the single overlap predicate: a.Start < b.End && b.Start < a.End.
func Overlaps(a, b TimeSlot) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
