package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
)

type classroomReader interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	ListAll(ctx context.Context) ([]models.Classroom, error)
}

type lessonTimeline interface {
	ListByClassroom(ctx context.Context, classroomID string) ([]models.Lesson, error)
}

type examTimeline interface {
	ListByClassroom(ctx context.Context, classroomID string) ([]models.Exam, error)
}

// AvailabilityService answers whether classrooms are free for a time slot.
// Lessons and exams share one timeline per classroom. All checks are read-only.
type AvailabilityService struct {
	classrooms classroomReader
	lessons    lessonTimeline
	exams      examTimeline
	cache      *CacheService
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewAvailabilityService constructs AvailabilityService. cache may be nil.
func NewAvailabilityService(classrooms classroomReader, lessons lessonTimeline, exams examTimeline, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{classrooms: classrooms, lessons: lessons, exams: exams, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// IsAvailable reports whether no booking in the classroom overlaps slot.
// The booking referenced by exclude is skipped so updates do not collide with themselves.
func (s *AvailabilityService) IsAvailable(ctx context.Context, classroomID string, slot models.TimeSlot, exclude models.BookingRef) (bool, error) {
	if err := slot.Validate(); err != nil {
		return false, err
	}
	conflicts, err := s.scan(ctx, classroomID, slot, exclude, true)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// FindConflicts returns every booking in the classroom overlapping slot.
func (s *AvailabilityService) FindConflicts(ctx context.Context, classroomID string, slot models.TimeSlot, exclude models.BookingRef) ([]models.BookingConflict, error) {
	if err := slot.Validate(); err != nil {
		return nil, err
	}
	return s.scan(ctx, classroomID, slot, exclude, false)
}

// FindAvailableInTimeRange returns classrooms with no booking overlapping slot.
func (s *AvailabilityService) FindAvailableInTimeRange(ctx context.Context, slot models.TimeSlot) ([]models.Classroom, error) {
	if err := slot.Validate(); err != nil {
		return nil, err
	}

	version, cacheable := s.cache.Version(ctx, availabilityVersionKey)
	key := availabilityKey(version, slot.Start, slot.End)
	if cacheable {
		var cached []models.Classroom
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	classrooms, err := s.classrooms.ListAll(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list classrooms")
	}
	available := make([]models.Classroom, 0, len(classrooms))
	for _, classroom := range classrooms {
		conflicts, err := s.scan(ctx, classroom.ID, slot, models.BookingRef{}, true)
		if err != nil {
			return nil, err
		}
		if len(conflicts) == 0 {
			available = append(available, classroom)
		}
	}

	if cacheable {
		_ = s.cache.Set(ctx, key, available, s.cacheTTL)
	}
	return available, nil
}

// scan loads the full classroom timeline, not a time window, and tests each booking
// with models.Overlaps. With firstOnly it stops at the first hit.
func (s *AvailabilityService) scan(ctx context.Context, classroomID string, slot models.TimeSlot, exclude models.BookingRef, firstOnly bool) ([]models.BookingConflict, error) {
	lessons, err := s.lessons.ListByClassroom(ctx, classroomID)
	if err != nil {
		return nil, internalError(err, "failed to load classroom lessons")
	}
	exams, err := s.exams.ListByClassroom(ctx, classroomID)
	if err != nil {
		return nil, internalError(err, "failed to load classroom exams")
	}

	bookings := make([]models.Booking, 0, len(lessons)+len(exams))
	for _, lesson := range lessons {
		bookings = append(bookings, lesson.Booking())
	}
	for _, exam := range exams {
		bookings = append(bookings, exam.Booking())
	}

	var conflicts []models.BookingConflict
	for _, booking := range bookings {
		if exclude.Matches(booking.Kind, booking.ID) {
			continue
		}
		if !models.Overlaps(booking.TimeSlot, slot) {
			continue
		}
		conflicts = append(conflicts, models.BookingConflict{
			Kind:        booking.Kind,
			ID:          booking.ID,
			ClassroomID: classroomID,
			TimeSlot:    booking.TimeSlot,
		})
		if firstOnly {
			break
		}
	}
	return conflicts, nil
}
