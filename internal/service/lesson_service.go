package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/internal/repository"
)

type lessonRepository interface {
	List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error)
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
}

type classroomLocker interface {
	LockByID(ctx context.Context, id string) (*models.Classroom, error)
}

// CreateLessonRequest is the payload for scheduling a lesson.
type CreateLessonRequest struct {
	ClassroomID   string    `json:"classroom_id" validate:"required"`
	TeacherID     string    `json:"teacher_id" validate:"required"`
	SchoolClassID string    `json:"school_class_id" validate:"required"`
	SubjectID     string    `json:"subject_id" validate:"required"`
	StartTime     time.Time `json:"start_time" validate:"required"`
	EndTime       time.Time `json:"end_time" validate:"required"`
	Topic         *string   `json:"topic" validate:"omitempty,max=255"`
}

// UpdateLessonRequest carries partial changes. Nil fields keep their stored value.
type UpdateLessonRequest struct {
	ClassroomID   *string    `json:"classroom_id" validate:"omitempty,min=1"`
	TeacherID     *string    `json:"teacher_id" validate:"omitempty,min=1"`
	SchoolClassID *string    `json:"school_class_id" validate:"omitempty,min=1"`
	SubjectID     *string    `json:"subject_id" validate:"omitempty,min=1"`
	StartTime     *time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	Topic         *string    `json:"topic" validate:"omitempty,max=255"`
}

// LessonService schedules lessons through the validation pipeline.
type LessonService struct {
	repo       lessonRepository
	classrooms classroomLocker
	pipeline   *SchedulingPipeline
	tx         transactor
	cache      *CacheService
	audit      *AuditService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewLessonService constructs LessonService. tx may be nil to run without a database transaction.
func NewLessonService(repo lessonRepository, classrooms classroomLocker, pipeline *SchedulingPipeline, tx transactor, cache *CacheService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if tx == nil {
		tx = inlineTransactor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{
		repo:       repo,
		classrooms: classrooms,
		pipeline:   pipeline,
		tx:         tx,
		cache:      cache,
		audit:      audit,
		metrics:    metrics,
		validator:  defaultValidator(validate),
		logger:     logger,
	}
}

// List returns lessons with pagination metadata.
func (s *LessonService) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, *models.Pagination, error) {
	lessons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list lessons")
	}
	return lessons, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a lesson by id.
func (s *LessonService) Get(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "lesson", id)
	}
	return lesson, nil
}

// Create validates and stores a new lesson.
func (s *LessonService) Create(ctx context.Context, req CreateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid lesson payload")
	}
	lesson := &models.Lesson{
		ClassroomID:   req.ClassroomID,
		TeacherID:     req.TeacherID,
		SchoolClassID: req.SchoolClassID,
		SubjectID:     req.SubjectID,
		TimeSlot:      models.TimeSlot{Start: req.StartTime.UTC(), End: req.EndTime.UTC()},
		Topic:         req.Topic,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		candidate, err := s.candidate(ctx, lesson, "")
		if err != nil {
			return err
		}
		if err := s.pipeline.Validate(ctx, candidate); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, lesson); err != nil {
			return bookingWriteError(err, lesson.ClassroomID, "failed to create lesson")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, models.AuditActionCreate, lesson)
	return lesson, nil
}

// Update merges the partial request into the stored lesson and revalidates the result.
func (s *LessonService) Update(ctx context.Context, id string, req UpdateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid lesson payload")
	}

	var lesson *models.Lesson
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "lesson", id)
		}
		merged := mergeLesson(*existing, req)

		candidate, err := s.candidate(ctx, &merged, existing.ClassroomID)
		if err != nil {
			return err
		}
		candidate.Self = models.BookingRef{Kind: models.BookingKindLesson, ID: id}
		if err := s.pipeline.Validate(ctx, candidate); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, &merged); err != nil {
			return bookingWriteError(err, merged.ClassroomID, "failed to update lesson")
		}
		lesson = &merged
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, models.AuditActionUpdate, lesson)
	return lesson, nil
}

// Delete removes a lesson. No validation runs on delete.
func (s *LessonService) Delete(ctx context.Context, id string) error {
	var lesson *models.Lesson
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "lesson", id)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return internalError(err, "failed to delete lesson")
		}
		lesson = existing
		return nil
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx, models.AuditActionDelete, lesson)
	return nil
}

// candidate locks the classrooms involved and builds the pipeline input.
func (s *LessonService) candidate(ctx context.Context, lesson *models.Lesson, previousClassroomID string) (*BookingCandidate, error) {
	locked, err := lockClassrooms(ctx, s.classrooms, lesson.ClassroomID, previousClassroomID)
	if err != nil {
		return nil, err
	}
	return &BookingCandidate{
		ClassroomID:   lesson.ClassroomID,
		TeacherID:     lesson.TeacherID,
		SchoolClassID: lesson.SchoolClassID,
		SubjectID:     lesson.SubjectID,
		Slot:          lesson.TimeSlot,
		Classroom:     locked[lesson.ClassroomID],
	}, nil
}

func (s *LessonService) afterWrite(ctx context.Context, action string, lesson *models.Lesson) {
	s.cache.InvalidateAvailability(ctx)
	s.metrics.RecordBooking(string(models.BookingKindLesson), action)
	s.audit.Record(ctx, action, "lesson", lesson.ID, lesson)
	s.logger.Info("lesson written",
		zap.String("action", action),
		zap.String("lesson_id", lesson.ID),
		zap.String("classroom_id", lesson.ClassroomID),
	)
}

func mergeLesson(existing models.Lesson, req UpdateLessonRequest) models.Lesson {
	merged := existing
	if req.ClassroomID != nil {
		merged.ClassroomID = *req.ClassroomID
	}
	if req.TeacherID != nil {
		merged.TeacherID = *req.TeacherID
	}
	if req.SchoolClassID != nil {
		merged.SchoolClassID = *req.SchoolClassID
	}
	if req.SubjectID != nil {
		merged.SubjectID = *req.SubjectID
	}
	if req.StartTime != nil {
		merged.Start = req.StartTime.UTC()
	}
	if req.EndTime != nil {
		merged.End = req.EndTime.UTC()
	}
	if req.Topic != nil {
		merged.Topic = req.Topic
	}
	return merged
}

// lockClassrooms row-locks each distinct non-empty classroom id in ascending order so
// concurrent moves between two rooms cannot deadlock. Missing rooms are skipped and
// reported later by the referential integrity check.
func lockClassrooms(ctx context.Context, locker classroomLocker, ids ...string) (map[string]*models.Classroom, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	sort.Strings(unique)

	locked := make(map[string]*models.Classroom, len(unique))
	for _, id := range unique {
		classroom, err := locker.LockByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, internalError(err, "failed to lock classroom")
		}
		locked[id] = classroom
	}
	return locked, nil
}

// bookingWriteError maps the storage exclusion constraint back to CLASSROOM_NOT_AVAILABLE.
func bookingWriteError(err error, classroomID, message string) error {
	if errors.Is(err, repository.ErrBookingOverlap) {
		return classroomNotAvailable(classroomID, nil)
	}
	return internalError(err, message)
}
