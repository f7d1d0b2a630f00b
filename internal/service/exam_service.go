package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type examRepository interface {
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id string) error
}

// CreateExamRequest is the payload for scheduling an exam.
type CreateExamRequest struct {
	Title           string    `json:"title" validate:"required,max=255"`
	ClassroomID     string    `json:"classroom_id" validate:"required"`
	TeacherID       string    `json:"teacher_id" validate:"required"`
	SchoolClassID   string    `json:"school_class_id" validate:"required"`
	SubjectID       string    `json:"subject_id" validate:"required"`
	StartTime       time.Time `json:"start_time" validate:"required"`
	EndTime         time.Time `json:"end_time" validate:"required"`
	DurationMinutes int       `json:"duration_minutes"`
	MaxScore        float64   `json:"max_score"`
	PassingScore    float64   `json:"passing_score"`
	CourseIDs       []string  `json:"course_ids" validate:"omitempty,dive,required"`
}

// UpdateExamRequest carries partial changes. Nil fields keep their stored value.
type UpdateExamRequest struct {
	Title           *string    `json:"title" validate:"omitempty,min=1,max=255"`
	ClassroomID     *string    `json:"classroom_id" validate:"omitempty,min=1"`
	TeacherID       *string    `json:"teacher_id" validate:"omitempty,min=1"`
	SchoolClassID   *string    `json:"school_class_id" validate:"omitempty,min=1"`
	SubjectID       *string    `json:"subject_id" validate:"omitempty,min=1"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationMinutes *int       `json:"duration_minutes"`
	MaxScore        *float64   `json:"max_score"`
	PassingScore    *float64   `json:"passing_score"`
	CourseIDs       *[]string  `json:"course_ids"`
}

// ExamService schedules exams on the shared classroom timeline.
type ExamService struct {
	repo       examRepository
	courses    courseReader
	classrooms classroomLocker
	pipeline   *SchedulingPipeline
	tx         transactor
	cache      *CacheService
	audit      *AuditService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewExamService constructs ExamService. tx may be nil to run without a database transaction.
func NewExamService(repo examRepository, courses courseReader, classrooms classroomLocker, pipeline *SchedulingPipeline, tx transactor, cache *CacheService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if tx == nil {
		tx = inlineTransactor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{
		repo:       repo,
		courses:    courses,
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

// List returns exams with pagination metadata.
func (s *ExamService) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, *models.Pagination, error) {
	exams, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list exams")
	}
	return exams, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns an exam by id.
func (s *ExamService) Get(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "exam", id)
	}
	return exam, nil
}

// Create validates and stores a new exam.
func (s *ExamService) Create(ctx context.Context, req CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid exam payload")
	}
	exam := &models.Exam{
		Title:           req.Title,
		ClassroomID:     req.ClassroomID,
		TeacherID:       req.TeacherID,
		SchoolClassID:   req.SchoolClassID,
		SubjectID:       req.SubjectID,
		TimeSlot:        models.TimeSlot{Start: req.StartTime.UTC(), End: req.EndTime.UTC()},
		DurationMinutes: req.DurationMinutes,
		MaxScore:        req.MaxScore,
		PassingScore:    req.PassingScore,
		CourseIDs:       dedupe(req.CourseIDs),
	}
	if err := validateExamFields(exam); err != nil {
		return nil, err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.validateSchedule(ctx, exam, ""); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, exam); err != nil {
			return bookingWriteError(err, exam.ClassroomID, "failed to create exam")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, models.AuditActionCreate, exam)
	return exam, nil
}

// Update merges the partial request into the stored exam and revalidates the result.
func (s *ExamService) Update(ctx context.Context, id string, req UpdateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid exam payload")
	}

	var exam *models.Exam
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "exam", id)
		}
		merged := mergeExam(*existing, req)
		if err := validateExamFields(&merged); err != nil {
			return err
		}
		if err := s.validateSchedule(ctx, &merged, existing.ClassroomID); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, &merged); err != nil {
			return bookingWriteError(err, merged.ClassroomID, "failed to update exam")
		}
		exam = &merged
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, models.AuditActionUpdate, exam)
	return exam, nil
}

// Delete removes an exam and its course links.
func (s *ExamService) Delete(ctx context.Context, id string) error {
	var exam *models.Exam
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "exam", id)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return internalError(err, "failed to delete exam")
		}
		exam = existing
		return nil
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx, models.AuditActionDelete, exam)
	return nil
}

// validateSchedule locks the classrooms, runs the shared pipeline, then checks course links.
func (s *ExamService) validateSchedule(ctx context.Context, exam *models.Exam, previousClassroomID string) error {
	locked, err := lockClassrooms(ctx, s.classrooms, exam.ClassroomID, previousClassroomID)
	if err != nil {
		return err
	}
	candidate := &BookingCandidate{
		ClassroomID:   exam.ClassroomID,
		TeacherID:     exam.TeacherID,
		SchoolClassID: exam.SchoolClassID,
		SubjectID:     exam.SubjectID,
		Slot:          exam.TimeSlot,
		Classroom:     locked[exam.ClassroomID],
	}
	if exam.ID != "" {
		candidate.Self = models.BookingRef{Kind: models.BookingKindExam, ID: exam.ID}
	}
	if err := s.pipeline.Validate(ctx, candidate); err != nil {
		return err
	}
	for _, courseID := range exam.CourseIDs {
		if _, err := s.courses.FindByID(ctx, courseID); err != nil {
			return lookupError(err, "course", courseID)
		}
	}
	return nil
}

func (s *ExamService) afterWrite(ctx context.Context, action string, exam *models.Exam) {
	s.cache.InvalidateAvailability(ctx)
	s.metrics.RecordBooking(string(models.BookingKindExam), action)
	s.audit.Record(ctx, action, "exam", exam.ID, exam)
	s.logger.Info("exam written",
		zap.String("action", action),
		zap.String("exam_id", exam.ID),
		zap.String("classroom_id", exam.ClassroomID),
	)
}

// validateExamFields checks the constraints specific to exams.
func validateExamFields(exam *models.Exam) error {
	if exam.DurationMinutes <= 0 {
		return appErrors.Clone(appErrors.ErrInvalidDuration, "").WithDetail("duration_minutes", exam.DurationMinutes)
	}
	if exam.PassingScore <= 0 || exam.PassingScore > exam.MaxScore {
		return appErrors.Clone(appErrors.ErrInvalidExamScore, "").
			WithDetail("passing_score", exam.PassingScore).
			WithDetail("max_score", exam.MaxScore)
	}
	return nil
}

func mergeExam(existing models.Exam, req UpdateExamRequest) models.Exam {
	merged := existing
	if req.Title != nil {
		merged.Title = *req.Title
	}
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
	if req.DurationMinutes != nil {
		merged.DurationMinutes = *req.DurationMinutes
	}
	if req.MaxScore != nil {
		merged.MaxScore = *req.MaxScore
	}
	if req.PassingScore != nil {
		merged.PassingScore = *req.PassingScore
	}
	if req.CourseIDs != nil {
		merged.CourseIDs = dedupe(*req.CourseIDs)
	}
	return merged
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
