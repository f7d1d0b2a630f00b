package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/internal/repository"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type schoolClassRepository interface {
	List(ctx context.Context, filter models.SchoolClassFilter) ([]models.SchoolClass, int, error)
	FindByID(ctx context.Context, id string) (*models.SchoolClass, error)
	LockByID(ctx context.Context, id string) (*models.SchoolClass, error)
	Create(ctx context.Context, class *models.SchoolClass) error
	Update(ctx context.Context, class *models.SchoolClass) error
	Delete(ctx context.Context, id string) error
	AddTeacher(ctx context.Context, classID, teacherID string) error
	RemoveTeacher(ctx context.Context, classID, teacherID string) (bool, error)
}

// CreateSchoolClassRequest is the payload for creating a school class.
type CreateSchoolClassRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	MaxStudents int      `json:"max_students"`
	TeacherIDs  []string `json:"teacher_ids" validate:"required,min=1,dive,required"`
}

// UpdateSchoolClassRequest changes the name and/or seat ceiling.
type UpdateSchoolClassRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	MaxStudents *int    `json:"max_students"`
}

// AddTeacherRequest assigns a teacher to a school class.
type AddTeacherRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
}

// SchoolClassService manages school classes, their teacher teams and seat capacity.
type SchoolClassService struct {
	repo      schoolClassRepository
	roster    rosterCounter
	users     userReader
	tx        transactor
	cache     *CacheService
	cacheTTL  time.Duration
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolClassService constructs SchoolClassService. tx may be nil to run without a database transaction.
func NewSchoolClassService(repo schoolClassRepository, roster rosterCounter, users userReader, tx transactor, cache *CacheService, cacheTTL time.Duration, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *SchoolClassService {
	if tx == nil {
		tx = inlineTransactor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolClassService{
		repo:      repo,
		roster:    roster,
		users:     users,
		tx:        tx,
		cache:     cache,
		cacheTTL:  cacheTTL,
		audit:     audit,
		validator: defaultValidator(validate),
		logger:    logger,
	}
}

// List returns school classes with pagination metadata.
func (s *SchoolClassService) List(ctx context.Context, filter models.SchoolClassFilter) ([]models.SchoolClass, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list school classes")
	}
	return classes, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a school class by id.
func (s *SchoolClassService) Get(ctx context.Context, id string) (*models.SchoolClass, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "school_class", id)
	}
	return class, nil
}

// Create stores a school class with at least one qualified teacher.
func (s *SchoolClassService) Create(ctx context.Context, req CreateSchoolClassRequest) (*models.SchoolClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid school class payload")
	}
	if req.MaxStudents <= 0 {
		return nil, invalidMaxStudents(req.MaxStudents, 0)
	}
	teacherIDs := dedupe(req.TeacherIDs)
	for _, teacherID := range teacherIDs {
		if err := s.ensureTeacher(ctx, teacherID); err != nil {
			return nil, err
		}
	}

	class := &models.SchoolClass{Name: req.Name, MaxStudents: req.MaxStudents, TeacherIDs: teacherIDs}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, class); err != nil {
			return internalError(err, "failed to create school class")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, models.AuditActionCreate, "school_class", class.ID, class)
	return class, nil
}

// Update changes name and seat ceiling. The ceiling may not drop below the current roster.
func (s *SchoolClassService) Update(ctx context.Context, id string, req UpdateSchoolClassRequest) (*models.SchoolClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid school class payload")
	}

	var class *models.SchoolClass
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.LockByID(ctx, id)
		if err != nil {
			return lookupError(err, "school_class", id)
		}
		if req.Name != nil {
			existing.Name = *req.Name
		}
		if req.MaxStudents != nil {
			if err := s.checkMaxStudents(ctx, id, *req.MaxStudents); err != nil {
				return err
			}
			existing.MaxStudents = *req.MaxStudents
		}
		if err := s.repo.Update(ctx, existing); err != nil {
			return internalError(err, "failed to update school class")
		}
		class = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, seatSummaryKey(id))
	s.audit.Record(ctx, models.AuditActionUpdate, "school_class", id, class)
	return class, nil
}

// UpdateMaxStudents changes only the seat ceiling.
func (s *SchoolClassService) UpdateMaxStudents(ctx context.Context, id string, maxStudents int) (*models.SchoolClass, error) {
	return s.Update(ctx, id, UpdateSchoolClassRequest{MaxStudents: &maxStudents})
}

// Delete removes a school class together with its teacher links and registrations.
// Classes with lessons or exams booked are rejected with CONFLICT.
func (s *SchoolClassService) Delete(ctx context.Context, id string) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockByID(ctx, id); err != nil {
			return lookupError(err, "school_class", id)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrStillReferenced) {
				return appErrors.Clone(appErrors.ErrConflict, "school class still has bookings").WithDetail("school_class_id", id)
			}
			return internalError(err, "failed to delete school class")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, seatSummaryKey(id))
	s.audit.Record(ctx, models.AuditActionDelete, "school_class", id, nil)
	return nil
}

// AvailableSeats returns max(0, maxStudents - active registrations).
func (s *SchoolClassService) AvailableSeats(ctx context.Context, id string) (int, error) {
	summary, err := s.summary(ctx, id)
	if err != nil {
		return 0, err
	}
	return summary.AvailableSeats, nil
}

// IsFull reports whether the class has no available seats.
func (s *SchoolClassService) IsFull(ctx context.Context, id string) (bool, error) {
	summary, err := s.summary(ctx, id)
	if err != nil {
		return false, err
	}
	return summary.IsFull, nil
}

// EnsureNotFull is the enrollment gate: it fails with SCHOOL_CLASS_FULL when no seat is left.
// It always reads the live roster, never the cache.
func (s *SchoolClassService) EnsureNotFull(ctx context.Context, id string) error {
	summary, err := s.summary(ctx, id)
	if err != nil {
		return err
	}
	if summary.IsFull {
		return appErrors.Clone(appErrors.ErrSchoolClassFull, "").
			WithDetail("school_class_id", id).
			WithDetail("max_students", summary.MaxStudents)
	}
	return nil
}

// SeatSummary returns the cached capacity view of a school class.
func (s *SchoolClassService) SeatSummary(ctx context.Context, id string) (*models.SeatSummary, error) {
	key := seatSummaryKey(id)
	var cached models.SeatSummary
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	summary, err := s.summary(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, summary, s.cacheTTL)
	return summary, nil
}

// AddTeacher assigns a teacher-capable user. Assigning an existing teacher is a no-op.
func (s *SchoolClassService) AddTeacher(ctx context.Context, classID string, req AddTeacherRequest) (*models.SchoolClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}

	var class *models.SchoolClass
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.LockByID(ctx, classID)
		if err != nil {
			return lookupError(err, "school_class", classID)
		}
		if err := s.ensureTeacher(ctx, req.TeacherID); err != nil {
			return err
		}
		if !contains(existing.TeacherIDs, req.TeacherID) {
			if err := s.repo.AddTeacher(ctx, classID, req.TeacherID); err != nil {
				return internalError(err, "failed to add teacher")
			}
			existing.TeacherIDs = append(existing.TeacherIDs, req.TeacherID)
		}
		class = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, models.AuditActionTeacherAdd, "school_class", classID, map[string]string{"teacher_id": req.TeacherID})
	return class, nil
}

// RemoveTeacher unassigns a teacher. It fails when no qualified teacher would remain;
// assigned users who lost teacher capability do not count.
func (s *SchoolClassService) RemoveTeacher(ctx context.Context, classID, teacherID string) (*models.SchoolClass, error) {
	var class *models.SchoolClass
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.LockByID(ctx, classID)
		if err != nil {
			return lookupError(err, "school_class", classID)
		}
		if !contains(existing.TeacherIDs, teacherID) {
			return appErrors.NotFound("teacher_assignment", teacherID).WithDetail("school_class_id", classID)
		}
		qualified, err := s.countQualified(ctx, without(existing.TeacherIDs, teacherID))
		if err != nil {
			return err
		}
		if qualified == 0 {
			return appErrors.Clone(appErrors.ErrMinimumTeachersViolation, "").WithDetail("school_class_id", classID)
		}
		removed, err := s.repo.RemoveTeacher(ctx, classID, teacherID)
		if err != nil {
			return internalError(err, "failed to remove teacher")
		}
		if !removed {
			return appErrors.NotFound("teacher_assignment", teacherID).WithDetail("school_class_id", classID)
		}
		existing.TeacherIDs = without(existing.TeacherIDs, teacherID)
		class = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, models.AuditActionTeacherDrop, "school_class", classID, map[string]string{"teacher_id": teacherID})
	return class, nil
}

func (s *SchoolClassService) summary(ctx context.Context, id string) (*models.SeatSummary, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "school_class", id)
	}
	active, err := s.roster.CountActiveByClass(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to count roster")
	}
	summary := models.NewSeatSummary(id, class.MaxStudents, active)
	return &summary, nil
}

func (s *SchoolClassService) checkMaxStudents(ctx context.Context, id string, maxStudents int) error {
	active, err := s.roster.CountActiveByClass(ctx, id)
	if err != nil {
		return internalError(err, "failed to count roster")
	}
	if maxStudents <= 0 || maxStudents < active {
		return invalidMaxStudents(maxStudents, active)
	}
	return nil
}

func (s *SchoolClassService) ensureTeacher(ctx context.Context, teacherID string) error {
	user, err := s.users.FindByID(ctx, teacherID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return internalError(err, "failed to load teacher")
	}
	if err != nil || !user.IsTeacher() {
		return appErrors.Clone(appErrors.ErrInvalidTeacher, "").WithDetail("teacher_id", teacherID)
	}
	return nil
}

func (s *SchoolClassService) countQualified(ctx context.Context, teacherIDs []string) (int, error) {
	qualified := 0
	for _, id := range teacherIDs {
		user, err := s.users.FindByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return 0, internalError(err, "failed to load teacher")
		}
		if user.IsTeacher() {
			qualified++
		}
	}
	return qualified, nil
}

func invalidMaxStudents(maxStudents, roster int) error {
	return appErrors.Clone(appErrors.ErrInvalidMaxStudents, "").
		WithDetail("max_students", maxStudents).
		WithDetail("roster", roster)
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
