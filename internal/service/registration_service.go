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

type registrationRepository interface {
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error)
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	ExistsActive(ctx context.Context, studentID, classID, excludeID string) (bool, error)
	Create(ctx context.Context, registration *models.Registration) error
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error
	Delete(ctx context.Context, id string) error
}

type schoolClassLocker interface {
	LockByID(ctx context.Context, id string) (*models.SchoolClass, error)
}

type seatGate interface {
	EnsureNotFull(ctx context.Context, id string) error
}

// CreateRegistrationRequest enrolls a student into a school class.
type CreateRegistrationRequest struct {
	StudentID     string  `json:"student_id" validate:"required"`
	SchoolClassID string  `json:"school_class_id" validate:"required"`
	Notes         *string `json:"notes" validate:"omitempty,max=500"`
}

// UpdateRegistrationStatusRequest moves a registration to another status.
type UpdateRegistrationStatusRequest struct {
	Status models.RegistrationStatus `json:"status" validate:"required,oneof=ACTIVE COMPLETED WITHDRAWN SUSPENDED"`
}

// RegistrationService owns the registration lifecycle.
type RegistrationService struct {
	repo      registrationRepository
	classes   schoolClassLocker
	seats     seatGate
	users     userReader
	tx        transactor
	cache     *CacheService
	audit     *AuditService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs RegistrationService. tx may be nil to run without a database transaction.
func NewRegistrationService(repo registrationRepository, classes schoolClassLocker, seats seatGate, users userReader, tx transactor, cache *CacheService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if tx == nil {
		tx = inlineTransactor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		repo:      repo,
		classes:   classes,
		seats:     seats,
		users:     users,
		tx:        tx,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		validator: defaultValidator(validate),
		logger:    logger,
	}
}

// List returns registrations with pagination metadata.
func (s *RegistrationService) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error) {
	registrations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list registrations")
	}
	return registrations, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a registration by id.
func (s *RegistrationService) Get(ctx context.Context, id string) (*models.Registration, error) {
	registration, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "registration", id)
	}
	return registration, nil
}

// Create registers a student as ACTIVE. The class row stays locked from the seat check to the insert.
func (s *RegistrationService) Create(ctx context.Context, req CreateRegistrationRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid registration payload")
	}

	registration := &models.Registration{
		StudentID:     req.StudentID,
		SchoolClassID: req.SchoolClassID,
		Status:        models.RegistrationStatusActive,
		RegisteredAt:  time.Now().UTC(),
		Notes:         req.Notes,
	}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.ensureStudent(ctx, req.StudentID); err != nil {
			return err
		}
		if _, err := s.classes.LockByID(ctx, req.SchoolClassID); err != nil {
			return lookupError(err, "school_class", req.SchoolClassID)
		}
		if err := s.seats.EnsureNotFull(ctx, req.SchoolClassID); err != nil {
			return err
		}
		if err := s.ensureNoActive(ctx, req.StudentID, req.SchoolClassID, ""); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, registration); err != nil {
			return registrationWriteError(err, req.StudentID, req.SchoolClassID, "failed to create registration")
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordRegistration(appErrors.FromError(err).Code)
		return nil, err
	}

	s.metrics.RecordRegistration("created")
	s.cache.Invalidate(ctx, seatSummaryKey(registration.SchoolClassID))
	s.audit.Record(ctx, models.AuditActionCreate, "registration", registration.ID, registration)
	return registration, nil
}

// UpdateStatus moves a registration to any known status without re-checking capacity.
// Reactivation only re-checks that the student holds no other ACTIVE registration in the class.
func (s *RegistrationService) UpdateStatus(ctx context.Context, id string, req UpdateRegistrationStatusRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid registration status")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown registration status").WithDetail("status", req.Status)
	}

	var registration *models.Registration
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "registration", id)
		}
		if existing.Status == req.Status {
			registration = existing
			return nil
		}
		if req.Status == models.RegistrationStatusActive {
			if _, err := s.classes.LockByID(ctx, existing.SchoolClassID); err != nil {
				return lookupError(err, "school_class", existing.SchoolClassID)
			}
			if err := s.ensureNoActive(ctx, existing.StudentID, existing.SchoolClassID, id); err != nil {
				return err
			}
		}
		if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
			return registrationWriteError(err, existing.StudentID, existing.SchoolClassID, "failed to update registration status")
		}
		existing.Status = req.Status
		existing.UpdatedAt = time.Now().UTC()
		registration = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, seatSummaryKey(registration.SchoolClassID))
	s.audit.Record(ctx, models.AuditActionStatusChange, "registration", id, map[string]interface{}{"status": req.Status})
	return registration, nil
}

// Delete removes a registration unconditionally.
func (s *RegistrationService) Delete(ctx context.Context, id string) error {
	var classID string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "registration", id)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return internalError(err, "failed to delete registration")
		}
		classID = existing.SchoolClassID
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, seatSummaryKey(classID))
	s.audit.Record(ctx, models.AuditActionDelete, "registration", id, nil)
	return nil
}

func (s *RegistrationService) ensureStudent(ctx context.Context, studentID string) error {
	user, err := s.users.FindByID(ctx, studentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return internalError(err, "failed to load student")
	}
	if err != nil || !user.IsStudent() {
		return appErrors.Clone(appErrors.ErrInvalidStudent, "").WithDetail("student_id", studentID)
	}
	return nil
}

func (s *RegistrationService) ensureNoActive(ctx context.Context, studentID, classID, excludeID string) error {
	exists, err := s.repo.ExistsActive(ctx, studentID, classID, excludeID)
	if err != nil {
		return internalError(err, "failed to check active registration")
	}
	if exists {
		return duplicateRegistration(studentID, classID)
	}
	return nil
}

func duplicateRegistration(studentID, classID string) error {
	return appErrors.Clone(appErrors.ErrDuplicateRegistration, "").
		WithDetail("student_id", studentID).
		WithDetail("school_class_id", classID)
}

// registrationWriteError maps the partial unique index back to DUPLICATE_REGISTRATION.
func registrationWriteError(err error, studentID, classID, message string) error {
	if errors.Is(err, repository.ErrDuplicateActiveRegistration) {
		return duplicateRegistration(studentID, classID)
	}
	return internalError(err, message)
}
