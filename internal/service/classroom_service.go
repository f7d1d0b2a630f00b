package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/internal/repository"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type classroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	LockByID(ctx context.Context, id string) (*models.Classroom, error)
	Create(ctx context.Context, classroom *models.Classroom) error
	Update(ctx context.Context, classroom *models.Classroom) error
	Delete(ctx context.Context, id string) error
}

// ClassroomRequest is the payload for creating or replacing a classroom.
type ClassroomRequest struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Building *string `json:"building" validate:"omitempty,max=100"`
	Capacity int     `json:"capacity"`
}

// ClassroomService manages classrooms and answers per-room availability queries.
type ClassroomService struct {
	repo         classroomRepository
	availability *AvailabilityService
	tx           transactor
	cache        *CacheService
	audit        *AuditService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewClassroomService constructs ClassroomService.
func NewClassroomService(repo classroomRepository, availability *AvailabilityService, tx transactor, cache *CacheService, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if tx == nil {
		tx = inlineTransactor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{
		repo:         repo,
		availability: availability,
		tx:           tx,
		cache:        cache,
		audit:        audit,
		validator:    defaultValidator(validate),
		logger:       logger,
	}
}

// List returns classrooms with pagination metadata.
func (s *ClassroomService) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, *models.Pagination, error) {
	classrooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list classrooms")
	}
	return classrooms, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a classroom by id.
func (s *ClassroomService) Get(ctx context.Context, id string) (*models.Classroom, error) {
	classroom, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "classroom", id)
	}
	return classroom, nil
}

// Create stores a classroom with a positive capacity.
func (s *ClassroomService) Create(ctx context.Context, req ClassroomRequest) (*models.Classroom, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	classroom := &models.Classroom{Name: req.Name, Building: req.Building, Capacity: req.Capacity}
	if err := s.repo.Create(ctx, classroom); err != nil {
		return nil, internalError(err, "failed to create classroom")
	}
	s.cache.InvalidateAvailability(ctx)
	s.audit.Record(ctx, models.AuditActionCreate, "classroom", classroom.ID, classroom)
	return classroom, nil
}

// Update replaces the classroom attributes.
func (s *ClassroomService) Update(ctx context.Context, id string, req ClassroomRequest) (*models.Classroom, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	var classroom *models.Classroom
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.LockByID(ctx, id)
		if err != nil {
			return lookupError(err, "classroom", id)
		}
		existing.Name = req.Name
		existing.Building = req.Building
		existing.Capacity = req.Capacity
		if err := s.repo.Update(ctx, existing); err != nil {
			return internalError(err, "failed to update classroom")
		}
		classroom = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateAvailability(ctx)
	s.audit.Record(ctx, models.AuditActionUpdate, "classroom", id, classroom)
	return classroom, nil
}

// Delete removes a classroom that has no lessons or exams booked.
func (s *ClassroomService) Delete(ctx context.Context, id string) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockByID(ctx, id); err != nil {
			return lookupError(err, "classroom", id)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrStillReferenced) {
				return appErrors.Clone(appErrors.ErrConflict, "classroom still has bookings").WithDetail("classroom_id", id)
			}
			return internalError(err, "failed to delete classroom")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.InvalidateAvailability(ctx)
	s.audit.Record(ctx, models.AuditActionDelete, "classroom", id, nil)
	return nil
}

// Availability reports whether an existing classroom is free for slot, listing any conflicts.
func (s *ClassroomService) Availability(ctx context.Context, id string, slot models.TimeSlot) (*models.AvailabilityReport, error) {
	if err := slot.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, lookupError(err, "classroom", id)
	}
	conflicts, err := s.availability.FindConflicts(ctx, id, slot, models.BookingRef{})
	if err != nil {
		return nil, err
	}
	if conflicts == nil {
		conflicts = []models.BookingConflict{}
	}
	return &models.AvailabilityReport{ClassroomID: id, Slot: slot, Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

func (s *ClassroomService) validate(req ClassroomRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid classroom payload")
	}
	if req.Capacity <= 0 {
		return appErrors.Clone(appErrors.ErrInvalidCapacityRequirement, "").WithDetail("required", req.Capacity)
	}
	return nil
}
