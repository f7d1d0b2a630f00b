package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type schoolClassReader interface {
	FindByID(ctx context.Context, id string) (*models.SchoolClass, error)
}

// CapacityService compares classroom capacity with headcounts.
type CapacityService struct {
	classrooms classroomReader
	classes    schoolClassReader
	roster     rosterCounter
	logger     *zap.Logger
}

// NewCapacityService constructs CapacityService.
func NewCapacityService(classrooms classroomReader, classes schoolClassReader, roster rosterCounter, logger *zap.Logger) *CapacityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityService{classrooms: classrooms, classes: classes, roster: roster, logger: logger}
}

// HasSufficientCapacity reports whether the classroom holds at least required people.
func (s *CapacityService) HasSufficientCapacity(ctx context.Context, classroomID string, required int) (bool, error) {
	if required <= 0 {
		return false, appErrors.Clone(appErrors.ErrInvalidCapacityRequirement, "").WithDetail("required", required)
	}
	classroom, err := s.classrooms.FindByID(ctx, classroomID)
	if err != nil {
		return false, lookupError(err, "classroom", classroomID)
	}
	return classroom.Capacity >= required, nil
}

// FindWithSufficientCapacityForSchoolClass returns classrooms that fit the current roster
// of the school class. An empty result fails with NO_SUITABLE_CLASSROOM.
func (s *CapacityService) FindWithSufficientCapacityForSchoolClass(ctx context.Context, schoolClassID string) ([]models.Classroom, error) {
	if _, err := s.classes.FindByID(ctx, schoolClassID); err != nil {
		return nil, lookupError(err, "school_class", schoolClassID)
	}
	required, err := s.roster.CountActiveByClass(ctx, schoolClassID)
	if err != nil {
		return nil, internalError(err, "failed to count roster")
	}
	classrooms, err := s.classrooms.ListAll(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list classrooms")
	}

	suitable := make([]models.Classroom, 0, len(classrooms))
	for _, classroom := range classrooms {
		if classroom.Capacity >= required {
			suitable = append(suitable, classroom)
		}
	}
	if len(suitable) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoSuitableClassroom, "").
			WithDetail("school_class_id", schoolClassID).
			WithDetail("required", required)
	}
	return suitable, nil
}

// EnsureCapacity fails with CLASSROOM_CAPACITY_EXCEEDED when the classroom is smaller than required.
func (s *CapacityService) EnsureCapacity(classroom *models.Classroom, required int) error {
	if classroom.Capacity >= required {
		return nil
	}
	return appErrors.Clone(appErrors.ErrClassroomCapacityExceeded, "").
		WithDetail("classroom_id", classroom.ID).
		WithDetail("capacity", classroom.Capacity).
		WithDetail("required", required)
}
