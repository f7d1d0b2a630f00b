package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

// Pipeline check names, in execution order.
const (
	CheckTemporalValidity     = "temporal_validity"
	CheckTeacherQualification = "teacher_qualification"
	CheckReferentialIntegrity = "referential_integrity"
	CheckCapacity             = "capacity"
	CheckAvailability         = "availability"
)

// BookingCandidate is the merged lesson or exam state submitted for validation.
type BookingCandidate struct {
	// Self is the booking being updated. Zero on create.
	Self          models.BookingRef
	ClassroomID   string
	TeacherID     string
	SchoolClassID string
	SubjectID     string
	Slot          models.TimeSlot

	// Classroom may be preloaded (e.g. by a row lock) to skip the lookup.
	Classroom   *models.Classroom
	SchoolClass *models.SchoolClass
	Roster      int
}

type schedulingCheck struct {
	name string
	run  func(ctx context.Context, c *BookingCandidate) error
}

// SchedulingPipeline validates a booking candidate with an ordered list of named checks.
// The first failing check aborts the run.
type SchedulingPipeline struct {
	checks       []schedulingCheck
	users        userReader
	classrooms   classroomReader
	classes      schoolClassReader
	subjects     subjectReader
	roster       rosterCounter
	capacity     *CapacityService
	availability *AvailabilityService
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewSchedulingPipeline wires the standard five checks.
func NewSchedulingPipeline(users userReader, classrooms classroomReader, classes schoolClassReader, subjects subjectReader, roster rosterCounter, capacity *CapacityService, availability *AvailabilityService, metrics *MetricsService, logger *zap.Logger) *SchedulingPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &SchedulingPipeline{
		users:        users,
		classrooms:   classrooms,
		classes:      classes,
		subjects:     subjects,
		roster:       roster,
		capacity:     capacity,
		availability: availability,
		metrics:      metrics,
		logger:       logger,
	}
	p.checks = []schedulingCheck{
		{name: CheckTemporalValidity, run: p.checkTemporalValidity},
		{name: CheckTeacherQualification, run: p.checkTeacherQualification},
		{name: CheckReferentialIntegrity, run: p.checkReferentialIntegrity},
		{name: CheckCapacity, run: p.checkCapacity},
		{name: CheckAvailability, run: p.checkAvailability},
	}
	return p
}

// Checks lists the check names in execution order.
func (p *SchedulingPipeline) Checks() []string {
	names := make([]string, len(p.checks))
	for i, check := range p.checks {
		names[i] = check.name
	}
	return names
}

// Validate runs every check against the candidate and returns the first failure.
func (p *SchedulingPipeline) Validate(ctx context.Context, candidate *BookingCandidate) error {
	for _, check := range p.checks {
		err := check.run(ctx, candidate)
		if err == nil {
			continue
		}
		appErr := appErrors.FromError(err)
		if appErr.Code == appErrors.ErrInternal.Code {
			p.logger.Error("scheduling check errored", zap.String("check", check.name), zap.Error(err))
			return err
		}
		p.metrics.RecordValidationFailure(check.name, appErr.Code)
		p.logger.Info("scheduling rejected",
			zap.String("check", check.name),
			zap.String("code", appErr.Code),
			zap.String("classroom_id", candidate.ClassroomID),
			zap.Time("start", candidate.Slot.Start),
			zap.Time("end", candidate.Slot.End),
		)
		return err
	}
	return nil
}

func (p *SchedulingPipeline) checkTemporalValidity(_ context.Context, c *BookingCandidate) error {
	return c.Slot.Validate()
}

func (p *SchedulingPipeline) checkTeacherQualification(ctx context.Context, c *BookingCandidate) error {
	invalid := appErrors.Clone(appErrors.ErrInvalidTeacher, "").WithDetail("teacher_id", c.TeacherID)
	if c.TeacherID == "" {
		return invalid
	}
	user, err := p.users.FindByID(ctx, c.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invalid
		}
		return internalError(err, "failed to load teacher")
	}
	if !user.IsTeacher() {
		return invalid
	}
	return nil
}

func (p *SchedulingPipeline) checkReferentialIntegrity(ctx context.Context, c *BookingCandidate) error {
	if c.Classroom == nil || c.Classroom.ID != c.ClassroomID {
		classroom, err := p.classrooms.FindByID(ctx, c.ClassroomID)
		if err != nil {
			return lookupError(err, "classroom", c.ClassroomID)
		}
		c.Classroom = classroom
	}
	class, err := p.classes.FindByID(ctx, c.SchoolClassID)
	if err != nil {
		return lookupError(err, "school_class", c.SchoolClassID)
	}
	c.SchoolClass = class
	if _, err := p.subjects.FindByID(ctx, c.SubjectID); err != nil {
		return lookupError(err, "subject", c.SubjectID)
	}
	return nil
}

func (p *SchedulingPipeline) checkCapacity(ctx context.Context, c *BookingCandidate) error {
	roster, err := p.roster.CountActiveByClass(ctx, c.SchoolClassID)
	if err != nil {
		return internalError(err, "failed to count roster")
	}
	c.Roster = roster
	return p.capacity.EnsureCapacity(c.Classroom, roster)
}

func (p *SchedulingPipeline) checkAvailability(ctx context.Context, c *BookingCandidate) error {
	conflicts, err := p.availability.FindConflicts(ctx, c.ClassroomID, c.Slot, c.Self)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return classroomNotAvailable(c.ClassroomID, conflicts)
	}
	return nil
}

func classroomNotAvailable(classroomID string, conflicts []models.BookingConflict) error {
	err := appErrors.Clone(appErrors.ErrClassroomNotAvailable, "").WithDetail("classroom_id", classroomID)
	if len(conflicts) > 0 {
		err = err.WithDetail("conflicts", conflicts)
	}
	return err
}
