package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/internal/repository"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

func TestRegistrationCreate(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("student-1", models.RoleStudent)
	env.addClass("class-1", 30, "teacher-1")

	registration, err := env.registrations.Create(context.Background(), CreateRegistrationRequest{StudentID: "student-1", SchoolClassID: "class-1"})
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusActive, registration.Status)
	assert.False(t, registration.RegisteredAt.IsZero())
	assert.Equal(t, []string{"class-1"}, env.store.classLocks)
	assert.Equal(t, 1, env.tx.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.registrations.WithLabelValues("created")))
}

// Scenario C.
func TestRegistrationRejectedWhenClassFull(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("student-a", models.RoleStudent)
	env.addUser("student-b", models.RoleStudent)
	env.addClass("class-c", 1, "teacher-1")
	env.addRegistration("reg-a", "student-a", "class-c", models.RegistrationStatusActive)

	_, err := env.registrations.Create(context.Background(), CreateRegistrationRequest{StudentID: "student-b", SchoolClassID: "class-c"})
	require.ErrorIs(t, err, appErrors.ErrSchoolClassFull)
	assert.Len(t, env.store.registrations, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.registrations.WithLabelValues("SCHOOL_CLASS_FULL")))
}

func TestRegistrationInactiveRowsDoNotTakeSeats(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("student-b", models.RoleStudent)
	env.addClass("class-c", 1, "teacher-1")
	env.addRegistration("reg-a", "student-a", "class-c", models.RegistrationStatusWithdrawn)

	_, err := env.registrations.Create(context.Background(), CreateRegistrationRequest{StudentID: "student-b", SchoolClassID: "class-c"})
	assert.NoError(t, err)
}

func TestRegistrationDuplicateActive(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("student-1", models.RoleStudent)
	env.addClass("class-1", 30, "teacher-1")
	env.addRegistration("reg-1", "student-1", "class-1", models.RegistrationStatusActive)

	_, err := env.registrations.Create(context.Background(), CreateRegistrationRequest{StudentID: "student-1", SchoolClassID: "class-1"})
	require.ErrorIs(t, err, appErrors.ErrDuplicateRegistration)
	assert.Equal(t, "student-1", appErrors.FromError(err).Details["student_id"])
}

func TestRegistrationAfterWithdrawalIsAllowed(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("student-1", models.RoleStudent)
	env.addClass("class-1", 30, "teacher-1")
	env.addRegistration("reg-1", "student-1", "class-1", models.RegistrationStatusWithdrawn)

	_, err := env.registrations.Create(context.Background(), CreateRegistrationRequest{StudentID: "student-1", SchoolClassID: "class-1"})
	assert.NoError(t, err)
}

type racingRegistrations struct{ fakeRegistrations }

func (racingRegistrations) Create(ctx context.Context, registration *models.Registration) error {
	return fmt.Errorf("insert registration: %w", repository.ErrDuplicateActiveRegistration)
}

func TestRegistrationMapsUniqueIndexViolation(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("student-1", models.RoleStudent)
	env.addClass("class-1", 30, "teacher-1")
	env.registrations.repo = racingRegistrations{fakeRegistrations{env.store}}

	_, err := env.registrations.Create(context.Background(), CreateRegistrationRequest{StudentID: "student-1", SchoolClassID: "class-1"})
	assert.ErrorIs(t, err, appErrors.ErrDuplicateRegistration)
}

func TestRegistrationRejectsIneligibleUsers(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("teacher-1", models.RoleTeacher)
	env.store.users["alumni"] = models.User{ID: "alumni", Role: models.RoleStudent, Active: false}
	env.addClass("class-1", 30, "teacher-1")

	for _, id := range []string{"teacher-1", "alumni", "ghost"} {
		_, err := env.registrations.Create(context.Background(), CreateRegistrationRequest{StudentID: id, SchoolClassID: "class-1"})
		require.ErrorIs(t, err, appErrors.ErrInvalidStudent, id)
		assert.Equal(t, id, appErrors.FromError(err).Details["student_id"])
	}
	assert.Empty(t, env.store.registrations)
}

func TestRegistrationUnknownClass(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("student-1", models.RoleStudent)

	_, err := env.registrations.Create(context.Background(), CreateRegistrationRequest{StudentID: "student-1", SchoolClassID: "ghost"})
	require.ErrorIs(t, err, appErrors.ErrEntityNotFound)
	assert.Equal(t, "school_class", appErrors.FromError(err).Details["kind"])
}

func TestRegistrationValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registrations.Create(context.Background(), CreateRegistrationRequest{StudentID: "student-1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = env.registrations.UpdateStatus(context.Background(), "reg-1", UpdateRegistrationStatusRequest{Status: "EXPELLED"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRegistrationStatusChangeSkipsCapacity(t *testing.T) {
	env := newTestEnv(t)
	env.addClass("class-1", 1, "teacher-1")
	env.addRegistration("reg-a", "student-a", "class-1", models.RegistrationStatusActive)
	env.addRegistration("reg-b", "student-b", "class-1", models.RegistrationStatusSuspended)

	registration, err := env.registrations.UpdateStatus(context.Background(), "reg-b", UpdateRegistrationStatusRequest{Status: models.RegistrationStatusActive})
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusActive, registration.Status)

	count, err := fakeRegistrations{env.store}.CountActiveByClass(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	seats, err := env.classes.AvailableSeats(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, 0, seats)
}

func TestRegistrationReactivationRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.addClass("class-1", 30, "teacher-1")
	env.addRegistration("reg-new", "student-1", "class-1", models.RegistrationStatusActive)
	env.addRegistration("reg-old", "student-1", "class-1", models.RegistrationStatusWithdrawn)

	_, err := env.registrations.UpdateStatus(context.Background(), "reg-old", UpdateRegistrationStatusRequest{Status: models.RegistrationStatusActive})
	assert.ErrorIs(t, err, appErrors.ErrDuplicateRegistration)
	assert.Equal(t, models.RegistrationStatusWithdrawn, env.store.registrations["reg-old"].Status)
}

func TestRegistrationSameStatusIsNoop(t *testing.T) {
	env := newTestEnv(t)
	env.addClass("class-1", 30, "teacher-1")
	env.addRegistration("reg-1", "student-1", "class-1", models.RegistrationStatusActive)

	registration, err := env.registrations.UpdateStatus(context.Background(), "reg-1", UpdateRegistrationStatusRequest{Status: models.RegistrationStatusActive})
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusActive, registration.Status)
	assert.Empty(t, env.store.classLocks)
}

func TestRegistrationWithdrawFreesSeat(t *testing.T) {
	env := newTestEnv(t)
	env.addClass("class-1", 1, "teacher-1")
	env.addRegistration("reg-1", "student-1", "class-1", models.RegistrationStatusActive)

	_, err := env.registrations.UpdateStatus(context.Background(), "reg-1", UpdateRegistrationStatusRequest{Status: models.RegistrationStatusWithdrawn})
	require.NoError(t, err)

	full, err := env.classes.IsFull(context.Background(), "class-1")
	require.NoError(t, err)
	assert.False(t, full)
}

func TestRegistrationDelete(t *testing.T) {
	env := newTestEnv(t)
	env.addRegistration("reg-1", "student-1", "class-1", models.RegistrationStatusActive)

	require.NoError(t, env.registrations.Delete(context.Background(), "reg-1"))
	assert.Empty(t, env.store.registrations)
	assert.ErrorIs(t, env.registrations.Delete(context.Background(), "reg-1"), appErrors.ErrEntityNotFound)
}

func TestRegistrationValidationDetailsNameFields(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registrations.Create(context.Background(), CreateRegistrationRequest{SchoolClassID: "class-1"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, "student_id is a required field", appErrors.FromError(err).Details["student_id"])
}
