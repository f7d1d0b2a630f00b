package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/internal/repository"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

// Scenario A.
func TestLessonCreateWithSufficientCapacity(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchool()

	ok, err := env.capacity.HasSufficientCapacity(context.Background(), "room-1", 25)
	require.NoError(t, err)
	require.True(t, ok)

	lesson, err := env.lessons.Create(context.Background(), lessonRequest("room-1", 10, 12))
	require.NoError(t, err)
	assert.NotEmpty(t, lesson.ID)
	assert.Contains(t, env.store.lessons, lesson.ID)
	assert.Equal(t, []string{"room-1"}, env.store.classroomLocks)
	assert.Equal(t, 1, env.tx.calls)
}

// Scenario B.
func TestLessonCreateOverlapAndAdjacency(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchool()

	_, err := env.lessons.Create(context.Background(), lessonRequest("room-1", 10, 12))
	require.NoError(t, err)

	_, err = env.lessons.Create(context.Background(), lessonRequest("room-1", 11, 13))
	assert.ErrorIs(t, err, appErrors.ErrClassroomNotAvailable)

	_, err = env.lessons.Create(context.Background(), lessonRequest("room-1", 12, 13))
	assert.NoError(t, err)
	assert.Len(t, env.store.lessons, 2)
}

func TestLessonCreateRejectsOverlapWithExam(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchool()
	env.addExam("exam-1", "room-1", slot(9, 11))

	_, err := env.lessons.Create(context.Background(), lessonRequest("room-1", 10, 12))
	assert.ErrorIs(t, err, appErrors.ErrClassroomNotAvailable)
	assert.Empty(t, env.store.lessons)
}

func TestLessonCreateValidationError(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.lessons.Create(context.Background(), CreateLessonRequest{ClassroomID: "room-1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, 0, env.tx.calls)
}

func TestLessonCreateMapsStorageOverlap(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchool()
	env.lessons.repo = overlappingLessons{fakeLessons{env.store}}

	_, err := env.lessons.Create(context.Background(), lessonRequest("room-1", 10, 12))
	assert.ErrorIs(t, err, appErrors.ErrClassroomNotAvailable)
}

type overlappingLessons struct{ fakeLessons }

func (o overlappingLessons) Create(ctx context.Context, lesson *models.Lesson) error {
	return fmt.Errorf("create lesson: %w", repository.ErrBookingOverlap)
}

func TestLessonUpdateDoesNotConflictWithItself(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchool()
	created, err := env.lessons.Create(context.Background(), lessonRequest("room-1", 10, 12))
	require.NoError(t, err)

	end := at(13, 0)
	updated, err := env.lessons.Update(context.Background(), created.ID, UpdateLessonRequest{EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, at(10, 0), updated.Start)
	assert.Equal(t, end, updated.End)
	assert.Equal(t, end, env.store.lessons[created.ID].End)
}

func TestLessonUpdateRevalidatesMergedState(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchool()
	created, err := env.lessons.Create(context.Background(), lessonRequest("room-1", 10, 12))
	require.NoError(t, err)

	earlyEnd := at(9, 0)
	_, err = env.lessons.Update(context.Background(), created.ID, UpdateLessonRequest{EndTime: &earlyEnd})
	assert.ErrorIs(t, err, appErrors.ErrInvalidTimeRange)

	env.addUser("student-1", models.RoleStudent)
	student := "student-1"
	_, err = env.lessons.Update(context.Background(), created.ID, UpdateLessonRequest{TeacherID: &student})
	assert.ErrorIs(t, err, appErrors.ErrInvalidTeacher)

	assert.Equal(t, at(12, 0), env.store.lessons[created.ID].End)
	assert.Equal(t, "teacher-1", env.store.lessons[created.ID].TeacherID)
}

func TestLessonUpdateMovingRoomsLocksBothInOrder(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchool()
	env.addClassroom("room-0", 40)
	env.addLesson("lesson-1", "room-1", slot(10, 12))
	env.addLesson("lesson-other", "room-0", slot(13, 14))

	target := "room-0"
	updated, err := env.lessons.Update(context.Background(), "lesson-1", UpdateLessonRequest{ClassroomID: &target})
	require.NoError(t, err)
	assert.Equal(t, "room-0", updated.ClassroomID)
	assert.Equal(t, []string{"room-0", "room-1"}, env.store.classroomLocks)
}

func TestLessonUpdateIntoBusyRoomFails(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchool()
	env.addClassroom("room-2", 40)
	env.addLesson("lesson-1", "room-1", slot(10, 12))
	env.addLesson("lesson-2", "room-2", slot(11, 12))

	target := "room-2"
	_, err := env.lessons.Update(context.Background(), "lesson-1", UpdateLessonRequest{ClassroomID: &target})
	assert.ErrorIs(t, err, appErrors.ErrClassroomNotAvailable)
}

func TestLessonUpdateAndDeleteMissing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.lessons.Update(context.Background(), "ghost", UpdateLessonRequest{})
	assert.ErrorIs(t, err, appErrors.ErrEntityNotFound)
	assert.ErrorIs(t, env.lessons.Delete(context.Background(), "ghost"), appErrors.ErrEntityNotFound)
	_, err = env.lessons.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrEntityNotFound)
}

func TestLessonDeleteFreesSlot(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchool()
	created, err := env.lessons.Create(context.Background(), lessonRequest("room-1", 10, 12))
	require.NoError(t, err)

	require.NoError(t, env.lessons.Delete(context.Background(), created.ID))
	_, err = env.lessons.Create(context.Background(), lessonRequest("room-1", 10, 12))
	assert.NoError(t, err)
}

func TestLessonListPagination(t *testing.T) {
	env := newTestEnv(t)
	env.addLesson("lesson-1", "room-1", slot(8, 9))
	env.addLesson("lesson-2", "room-1", slot(9, 10))

	lessons, pagination, err := env.lessons.List(context.Background(), models.LessonFilter{ClassroomID: "room-1", Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, lessons, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 2, pagination.TotalCount)
}

// No two bookings in the same room ever overlap, whatever order requests arrive in.
func TestNoDoubleBookingProperty(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchool()

	requests := [][2]int{{8, 10}, {9, 11}, {10, 12}, {11, 12}, {7, 9}, {12, 14}, {13, 15}, {6, 8}, {8, 9}, {14, 16}}
	for _, r := range requests {
		_, _ = env.lessons.Create(context.Background(), lessonRequest("room-1", r[0], r[1]))
	}
	examStart, examEnd := at(15, 0), at(17, 0)
	_, _ = env.exams.Create(context.Background(), CreateExamRequest{
		Title: "quiz", ClassroomID: "room-1", TeacherID: "teacher-1", SchoolClassID: "class-1", SubjectID: "subject-1",
		StartTime: examStart, EndTime: examEnd, DurationMinutes: 60, MaxScore: 100, PassingScore: 50,
	})

	var bookings []models.Booking
	for _, lesson := range env.store.lessons {
		bookings = append(bookings, lesson.Booking())
	}
	for _, exam := range env.store.exams {
		bookings = append(bookings, exam.Booking())
	}
	require.NotEmpty(t, bookings)
	for i := range bookings {
		for j := i + 1; j < len(bookings); j++ {
			assert.False(t, models.Overlaps(bookings[i].TimeSlot, bookings[j].TimeSlot), "%s overlaps %s", bookings[i].ID, bookings[j].ID)
		}
	}
}
