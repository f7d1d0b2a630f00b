package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/internal/service"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type registrationServiceMock struct {
	lastFilter models.RegistrationFilter
	lastCreate *service.CreateRegistrationRequest
	lastStatus *service.UpdateRegistrationStatusRequest
	lastID     string
	err        error
}

func (m *registrationServiceMock) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Registration{}, &models.Pagination{}, m.err
}

func (m *registrationServiceMock) Get(ctx context.Context, id string) (*models.Registration, error) {
	return &models.Registration{ID: id}, m.err
}

func (m *registrationServiceMock) Create(ctx context.Context, req service.CreateRegistrationRequest) (*models.Registration, error) {
	m.lastCreate = &req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Registration{ID: "reg-1", StudentID: req.StudentID, SchoolClassID: req.SchoolClassID, Status: models.RegistrationStatusActive}, nil
}

func (m *registrationServiceMock) UpdateStatus(ctx context.Context, id string, req service.UpdateRegistrationStatusRequest) (*models.Registration, error) {
	m.lastID = id
	m.lastStatus = &req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Registration{ID: id, Status: req.Status}, nil
}

func (m *registrationServiceMock) Delete(ctx context.Context, id string) error {
	m.lastID = id
	return m.err
}

func registrationRouter(svc *registrationServiceMock) *gin.Engine {
	h := NewRegistrationHandler(svc)
	r := gin.New()
	r.GET("/registrations", h.List)
	r.POST("/registrations", h.Create)
	r.PATCH("/registrations/:id/status", h.UpdateStatus)
	r.DELETE("/registrations/:id", h.Delete)
	return r
}

func TestRegistrationHandlerCreate(t *testing.T) {
	svc := &registrationServiceMock{}
	w := perform(registrationRouter(svc), http.MethodPost, "/registrations", `{"student_id":"s-1","school_class_id":"c-1"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var reg models.Registration
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &reg))
	assert.Equal(t, models.RegistrationStatusActive, reg.Status)
	assert.Equal(t, "c-1", svc.lastCreate.SchoolClassID)
}

func TestRegistrationHandlerCreateWhenClassIsFull(t *testing.T) {
	svc := &registrationServiceMock{err: appErrors.ErrSchoolClassFull.WithDetail("max_students", 30)}
	w := perform(registrationRouter(svc), http.MethodPost, "/registrations", `{"student_id":"s-1","school_class_id":"c-1"}`)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	assert.Equal(t, "SCHOOL_CLASS_FULL", env.Error.Code)
	assert.EqualValues(t, 30, env.Error.Details["max_students"])
}

func TestRegistrationHandlerDuplicate(t *testing.T) {
	svc := &registrationServiceMock{err: appErrors.Clone(appErrors.ErrDuplicateRegistration, "")}
	w := perform(registrationRouter(svc), http.MethodPost, "/registrations", `{"student_id":"s-1","school_class_id":"c-1"}`)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_REGISTRATION", decode(t, w).Error.Code)
}

func TestRegistrationHandlerUpdateStatus(t *testing.T) {
	svc := &registrationServiceMock{}
	r := registrationRouter(svc)

	w := perform(r, http.MethodPatch, "/registrations/reg-1/status", `{"status":"PAUSED"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error.Details, "status")
	assert.Nil(t, svc.lastStatus)

	w = perform(r, http.MethodPatch, "/registrations/reg-1/status", `{"status":"WITHDRAWN"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reg-1", svc.lastID)
	assert.Equal(t, models.RegistrationStatusWithdrawn, svc.lastStatus.Status)
}

func TestRegistrationHandlerListByStatus(t *testing.T) {
	svc := &registrationServiceMock{}
	w := perform(registrationRouter(svc), http.MethodGet, "/registrations?status=ACTIVE&school_class_id=c-1", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RegistrationStatusActive, svc.lastFilter.Status)
	assert.Equal(t, "c-1", svc.lastFilter.SchoolClassID)
	assert.Equal(t, 1, svc.lastFilter.Page)
}

type schoolClassServiceMock struct {
	lastFilter    models.SchoolClassFilter
	lastClassID   string
	lastTeacherID string
	lastUpdate    *service.UpdateSchoolClassRequest
	summary       *models.SeatSummary
	err           error
}

func (m *schoolClassServiceMock) List(ctx context.Context, filter models.SchoolClassFilter) ([]models.SchoolClass, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.SchoolClass{}, &models.Pagination{}, m.err
}

func (m *schoolClassServiceMock) Get(ctx context.Context, id string) (*models.SchoolClass, error) {
	return &models.SchoolClass{ID: id}, m.err
}

func (m *schoolClassServiceMock) Create(ctx context.Context, req service.CreateSchoolClassRequest) (*models.SchoolClass, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.SchoolClass{ID: "c-1", Name: req.Name, MaxStudents: req.MaxStudents, TeacherIDs: req.TeacherIDs}, nil
}

func (m *schoolClassServiceMock) Update(ctx context.Context, id string, req service.UpdateSchoolClassRequest) (*models.SchoolClass, error) {
	m.lastClassID = id
	m.lastUpdate = &req
	if m.err != nil {
		return nil, m.err
	}
	return &models.SchoolClass{ID: id}, nil
}

func (m *schoolClassServiceMock) Delete(ctx context.Context, id string) error { return m.err }

func (m *schoolClassServiceMock) SeatSummary(ctx context.Context, id string) (*models.SeatSummary, error) {
	m.lastClassID = id
	return m.summary, m.err
}

func (m *schoolClassServiceMock) AddTeacher(ctx context.Context, classID string, req service.AddTeacherRequest) (*models.SchoolClass, error) {
	m.lastClassID = classID
	m.lastTeacherID = req.TeacherID
	if m.err != nil {
		return nil, m.err
	}
	return &models.SchoolClass{ID: classID, TeacherIDs: []string{"t-1", req.TeacherID}}, nil
}

func (m *schoolClassServiceMock) RemoveTeacher(ctx context.Context, classID, teacherID string) (*models.SchoolClass, error) {
	m.lastClassID = classID
	m.lastTeacherID = teacherID
	if m.err != nil {
		return nil, m.err
	}
	return &models.SchoolClass{ID: classID}, nil
}

type suitableRoomsMock struct {
	rooms []models.Classroom
	err   error
}

func (m suitableRoomsMock) FindWithSufficientCapacityForSchoolClass(ctx context.Context, schoolClassID string) ([]models.Classroom, error) {
	return m.rooms, m.err
}

func schoolClassRouter(svc *schoolClassServiceMock, rooms suitableRoomsMock) *gin.Engine {
	h := NewSchoolClassHandler(svc, rooms)
	r := gin.New()
	r.GET("/school-classes", h.List)
	r.POST("/school-classes", h.Create)
	r.PUT("/school-classes/:id", h.Update)
	r.GET("/school-classes/:id/seats", h.Seats)
	r.POST("/school-classes/:id/teachers", h.AddTeacher)
	r.DELETE("/school-classes/:id/teachers/:teacherId", h.RemoveTeacher)
	r.GET("/school-classes/:id/suitable-classrooms", h.SuitableClassrooms)
	return r
}

func TestSchoolClassHandlerCreateRequiresTeachers(t *testing.T) {
	w := perform(schoolClassRouter(&schoolClassServiceMock{}, suitableRoomsMock{}), http.MethodPost,
		"/school-classes", `{"name":"X IPA 1","max_students":30,"teacher_ids":[]}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error.Details, "teacher_ids")
}

func TestSchoolClassHandlerSeats(t *testing.T) {
	summary := models.NewSeatSummary("c-1", 30, 30)
	svc := &schoolClassServiceMock{summary: &summary}
	w := perform(schoolClassRouter(svc, suitableRoomsMock{}), http.MethodGet, "/school-classes/c-1/seats", "")

	require.Equal(t, http.StatusOK, w.Code)
	var got models.SeatSummary
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	assert.True(t, got.IsFull)
	assert.Equal(t, 0, got.AvailableSeats)
	assert.Equal(t, "c-1", svc.lastClassID)
}

func TestSchoolClassHandlerUpdateBelowRoster(t *testing.T) {
	svc := &schoolClassServiceMock{err: appErrors.ErrInvalidMaxStudents.WithDetail("active_registrations", 28)}
	w := perform(schoolClassRouter(svc, suitableRoomsMock{}), http.MethodPut, "/school-classes/c-1", `{"max_students":25}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_MAX_STUDENTS", decode(t, w).Error.Code)
	require.NotNil(t, svc.lastUpdate.MaxStudents)
	assert.Equal(t, 25, *svc.lastUpdate.MaxStudents)
}

func TestSchoolClassHandlerTeacherTeam(t *testing.T) {
	svc := &schoolClassServiceMock{}
	r := schoolClassRouter(svc, suitableRoomsMock{})

	w := perform(r, http.MethodPost, "/school-classes/c-1/teachers", `{"teacher_id":"t-2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t-2", svc.lastTeacherID)

	svc.err = appErrors.Clone(appErrors.ErrMinimumTeachersViolation, "")
	w = perform(r, http.MethodDelete, "/school-classes/c-1/teachers/t-1", "")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "MINIMUM_TEACHERS_VIOLATION", decode(t, w).Error.Code)
	assert.Equal(t, "c-1", svc.lastClassID)
	assert.Equal(t, "t-1", svc.lastTeacherID)
}

func TestSchoolClassHandlerSuitableClassrooms(t *testing.T) {
	w := perform(schoolClassRouter(&schoolClassServiceMock{}, suitableRoomsMock{rooms: []models.Classroom{{ID: "room-2", Capacity: 40}}}),
		http.MethodGet, "/school-classes/c-1/suitable-classrooms", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rooms []models.Classroom
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "room-2", rooms[0].ID)

	w = perform(schoolClassRouter(&schoolClassServiceMock{}, suitableRoomsMock{err: appErrors.Clone(appErrors.ErrNoSuitableClassroom, "")}),
		http.MethodGet, "/school-classes/c-1/suitable-classrooms", "")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NO_SUITABLE_CLASSROOM", decode(t, w).Error.Code)
}
