package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/internal/service"
	"github.com/noah-isme/sma-scheduling-api/pkg/response"
)

type schoolClassService interface {
	List(ctx context.Context, filter models.SchoolClassFilter) ([]models.SchoolClass, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.SchoolClass, error)
	Create(ctx context.Context, req service.CreateSchoolClassRequest) (*models.SchoolClass, error)
	Update(ctx context.Context, id string, req service.UpdateSchoolClassRequest) (*models.SchoolClass, error)
	Delete(ctx context.Context, id string) error
	SeatSummary(ctx context.Context, id string) (*models.SeatSummary, error)
	AddTeacher(ctx context.Context, classID string, req service.AddTeacherRequest) (*models.SchoolClass, error)
	RemoveTeacher(ctx context.Context, classID, teacherID string) (*models.SchoolClass, error)
}

type suitableClassroomFinder interface {
	FindWithSufficientCapacityForSchoolClass(ctx context.Context, schoolClassID string) ([]models.Classroom, error)
}

// SchoolClassHandler exposes school class, teacher team and seat endpoints.
type SchoolClassHandler struct {
	service  schoolClassService
	capacity suitableClassroomFinder
}

// NewSchoolClassHandler constructs a school class handler.
func NewSchoolClassHandler(svc schoolClassService, capacity suitableClassroomFinder) *SchoolClassHandler {
	return &SchoolClassHandler{service: svc, capacity: capacity}
}

// List godoc
// @Summary List school classes
// @Tags SchoolClasses
// @Produce json
// @Param search query string false "Search by name"
// @Param teacher_id query string false "Assigned teacher"
// @Success 200 {object} response.Envelope
// @Router /school-classes [get]
func (h *SchoolClassHandler) List(c *gin.Context) {
	params := parseListParams(c)
	filter := models.SchoolClassFilter{
		Search:    params.Search,
		TeacherID: c.Query("teacher_id"),
		Page:      params.Page,
		PageSize:  params.PageSize,
		SortBy:    params.SortBy,
		SortOrder: params.SortOrder,
	}
	classes, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get school class
// @Tags SchoolClasses
// @Produce json
// @Param id path string true "School class ID"
// @Success 200 {object} response.Envelope
// @Router /school-classes/{id} [get]
func (h *SchoolClassHandler) Get(c *gin.Context) {
	class, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Create school class
// @Tags SchoolClasses
// @Accept json
// @Produce json
// @Param payload body service.CreateSchoolClassRequest true "School class payload"
// @Success 201 {object} response.Envelope
// @Router /school-classes [post]
func (h *SchoolClassHandler) Create(c *gin.Context) {
	var req service.CreateSchoolClassRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Update school class
// @Description max_students may not drop below the number of ACTIVE registrations.
// @Tags SchoolClasses
// @Accept json
// @Produce json
// @Param id path string true "School class ID"
// @Param payload body service.UpdateSchoolClassRequest true "Changed fields"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /school-classes/{id} [put]
func (h *SchoolClassHandler) Update(c *gin.Context) {
	var req service.UpdateSchoolClassRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Delete godoc
// @Summary Delete school class
// @Tags SchoolClasses
// @Param id path string true "School class ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /school-classes/{id} [delete]
func (h *SchoolClassHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Seats godoc
// @Summary Seat summary
// @Tags SchoolClasses
// @Produce json
// @Param id path string true "School class ID"
// @Success 200 {object} response.Envelope
// @Router /school-classes/{id}/seats [get]
func (h *SchoolClassHandler) Seats(c *gin.Context) {
	summary, err := h.service.SeatSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// AddTeacher godoc
// @Summary Assign teacher
// @Tags SchoolClasses
// @Accept json
// @Produce json
// @Param id path string true "School class ID"
// @Param payload body service.AddTeacherRequest true "Teacher"
// @Success 200 {object} response.Envelope
// @Router /school-classes/{id}/teachers [post]
func (h *SchoolClassHandler) AddTeacher(c *gin.Context) {
	var req service.AddTeacherRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.AddTeacher(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// RemoveTeacher godoc
// @Summary Unassign teacher
// @Description The last remaining teacher cannot be removed.
// @Tags SchoolClasses
// @Produce json
// @Param id path string true "School class ID"
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /school-classes/{id}/teachers/{teacherId} [delete]
func (h *SchoolClassHandler) RemoveTeacher(c *gin.Context) {
	class, err := h.service.RemoveTeacher(c.Request.Context(), c.Param("id"), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// SuitableClassrooms godoc
// @Summary Classrooms that seat the current roster
// @Tags SchoolClasses
// @Produce json
// @Param id path string true "School class ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /school-classes/{id}/suitable-classrooms [get]
func (h *SchoolClassHandler) SuitableClassrooms(c *gin.Context) {
	classrooms, err := h.capacity.FindWithSufficientCapacityForSchoolClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classrooms, nil)
}
