package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/internal/service"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
	"github.com/noah-isme/sma-scheduling-api/pkg/response"
)

type classroomService interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Classroom, error)
	Create(ctx context.Context, req service.ClassroomRequest) (*models.Classroom, error)
	Update(ctx context.Context, id string, req service.ClassroomRequest) (*models.Classroom, error)
	Delete(ctx context.Context, id string) error
	Availability(ctx context.Context, id string, slot models.TimeSlot) (*models.AvailabilityReport, error)
}

type freeClassroomFinder interface {
	FindAvailableInTimeRange(ctx context.Context, slot models.TimeSlot) ([]models.Classroom, error)
}

type capacityChecker interface {
	HasSufficientCapacity(ctx context.Context, classroomID string, required int) (bool, error)
}

// CapacityCheck is the answer to a classroom capacity query.
type CapacityCheck struct {
	ClassroomID string `json:"classroom_id"`
	Required    int    `json:"required"`
	Sufficient  bool   `json:"sufficient"`
}

// ClassroomHandler exposes classroom management and availability endpoints.
type ClassroomHandler struct {
	classrooms   classroomService
	availability freeClassroomFinder
	capacity     capacityChecker
}

// NewClassroomHandler constructs a classroom handler.
func NewClassroomHandler(classrooms classroomService, availability freeClassroomFinder, capacity capacityChecker) *ClassroomHandler {
	return &ClassroomHandler{classrooms: classrooms, availability: availability, capacity: capacity}
}

// List godoc
// @Summary List classrooms
// @Tags Classrooms
// @Produce json
// @Param search query string false "Search by name or building"
// @Param min_capacity query int false "Minimum capacity"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classrooms [get]
func (h *ClassroomHandler) List(c *gin.Context) {
	params := parseListParams(c)
	filter := models.ClassroomFilter{
		Search:    params.Search,
		Page:      params.Page,
		PageSize:  params.PageSize,
		SortBy:    params.SortBy,
		SortOrder: params.SortOrder,
	}
	if minCapacity, err := strconv.Atoi(c.Query("min_capacity")); err == nil {
		filter.MinCapacity = minCapacity
	}

	classrooms, pagination, err := h.classrooms.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classrooms, pagination)
}

// Get godoc
// @Summary Get classroom
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id} [get]
func (h *ClassroomHandler) Get(c *gin.Context) {
	classroom, err := h.classrooms.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classroom, nil)
}

// Create godoc
// @Summary Create classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param payload body service.ClassroomRequest true "Classroom payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classrooms [post]
func (h *ClassroomHandler) Create(c *gin.Context) {
	var req service.ClassroomRequest
	if !bindJSON(c, &req) {
		return
	}
	classroom, err := h.classrooms.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, classroom)
}

// Update godoc
// @Summary Update classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body service.ClassroomRequest true "Classroom payload"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id} [put]
func (h *ClassroomHandler) Update(c *gin.Context) {
	var req service.ClassroomRequest
	if !bindJSON(c, &req) {
		return
	}
	classroom, err := h.classrooms.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classroom, nil)
}

// Delete godoc
// @Summary Delete classroom
// @Description Fails with 409 while lessons or exams are still booked in the room.
// @Tags Classrooms
// @Param id path string true "Classroom ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /classrooms/{id} [delete]
func (h *ClassroomHandler) Delete(c *gin.Context) {
	if err := h.classrooms.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Availability godoc
// @Summary Check one classroom for a time slot
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Param start query string true "Slot start (RFC 3339)"
// @Param end query string true "Slot end (RFC 3339)"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/availability [get]
func (h *ClassroomHandler) Availability(c *gin.Context) {
	slot, err := slotQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.classrooms.Availability(c.Request.Context(), c.Param("id"), slot)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Available godoc
// @Summary List classrooms free for a time slot
// @Tags Classrooms
// @Produce json
// @Param start query string true "Slot start (RFC 3339)"
// @Param end query string true "Slot end (RFC 3339)"
// @Success 200 {object} response.Envelope
// @Router /classrooms/available [get]
func (h *ClassroomHandler) Available(c *gin.Context) {
	slot, err := slotQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	classrooms, err := h.availability.FindAvailableInTimeRange(c.Request.Context(), slot)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classrooms, nil, map[string]interface{}{"count": len(classrooms)})
}

// Capacity godoc
// @Summary Check whether a classroom seats a head count
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Param required query int true "Head count"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/capacity [get]
func (h *ClassroomHandler) Capacity(c *gin.Context) {
	required, err := strconv.Atoi(c.Query("required"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "").WithDetail("required", "required must be an integer"))
		return
	}
	id := c.Param("id")
	sufficient, err := h.capacity.HasSufficientCapacity(c.Request.Context(), id, required)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, CapacityCheck{ClassroomID: id, Required: required, Sufficient: sufficient}, nil)
}
