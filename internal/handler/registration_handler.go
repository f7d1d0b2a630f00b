package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/internal/service"
	"github.com/noah-isme/sma-scheduling-api/pkg/response"
)

type registrationService interface {
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Registration, error)
	Create(ctx context.Context, req service.CreateRegistrationRequest) (*models.Registration, error)
	UpdateStatus(ctx context.Context, id string, req service.UpdateRegistrationStatusRequest) (*models.Registration, error)
	Delete(ctx context.Context, id string) error
}

// RegistrationHandler exposes the enrollment endpoints.
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler constructs a registration handler.
func NewRegistrationHandler(svc registrationService) *RegistrationHandler {
	return &RegistrationHandler{service: svc}
}

// List godoc
// @Summary List registrations
// @Tags Registrations
// @Produce json
// @Param student_id query string false "Student"
// @Param school_class_id query string false "School class"
// @Param status query string false "ACTIVE, COMPLETED, WITHDRAWN or SUSPENDED"
// @Success 200 {object} response.Envelope
// @Router /registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	params := parseListParams(c)
	filter := models.RegistrationFilter{
		StudentID:     c.Query("student_id"),
		SchoolClassID: c.Query("school_class_id"),
		Status:        models.RegistrationStatus(c.Query("status")),
		Page:          params.Page,
		PageSize:      params.PageSize,
		SortBy:        params.SortBy,
		SortOrder:     params.SortOrder,
	}
	registrations, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registrations, pagination)
}

// Get godoc
// @Summary Get registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	registration, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}

// Create godoc
// @Summary Register student
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.CreateRegistrationRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Create(c *gin.Context) {
	var req service.CreateRegistrationRequest
	if !bindJSON(c, &req) {
		return
	}
	registration, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registration)
}

// UpdateStatus godoc
// @Summary Change registration status
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body service.UpdateRegistrationStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/status [patch]
func (h *RegistrationHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateRegistrationStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	registration, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}

// Delete godoc
// @Summary Delete registration
// @Tags Registrations
// @Param id path string true "Registration ID"
// @Success 204
// @Router /registrations/{id} [delete]
func (h *RegistrationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
