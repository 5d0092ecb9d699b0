package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/service"
	appErrors "github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/errors"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/response"
)

// AppointmentHandler exposes the booking engine.
type AppointmentHandler struct {
	service *service.SchedulingService
}

// NewAppointmentHandler creates a new handler.
func NewAppointmentHandler(svc *service.SchedulingService) *AppointmentHandler {
	return &AppointmentHandler{service: svc}
}

// Create godoc
// @Summary Book appointment
// @Description Request an appointment slot with a faculty member
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body service.CreateAppointmentRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid appointment payload"))
		return
	}

	appt, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// List godoc
// @Summary List appointments
// @Description Appointments visible to the caller
// @Tags Appointments
// @Produce json
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param status query string false "Filter by status"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.AppointmentFilter{Date: c.Query("date")}
	if status := c.Query("status"); status != "" {
		s := models.AppointmentStatus(status)
		filter.Status = &s
	}
	if actor.Role == models.RoleAdmin {
		filter.StudentID = c.Query("student_id")
		filter.FacultyID = c.Query("faculty_id")
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	appointments, total, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, appointments, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	appt, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Confirm godoc
// @Summary Confirm appointment
// @Description Faculty accepts a requested appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id}/confirm [post]
func (h *AppointmentHandler) Confirm(c *gin.Context) {
	h.applyTransition(c, h.service.Confirm)
}

// Reject godoc
// @Summary Reject appointment
// @Description Faculty declines a requested appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id}/reject [post]
func (h *AppointmentHandler) Reject(c *gin.Context) {
	h.applyTransition(c, h.service.Reject)
}

// Cancel godoc
// @Summary Cancel appointment
// @Description Either party withdraws a requested or confirmed appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Param payload body object false "Optional cancellation reason"
// @Router /appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancel payload"))
			return
		}
	}
	h.applyTransition(c, func(ctx context.Context, actor service.Actor, id string) (*models.Appointment, error) {
		return h.service.Cancel(ctx, actor, id, req.Reason)
	})
}

// Complete godoc
// @Summary Complete appointment
// @Description Faculty marks a confirmed appointment completed after it ends
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id}/complete [post]
func (h *AppointmentHandler) Complete(c *gin.Context) {
	h.applyTransition(c, h.service.Complete)
}

func (h *AppointmentHandler) applyTransition(c *gin.Context, fn func(ctx context.Context, actor service.Actor, id string) (*models.Appointment, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	appt, err := fn(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}
