package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/service"
	appErrors "github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/errors"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/response"
)

// AvailabilityHandler exposes faculty availability windows.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler creates a new handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// ListForFaculty godoc
// @Summary List availability windows
// @Description Weekly availability of one faculty member
// @Tags Availability
// @Produce json
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /faculty/{id}/availability [get]
func (h *AvailabilityHandler) ListForFaculty(c *gin.Context) {
	windows, err := h.service.ListWindows(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// Create godoc
// @Summary Create availability window
// @Description Add a weekly window to the caller's availability
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body service.UpsertWindowRequest true "Window payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /availability [post]
func (h *AvailabilityHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpsertWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}

	window, err := h.service.CreateWindow(c.Request.Context(), actor.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, window)
}

// Update godoc
// @Summary Update availability window
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Window ID"
// @Param payload body service.UpsertWindowRequest true "Window payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /availability/{id} [put]
func (h *AvailabilityHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpsertWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}

	window, err := h.service.UpdateWindow(c.Request.Context(), actor.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}

// Delete godoc
// @Summary Delete availability window
// @Tags Availability
// @Produce json
// @Param id path string true "Window ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /availability/{id} [delete]
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.DeleteWindow(c.Request.Context(), actor.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
