package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/service"
	appErrors "github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/errors"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/response"
)

// NotificationHandler exposes the notification outbox.
type NotificationHandler struct {
	service *service.NotificationService
}

// NewNotificationHandler creates a new handler.
func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// ListForAppointment godoc
// @Summary List appointment notifications
// @Description Notification history of one appointment
// @Tags Notifications
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /appointments/{id}/notifications [get]
func (h *NotificationHandler) ListForAppointment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	notifications, err := h.service.ListForAppointment(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, nil)
}

// ListPending godoc
// @Summary List pending notifications
// @Description Undelivered notifications, oldest first
// @Tags Notifications
// @Produce json
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /notifications/pending [get]
func (h *NotificationHandler) ListPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	notifications, err := h.service.ListPending(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, nil)
}

// MarkSent godoc
// @Summary Mark notification sent
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /notifications/{id}/sent [post]
func (h *NotificationHandler) MarkSent(c *gin.Context) {
	if err := h.service.MarkSent(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkFailed godoc
// @Summary Mark notification failed
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /notifications/{id}/failed [post]
func (h *NotificationHandler) MarkFailed(c *gin.Context) {
	if err := h.service.MarkFailed(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
