package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/service"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/response"
)

// DashboardHandler exposes the admin overview.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Stats godoc
// @Summary Dashboard statistics
// @Description Appointment totals by lifecycle state and department
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
