package service

import (
	"context"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
	appErrors "github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/errors"
)

type dashboardAppointmentCounter interface {
	CountByStatus(ctx context.Context) (map[models.AppointmentStatus]int, error)
}

type dashboardDepartmentCounter interface {
	AppointmentCounts(ctx context.Context) ([]models.DepartmentAppointmentCount, error)
}

// DashboardStats is the admin overview payload.
type DashboardStats struct {
	Total        int                                 `json:"total"`
	ByStatus     map[models.AppointmentStatus]int    `json:"by_status"`
	ByDepartment []models.DepartmentAppointmentCount `json:"by_department"`
}

// DashboardService aggregates booking activity for the admin overview.
type DashboardService struct {
	appointments dashboardAppointmentCounter
	departments  dashboardDepartmentCounter
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(appointments dashboardAppointmentCounter, departments dashboardDepartmentCounter) *DashboardService {
	return &DashboardService{appointments: appointments, departments: departments}
}

// Stats returns appointment totals by lifecycle state and by department.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	byStatus, err := s.appointments.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count appointments")
	}
	byDepartment, err := s.departments.AppointmentCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count department activity")
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}
	return &DashboardStats{Total: total, ByStatus: byStatus, ByDepartment: byDepartment}, nil
}
