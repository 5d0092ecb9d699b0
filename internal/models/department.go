package models

// Department groups users by academic affiliation.
type Department struct {
	ID       string  `db:"department_id" json:"id"`
	Name     string  `db:"department_name" json:"name"`
	Building *string `db:"building" json:"building,omitempty"`
	Phone    *string `db:"phone" json:"phone,omitempty"`
}

// DepartmentAppointmentCount aggregates appointments per department for the
// dashboard chart.
type DepartmentAppointmentCount struct {
	DepartmentName string `db:"department_name" json:"department_name"`
	Appointments   int    `db:"appointments" json:"appointments"`
}
