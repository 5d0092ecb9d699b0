package models

// AvailabilityWindow is a recurring weekly open slot owned by one faculty user.
// StartTime/EndTime are "HH:MM" and the window is half-open.
type AvailabilityWindow struct {
	ID        string  `db:"availability_id" json:"id"`
	FacultyID string  `db:"faculty_id" json:"faculty_id"`
	DayOfWeek Weekday `db:"day_of_week" json:"day_of_week"`
	StartTime string  `db:"start_time" json:"start_time"`
	EndTime   string  `db:"end_time" json:"end_time"`
	Active    bool    `db:"is_available" json:"is_available"`
}
