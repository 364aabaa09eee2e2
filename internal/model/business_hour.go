package model

import (
	"github.com/google/uuid"
)

type HourStatus string

const (
	HourStatusOpen   HourStatus = "OPEN"
	HourStatusClosed HourStatus = "CLOSED"
	HourStatusAsk    HourStatus = "ASK"
)

func (s HourStatus) Valid() bool {
	return s == HourStatusOpen || s == HourStatusClosed || s == HourStatusAsk
}

// DaysPerWeek is the fixed number of business hour entries per clinic.
const DaysPerWeek = 7

// BusinessHour is one day of a clinic's week. Times are "HH:MM" and only
// meaningful when Status is OPEN.
type BusinessHour struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	HospitalID uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	DayOfWeek  int        `db:"day_of_week" json:"day_of_week"`
	OpenTime   string     `db:"open_time" json:"open_time"`
	CloseTime  string     `db:"close_time" json:"close_time"`
	Status     HourStatus `db:"status" json:"status"`
}
