package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCheckedIn AppointmentStatus = "checked_in"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Active reports whether the status still occupies its slot. Cancelled and
// no-show appointments free the (doctor, date, time) tuple for rebooking.
func (s AppointmentStatus) Active() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type Patient struct {
	ID                  uuid.UUID
	Seq                 int64
	MedicalRecordNumber string
	Name                string
	Email               *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID                uuid.UUID
	Seq               int64
	AppointmentNumber string
	PatientID         uuid.UUID
	DoctorID          uuid.UUID
	Date              time.Time
	TimeOfDay         string // HH:MM slot within the day
	Type              string
	Reason            string
	Symptoms          []string
	Status            AppointmentStatus
	QueueToken        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type AppointmentDetail struct {
	Appointment
	Patient *Patient
	Doctor  *Doctor
}
