package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// InTx runs fn against a transaction-scoped repository. Row locks taken
	// inside fn are held until fn returns; any error rolls everything back.
	InTx(ctx context.Context, fn func(r Repository) error) error

	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	// LockDoctor acquires an exclusive row lock on the doctor, serializing
	// concurrent booking attempts for the same doctor.
	LockDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)

	// FindActiveBySlot is the double-booking guard; it must run under the
	// doctor lock taken by LockDoctor in the same transaction.
	FindActiveBySlot(ctx context.Context, doctorID uuid.UUID, date time.Time, timeOfDay string) (*Appointment, error)

	// CreateAppointment inserts the row and fills Seq and the timestamps.
	CreateAppointment(ctx context.Context, appt *Appointment) error

	// CountActiveForDoctorDay counts non-terminal appointments for the
	// doctor and day, including any row inserted earlier in the same
	// transaction. Feeds the queue token.
	CountActiveForDoctorDay(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error)

	// SetDisplayFields persists the minted appointment number and queue token.
	SetDisplayFields(ctx context.Context, id uuid.UUID, number, queueToken string) error

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error)

	// UpdateAppointmentStatus is a compare-and-swap on status; it returns
	// ErrAppointmentNotFound when no row matches (id, from).
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// FindOverdueScheduled returns scheduled appointments whose slot ended
	// before the cutoff. Used by the no-show sweep.
	FindOverdueScheduled(ctx context.Context, cutoff time.Time) ([]Appointment, error)
}
