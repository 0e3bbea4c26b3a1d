package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careops/hospital-ops/internal/notify"
	"github.com/careops/hospital-ops/internal/sequence"
)

var (
	ErrDoctorUnavailable       = errors.New("doctor is not accepting appointments")
	ErrSlotAlreadyBooked       = errors.New("slot already booked")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

type BookingInput struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      time.Time
	TimeOfDay string
	Type      string
	Reason    string
	Symptoms  []string
}

type Service struct {
	repo      Repository
	publisher notify.Publisher
	logger    zerolog.Logger
}

func NewService(repo Repository, publisher notify.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Book reserves a (doctor, date, time) slot for a patient. The whole
// operation runs in one transaction: the doctor row lock taken first
// serializes concurrent attempts for the same doctor, so the conflict
// check, the insert, and the queue-token count cannot race with another
// booking. Exactly one of two concurrent requests for the same slot
// succeeds; the other gets ErrSlotAlreadyBooked.
func (s *Service) Book(ctx context.Context, in BookingInput) (*Appointment, error) {
	var created *Appointment

	err := s.repo.InTx(ctx, func(r Repository) error {
		doctor, err := r.LockDoctor(ctx, in.DoctorID)
		if err != nil {
			return err
		}
		if !doctor.Available {
			return ErrDoctorUnavailable
		}

		if _, err := r.GetPatientByID(ctx, in.PatientID); err != nil {
			return err
		}

		existing, err := r.FindActiveBySlot(ctx, in.DoctorID, in.Date, in.TimeOfDay)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check slot: %w", err)
		}
		if existing != nil {
			return ErrSlotAlreadyBooked
		}

		appt := &Appointment{
			ID:        uuid.New(),
			PatientID: in.PatientID,
			DoctorID:  in.DoctorID,
			Date:      in.Date,
			TimeOfDay: in.TimeOfDay,
			Type:      in.Type,
			Reason:    in.Reason,
			Symptoms:  in.Symptoms,
			Status:    StatusScheduled,
		}
		if err := r.CreateAppointment(ctx, appt); err != nil {
			return err
		}

		// Insert first, then count: the count includes the new row and runs
		// under the doctor lock, so the 1-based position is race-free.
		position, err := r.CountActiveForDoctorDay(ctx, in.DoctorID, in.Date)
		if err != nil {
			return err
		}

		appt.AppointmentNumber = sequence.AppointmentNumber(in.Date, appt.Seq)
		appt.QueueToken = sequence.QueueToken(position)
		if err := r.SetDisplayFields(ctx, appt.ID, appt.AppointmentNumber, appt.QueueToken); err != nil {
			return err
		}

		created = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.TopicAppointmentBooked, map[string]any{
		"appointment_id":     created.ID.String(),
		"appointment_number": created.AppointmentNumber,
		"doctor_id":          created.DoctorID.String(),
		"patient_id":         created.PatientID.String(),
		"queue_token":        created.QueueToken,
	})

	return created, nil
}

// CheckIn moves a scheduled appointment to checked_in.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusScheduled, StatusCheckedIn)
}

// Complete moves a checked-in appointment to completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCheckedIn, StatusCompleted)
}

// Cancel moves a scheduled or checked-in appointment to cancelled,
// freeing its slot. Appointment rows are never deleted.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status != StatusScheduled && appt.Status != StatusCheckedIn {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Raced with another transition between the read and the CAS.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.publish(ctx, notify.TopicAppointmentCancelled, map[string]any{
		"appointment_id": updated.ID.String(),
		"doctor_id":      updated.DoctorID.String(),
	})

	return updated, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != from {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, from, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	return updated, nil
}

// MarkNoShows is called periodically by the sweep worker. It moves
// scheduled appointments whose slot ended before now minus the grace
// period to no_show, freeing their slots.
func (s *Service) MarkNoShows(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := time.Now().Add(-grace)

	overdue, err := s.repo.FindOverdueScheduled(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find overdue appointments: %w", err)
	}

	marked := 0
	for _, appt := range overdue {
		if _, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, StatusNoShow); err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				continue
			}
			s.logger.Error().Err(err).Stringer("appointment_id", appt.ID).Msg("failed to mark no-show")
			continue
		}
		marked++
	}

	return marked, nil
}

// GetAppointment retrieves a fully hydrated appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// ListAppointmentsByPatient retrieves appointments for a specific patient.
func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
}

func (s *Service) publish(ctx context.Context, topic string, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("failed to publish event")
	}
}
