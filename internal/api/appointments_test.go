package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careops/hospital-ops/internal/booking"
	"github.com/careops/hospital-ops/internal/notify"
)

// stubBookingRepo serves a single prepared appointment detail.
type stubBookingRepo struct {
	detail *booking.AppointmentDetail
}

func (s *stubBookingRepo) InTx(ctx context.Context, fn func(booking.Repository) error) error {
	return fn(s)
}

func (s *stubBookingRepo) GetPatientByID(context.Context, uuid.UUID) (*booking.Patient, error) {
	return nil, booking.ErrPatientNotFound
}

func (s *stubBookingRepo) GetDoctorByID(context.Context, uuid.UUID) (*booking.Doctor, error) {
	return nil, booking.ErrDoctorNotFound
}

func (s *stubBookingRepo) LockDoctor(context.Context, uuid.UUID) (*booking.Doctor, error) {
	return nil, booking.ErrDoctorNotFound
}

func (s *stubBookingRepo) FindActiveBySlot(context.Context, uuid.UUID, time.Time, string) (*booking.Appointment, error) {
	return nil, booking.ErrAppointmentNotFound
}

func (s *stubBookingRepo) CreateAppointment(context.Context, *booking.Appointment) error {
	return nil
}

func (s *stubBookingRepo) CountActiveForDoctorDay(context.Context, uuid.UUID, time.Time) (int, error) {
	return 0, nil
}

func (s *stubBookingRepo) SetDisplayFields(context.Context, uuid.UUID, string, string) error {
	return nil
}

func (s *stubBookingRepo) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*booking.Appointment, error) {
	if s.detail != nil && s.detail.ID == id {
		return &s.detail.Appointment, nil
	}
	return nil, booking.ErrAppointmentNotFound
}

func (s *stubBookingRepo) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*booking.AppointmentDetail, error) {
	if s.detail != nil && s.detail.ID == id {
		return s.detail, nil
	}
	return nil, booking.ErrAppointmentNotFound
}

func (s *stubBookingRepo) ListAppointmentsByPatient(context.Context, uuid.UUID, int, int) ([]booking.AppointmentDetail, error) {
	return nil, nil
}

func (s *stubBookingRepo) UpdateAppointmentStatus(context.Context, uuid.UUID, booking.AppointmentStatus, booking.AppointmentStatus) (*booking.Appointment, error) {
	return nil, booking.ErrAppointmentNotFound
}

func (s *stubBookingRepo) FindOverdueScheduled(context.Context, time.Time) ([]booking.Appointment, error) {
	return nil, nil
}

func TestGetAppointmentHandler_IncludesPatientAndDoctor(t *testing.T) {
	specialty := "Cardiology"
	detail := &booking.AppointmentDetail{
		Appointment: booking.Appointment{
			ID:                uuid.New(),
			AppointmentNumber: "APT-20260220-0007",
			PatientID:         uuid.New(),
			DoctorID:          uuid.New(),
			Date:              time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
			TimeOfDay:         "10:00",
			Type:              "consultation",
			Status:            booking.StatusScheduled,
			QueueToken:        "Q-001",
		},
		Patient: &booking.Patient{
			ID:                  uuid.New(),
			MedicalRecordNumber: "MRN-2026-0042",
			Name:                "Jane Doe",
		},
		Doctor: &booking.Doctor{
			ID:        uuid.New(),
			Name:      "Dr. Adams",
			Specialty: &specialty,
		},
	}

	svc := booking.NewService(&stubBookingRepo{detail: detail}, notify.Noop{}, zerolog.Nop())

	r := chi.NewRouter()
	r.Get("/appointments/{id}", getAppointmentHandler(svc))

	req := httptest.NewRequest(http.MethodGet, "/appointments/"+detail.ID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp AppointmentDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.AppointmentNumber != "APT-20260220-0007" || resp.QueueToken != "Q-001" {
		t.Errorf("appointment fields = %q/%q, want APT-20260220-0007/Q-001",
			resp.AppointmentNumber, resp.QueueToken)
	}
	if resp.Patient == nil || resp.Patient.Name != "Jane Doe" || resp.Patient.MedicalRecordNumber != "MRN-2026-0042" {
		t.Errorf("patient = %+v, want Jane Doe / MRN-2026-0042", resp.Patient)
	}
	if resp.Doctor == nil || resp.Doctor.Name != "Dr. Adams" {
		t.Errorf("doctor = %+v, want Dr. Adams", resp.Doctor)
	}

	// Unknown appointment maps to 404.
	req = httptest.NewRequest(http.MethodGet, "/appointments/"+uuid.New().String(), nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
