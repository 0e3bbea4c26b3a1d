package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careops/hospital-ops/internal/notify"
)

// fakeRepo is an in-memory Repository. InTx serializes transactions with a
// mutex (standing in for the doctor row lock) and restores a snapshot on
// error (standing in for rollback).
type fakeRepo struct {
	mu           sync.Mutex
	txMu         sync.Mutex
	patients     map[uuid.UUID]*Patient
	doctors      map[uuid.UUID]*Doctor
	appointments map[uuid.UUID]*Appointment
	nextSeq      int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patients:     make(map[uuid.UUID]*Patient),
		doctors:      make(map[uuid.UUID]*Doctor),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

func (f *fakeRepo) addPatient(name string) uuid.UUID {
	id := uuid.New()
	f.patients[id] = &Patient{ID: id, Name: name}
	return id
}

func (f *fakeRepo) addDoctor(name string, available bool) uuid.UUID {
	id := uuid.New()
	f.doctors[id] = &Doctor{ID: id, Name: name, Available: available}
	return id
}

func (f *fakeRepo) snapshot() map[uuid.UUID]*Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := make(map[uuid.UUID]*Appointment, len(f.appointments))
	for id, a := range f.appointments {
		cp := *a
		snap[id] = &cp
	}
	return snap
}

func (f *fakeRepo) InTx(ctx context.Context, fn func(Repository) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	snap := f.snapshot()
	if err := fn(f); err != nil {
		f.mu.Lock()
		f.appointments = snap
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeRepo) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (f *fakeRepo) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return d, nil
}

func (f *fakeRepo) LockDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return f.GetDoctorByID(ctx, id)
}

func (f *fakeRepo) FindActiveBySlot(ctx context.Context, doctorID uuid.UUID, date time.Time, timeOfDay string) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.TimeOfDay == timeOfDay && a.Status.Active() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (f *fakeRepo) CreateAppointment(ctx context.Context, appt *Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSeq++
	appt.Seq = f.nextSeq
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	cp := *appt
	f.appointments[appt.ID] = &cp
	return nil
}

func (f *fakeRepo) CountActiveForDoctorDay(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) SetDisplayFields(ctx context.Context, id uuid.UUID, number, queueToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.AppointmentNumber = number
	a.QueueToken = queueToken
	return nil
}

func (f *fakeRepo) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	a, err := f.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &AppointmentDetail{Appointment: *a}, nil
}

func (f *fakeRepo) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []AppointmentDetail
	for _, a := range f.appointments {
		if a.PatientID == patientID {
			out = append(out, AppointmentDetail{Appointment: *a})
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) FindOverdueScheduled(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Appointment
	for _, a := range f.appointments {
		if a.Status != StatusScheduled {
			continue
		}
		slotEnd, err := slotTime(a.Date, a.TimeOfDay)
		if err != nil {
			continue
		}
		if slotEnd.Before(cutoff) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func slotTime(date time.Time, timeOfDay string) (time.Time, error) {
	t, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, notify.Noop{}, zerolog.Nop())
}

func bookingInput(patientID, doctorID uuid.UUID, date time.Time, timeOfDay string) BookingInput {
	return BookingInput{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		TimeOfDay: timeOfDay,
		Type:      "consultation",
	}
}

var testDay = time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

func TestBook_AssignsSequentialQueueTokens(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", true)
	p1 := repo.addPatient("P1")
	p2 := repo.addPatient("P2")
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Book(ctx, bookingInput(p1, doctorID, testDay, "10:00"))
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	if first.QueueToken != "Q-001" {
		t.Errorf("first queue token = %q, want Q-001", first.QueueToken)
	}
	if first.Status != StatusScheduled {
		t.Errorf("first status = %q, want scheduled", first.Status)
	}
	if first.AppointmentNumber == "" {
		t.Error("expected appointment number to be minted")
	}

	_, err = svc.Book(ctx, bookingInput(p2, doctorID, testDay, "10:00"))
	if !errors.Is(err, ErrSlotAlreadyBooked) {
		t.Fatalf("same-slot booking error = %v, want ErrSlotAlreadyBooked", err)
	}

	second, err := svc.Book(ctx, bookingInput(p2, doctorID, testDay, "10:30"))
	if err != nil {
		t.Fatalf("second booking failed: %v", err)
	}
	if second.QueueToken != "Q-002" {
		t.Errorf("second queue token = %q, want Q-002", second.QueueToken)
	}
}

func TestBook_FailuresLeaveNoRows(t *testing.T) {
	repo := newFakeRepo()
	availableDoctor := repo.addDoctor("Dr. Adams", true)
	unavailableDoctor := repo.addDoctor("Dr. Brooks", false)
	patientID := repo.addPatient("P1")
	svc := newTestService(repo)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   BookingInput
		wantErr error
	}{
		{
			name:    "doctor missing",
			input:   bookingInput(patientID, uuid.New(), testDay, "10:00"),
			wantErr: ErrDoctorNotFound,
		},
		{
			name:    "doctor unavailable",
			input:   bookingInput(patientID, unavailableDoctor, testDay, "10:00"),
			wantErr: ErrDoctorUnavailable,
		},
		{
			name:    "patient missing",
			input:   bookingInput(uuid.New(), availableDoctor, testDay, "10:00"),
			wantErr: ErrPatientNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Book(ctx, tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
			if n := len(repo.appointments); n != 0 {
				t.Errorf("appointments after failed booking = %d, want 0", n)
			}
		})
	}
}

func TestBook_CancelledSlotCanBeRebooked(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", true)
	p1 := repo.addPatient("P1")
	p2 := repo.addPatient("P2")
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Book(ctx, bookingInput(p1, doctorID, testDay, "10:00"))
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	if _, err := svc.Cancel(ctx, first.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := svc.Book(ctx, bookingInput(p2, doctorID, testDay, "10:00")); err != nil {
		t.Fatalf("rebooking cancelled slot failed: %v", err)
	}
}

func TestBook_ConcurrentSameSlotExactlyOneWins(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", true)
	svc := newTestService(repo)
	ctx := context.Background()

	const attempts = 8
	patients := make([]uuid.UUID, attempts)
	for i := range patients {
		patients[i] = repo.addPatient("P")
	}

	var wg sync.WaitGroup
	errCh := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(patientID uuid.UUID) {
			defer wg.Done()
			_, err := svc.Book(ctx, bookingInput(patientID, doctorID, testDay, "10:00"))
			errCh <- err
		}(patients[i])
	}
	wg.Wait()
	close(errCh)

	var wins, conflicts int
	for err := range errCh {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSlotAlreadyBooked):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if conflicts != attempts-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, attempts-1)
	}

	active, err := repo.CountActiveForDoctorDay(ctx, doctorID, testDay)
	if err != nil {
		t.Fatal(err)
	}
	if active != 1 {
		t.Errorf("active appointments = %d, want 1", active)
	}
}

func TestStatusTransitions(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", true)
	patientID := repo.addPatient("P1")
	svc := newTestService(repo)
	ctx := context.Background()

	appt, err := svc.Book(ctx, bookingInput(patientID, doctorID, testDay, "10:00"))
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	// Completing before check-in is rejected.
	if _, err := svc.Complete(ctx, appt.ID); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("complete before check-in error = %v, want ErrInvalidStatusTransition", err)
	}

	checked, err := svc.CheckIn(ctx, appt.ID)
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if checked.Status != StatusCheckedIn {
		t.Errorf("status = %q, want checked_in", checked.Status)
	}

	completed, err := svc.Complete(ctx, appt.ID)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if completed.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", completed.Status)
	}

	// Completed appointments cannot be cancelled.
	if _, err := svc.Cancel(ctx, appt.ID); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("cancel completed error = %v, want ErrInvalidStatusTransition", err)
	}
}

func TestMarkNoShows(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", true)
	patientID := repo.addPatient("P1")
	svc := newTestService(repo)
	ctx := context.Background()

	pastDay := time.Now().UTC().AddDate(0, 0, -3)
	pastDay = time.Date(pastDay.Year(), pastDay.Month(), pastDay.Day(), 0, 0, 0, 0, time.UTC)
	futureDay := time.Now().UTC().AddDate(0, 0, 3)
	futureDay = time.Date(futureDay.Year(), futureDay.Month(), futureDay.Day(), 0, 0, 0, 0, time.UTC)

	overdue, err := svc.Book(ctx, bookingInput(patientID, doctorID, pastDay, "09:00"))
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	upcoming, err := svc.Book(ctx, bookingInput(patientID, doctorID, futureDay, "09:00"))
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	marked, err := svc.MarkNoShows(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if marked != 1 {
		t.Errorf("marked = %d, want 1", marked)
	}

	got, _ := repo.GetAppointmentByID(ctx, overdue.ID)
	if got.Status != StatusNoShow {
		t.Errorf("overdue status = %q, want no_show", got.Status)
	}

	got, _ = repo.GetAppointmentByID(ctx, upcoming.ID)
	if got.Status != StatusScheduled {
		t.Errorf("upcoming status = %q, want scheduled", got.Status)
	}
}
