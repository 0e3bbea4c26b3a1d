package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careops/hospital-ops/internal/audit"
	"github.com/careops/hospital-ops/internal/notify"
	"github.com/careops/hospital-ops/internal/sequence"
)

var (
	ErrAlreadyDispensed      = errors.New("prescription already dispensed")
	ErrPrescriptionCancelled = errors.New("prescription is cancelled")
	ErrNoLineItems           = errors.New("prescription has no line items")
)

// InsufficientStockError names the first medicine whose stock cannot
// cover its line item, so the caller can render an actionable message.
type InsufficientStockError struct {
	MedicineID   uuid.UUID
	MedicineName string
	Available    int
	Requested    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: have %d, need %d",
		e.MedicineName, e.Available, e.Requested)
}

type Service struct {
	repo      Repository
	recorder  audit.Recorder
	publisher notify.Publisher
	logger    zerolog.Logger
}

func NewService(repo Repository, recorder audit.Recorder, publisher notify.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		recorder:  recorder,
		publisher: publisher,
		logger:    logger,
	}
}

// CreatePrescription records a doctor's prescription with its line items
// and mints the RX display number from the row's serial inside the same
// transaction.
func (s *Service) CreatePrescription(ctx context.Context, patientID, doctorID uuid.UUID, appointmentID *uuid.UUID, items []PrescriptionItem) (*PrescriptionDetail, error) {
	if len(items) == 0 {
		return nil, ErrNoLineItems
	}

	p := &Prescription{
		ID:            uuid.New(),
		PatientID:     patientID,
		DoctorID:      doctorID,
		AppointmentID: appointmentID,
		Status:        StatusActive,
	}

	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}

	err := s.repo.InTx(ctx, func(r Repository) error {
		// Verify every referenced medicine exists before accepting the
		// prescription; nothing is decremented here so no locks are taken.
		for _, it := range items {
			if _, err := r.GetMedicineByID(ctx, it.MedicineID); err != nil {
				return fmt.Errorf("medicine %s: %w", it.MedicineID, err)
			}
		}

		if err := r.CreatePrescription(ctx, p, items); err != nil {
			return err
		}

		p.PrescriptionNumber = sequence.PrescriptionNumber(p.CreatedAt, p.Seq)
		return r.SetPrescriptionNumber(ctx, p.ID, p.PrescriptionNumber)
	})
	if err != nil {
		return nil, err
	}

	return &PrescriptionDetail{Prescription: *p, Items: items}, nil
}

// Dispense fulfils a prescription: inside one transaction it locks the
// prescription row, locks every referenced medicine in ascending id order,
// verifies all stock levels before touching any of them, decrements each,
// and flips the prescription to completed. Any failure rolls back every
// decrement; stock can never go negative and a prescription can never be
// dispensed twice.
func (s *Service) Dispense(ctx context.Context, prescriptionID uuid.UUID) (*Prescription, error) {
	var (
		dispensed *Prescription
		changes   []StockChange
	)

	err := s.repo.InTx(ctx, func(r Repository) error {
		p, err := r.LockPrescription(ctx, prescriptionID)
		if err != nil {
			return err
		}

		switch p.Status {
		case StatusCompleted:
			return ErrAlreadyDispensed
		case StatusCancelled:
			return ErrPrescriptionCancelled
		}

		items, err := r.GetPrescriptionItems(ctx, prescriptionID)
		if err != nil {
			return fmt.Errorf("load prescription items: %w", err)
		}
		if len(items) == 0 {
			return ErrNoLineItems
		}

		// Aggregate quantities per medicine: duplicate line items for the
		// same medicine must be validated against their combined total, not
		// each against the full stock.
		required := make(map[uuid.UUID]int, len(items))
		order := make([]uuid.UUID, 0, len(items))
		for _, it := range items {
			if _, seen := required[it.MedicineID]; !seen {
				order = append(order, it.MedicineID)
			}
			required[it.MedicineID] += it.Quantity
		}

		// Canonical lock order: ascending medicine id. Two dispensations
		// over overlapping medicine sets always acquire locks in the same
		// order and cannot deadlock.
		sort.Slice(order, func(i, j int) bool {
			return order[i].String() < order[j].String()
		})

		// Validate everything before decrementing anything.
		medicines := make(map[uuid.UUID]*Medicine, len(order))
		for _, medicineID := range order {
			m, err := r.LockMedicine(ctx, medicineID)
			if err != nil {
				return fmt.Errorf("medicine %s: %w", medicineID, err)
			}
			if m.Stock < required[medicineID] {
				return &InsufficientStockError{
					MedicineID:   m.ID,
					MedicineName: m.Name,
					Available:    m.Stock,
					Requested:    required[medicineID],
				}
			}
			medicines[medicineID] = m
		}

		for _, medicineID := range order {
			qty := required[medicineID]
			if err := r.DecrementStock(ctx, medicineID, qty); err != nil {
				return err
			}
			m := medicines[medicineID]
			changes = append(changes, StockChange{
				MedicineID:   m.ID,
				MedicineName: m.Name,
				Quantity:     qty,
				StockBefore:  m.Stock,
				StockAfter:   m.Stock - qty,
			})
		}

		now := time.Now().UTC()
		updated, err := r.MarkDispensed(ctx, prescriptionID, now)
		if err != nil {
			if errors.Is(err, ErrPrescriptionNotFound) {
				return ErrAlreadyDispensed
			}
			return fmt.Errorf("mark dispensed: %w", err)
		}

		dispensed = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordStockChanges(ctx, dispensed, changes)

	if s.publisher != nil {
		payload := map[string]any{
			"prescription_id":     dispensed.ID.String(),
			"prescription_number": dispensed.PrescriptionNumber,
			"patient_id":          dispensed.PatientID.String(),
			"items":               len(changes),
		}
		if err := s.publisher.Publish(ctx, notify.TopicPrescriptionDispensed, payload); err != nil {
			s.logger.Error().Err(err).Msg("failed to publish dispensation event")
		}
	}

	return dispensed, nil
}

// CancelPrescription voids an active prescription without touching stock.
func (s *Service) CancelPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.UpdatePrescriptionStatus(ctx, id, StatusActive, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			// Either missing or no longer active; disambiguate for the caller.
			existing, getErr := s.repo.GetPrescriptionByID(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			if existing.Status == StatusCompleted {
				return nil, ErrAlreadyDispensed
			}
			return nil, ErrPrescriptionCancelled
		}
		return nil, err
	}
	return p, nil
}

// recordStockChanges emits one audit entry per decremented medicine,
// after commit, through the non-blocking recorder.
func (s *Service) recordStockChanges(ctx context.Context, p *Prescription, changes []StockChange) {
	if s.recorder == nil {
		return
	}

	for _, c := range changes {
		s.recorder.Record(audit.Entry{
			Action:     audit.ActionUpdate,
			Resource:   "medicines",
			ResourceID: c.MedicineID.String(),
			Severity:   audit.SeverityElevated,
			Success:    true,
			Metadata: map[string]any{
				"prescription_id": p.ID.String(),
				"medicine":        c.MedicineName,
				"quantity":        c.Quantity,
				"stock_before":    c.StockBefore,
				"stock_after":     c.StockAfter,
			},
		})
	}
}
