package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careops/hospital-ops/internal/notify"
	"github.com/careops/hospital-ops/internal/sequence"
)

var (
	ErrInvoiceAlreadyPaid = errors.New("invoice already paid")
	ErrInvoiceCancelled   = errors.New("invoice is cancelled")
	ErrNoInvoiceItems     = errors.New("invoice has no line items")
)

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

// CreateInvoice records a pending invoice with its line items and mints
// the INV display number from the row's serial inside the same transaction.
func (s *Service) CreateInvoice(ctx context.Context, patientID uuid.UUID, appointmentID *uuid.UUID, items []InvoiceItem) (*InvoiceDetail, error) {
	if len(items) == 0 {
		return nil, ErrNoInvoiceItems
	}

	var total float64
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		if items[i].Quantity <= 0 {
			items[i].Quantity = 1
		}
		items[i].Subtotal = float64(items[i].Quantity) * items[i].UnitPrice
		total += items[i].Subtotal
	}

	inv := &Invoice{
		ID:            uuid.New(),
		PatientID:     patientID,
		AppointmentID: appointmentID,
		TotalAmount:   total,
		Status:        StatusPending,
	}

	err := s.repo.InTx(ctx, func(r Repository) error {
		if err := r.CreateInvoice(ctx, inv, items); err != nil {
			return err
		}
		inv.InvoiceNumber = sequence.InvoiceNumber(inv.CreatedAt, inv.Seq)
		return r.SetInvoiceNumber(ctx, inv.ID, inv.InvoiceNumber)
	})
	if err != nil {
		return nil, err
	}

	return &InvoiceDetail{Invoice: *inv, Items: items}, nil
}

// Pay settles a pending invoice. The invoice row lock taken inside the
// transaction makes concurrent payment attempts serialize: exactly one
// succeeds, the rest see the already-paid conflict.
func (s *Service) Pay(ctx context.Context, id uuid.UUID, method string) (*Invoice, error) {
	var paid *Invoice

	err := s.repo.InTx(ctx, func(r Repository) error {
		inv, err := r.LockInvoice(ctx, id)
		if err != nil {
			return err
		}

		switch inv.Status {
		case StatusPaid:
			return ErrInvoiceAlreadyPaid
		case StatusCancelled:
			return ErrInvoiceCancelled
		}

		updated, err := r.MarkPaid(ctx, id, method, time.Now().UTC())
		if err != nil {
			return err
		}

		paid = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		payload := map[string]any{
			"invoice_id":     paid.ID.String(),
			"invoice_number": paid.InvoiceNumber,
			"patient_id":     paid.PatientID.String(),
			"amount":         paid.TotalAmount,
			"method":         method,
		}
		if err := s.publisher.Publish(ctx, notify.TopicInvoicePaid, payload); err != nil {
			s.logger.Error().Err(err).Msg("failed to publish invoice paid event")
		}
	}

	return paid, nil
}

// CancelInvoice voids a pending invoice.
func (s *Service) CancelInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.UpdateInvoiceStatus(ctx, id, StatusPending, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			existing, getErr := s.repo.GetInvoiceByID(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			if existing.Status == StatusPaid {
				return nil, ErrInvoiceAlreadyPaid
			}
			return nil, ErrInvoiceCancelled
		}
		return nil, err
	}
	return inv, nil
}

// GetInvoice retrieves an invoice with its line items.
func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDetail, error) {
	inv, err := s.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetInvoiceItems(ctx, id)
	if err != nil {
		return nil, err
	}

	return &InvoiceDetail{Invoice: *inv, Items: items}, nil
}
