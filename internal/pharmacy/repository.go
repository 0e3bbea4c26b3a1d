package pharmacy

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrMedicineNotFound     = errors.New("medicine not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// InTx runs fn against a transaction-scoped repository; row locks taken
	// inside fn are held until fn returns.
	InTx(ctx context.Context, fn func(r Repository) error) error

	// LockPrescription acquires an exclusive row lock on the prescription,
	// serializing concurrent dispensation attempts for it.
	LockPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error)

	GetPrescriptionByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	GetPrescriptionItems(ctx context.Context, prescriptionID uuid.UUID) ([]PrescriptionItem, error)

	GetMedicineByID(ctx context.Context, id uuid.UUID) (*Medicine, error)

	// LockMedicine acquires an exclusive row lock on the medicine. Callers
	// must lock medicines in ascending id order to avoid deadlocks between
	// dispensations with overlapping medicine sets.
	LockMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error)

	// DecrementStock subtracts quantity from the medicine's stock. Must be
	// called with the medicine row lock held.
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error

	// MarkDispensed flips the prescription to completed with the given
	// timestamp, only if it is still active.
	MarkDispensed(ctx context.Context, id uuid.UUID, at time.Time) (*Prescription, error)

	CreatePrescription(ctx context.Context, p *Prescription, items []PrescriptionItem) error
	SetPrescriptionNumber(ctx context.Context, id uuid.UUID, number string) error
	UpdatePrescriptionStatus(ctx context.Context, id uuid.UUID, from, to PrescriptionStatus) (*Prescription, error)
}
