package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

// Repository contains all DB interactions needed by the service.
type Repository interface {
	InTx(ctx context.Context, fn func(r Repository) error) error

	// LockInvoice acquires an exclusive row lock, serializing concurrent
	// settlement attempts for the same invoice.
	LockInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)

	GetInvoiceByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceItem, error)

	CreateInvoice(ctx context.Context, inv *Invoice, items []InvoiceItem) error
	SetInvoiceNumber(ctx context.Context, id uuid.UUID, number string) error

	// MarkPaid settles a pending invoice. Returns ErrInvoiceNotFound when
	// no pending row matches the id.
	MarkPaid(ctx context.Context, id uuid.UUID, method string, at time.Time) (*Invoice, error)

	UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, from, to InvoiceStatus) (*Invoice, error)
}
