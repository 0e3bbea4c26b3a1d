package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careops/hospital-ops/internal/notify"
)

// fakeRepo is an in-memory Repository. InTx serializes transactions and
// restores a snapshot when fn fails, mirroring row locking and rollback.
type fakeRepo struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	invoices map[uuid.UUID]*Invoice
	items    map[uuid.UUID][]InvoiceItem
	nextSeq  int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		invoices: make(map[uuid.UUID]*Invoice),
		items:    make(map[uuid.UUID][]InvoiceItem),
	}
}

func (f *fakeRepo) addInvoice(status InvoiceStatus, total float64) uuid.UUID {
	id := uuid.New()
	f.nextSeq++
	f.invoices[id] = &Invoice{
		ID:            id,
		Seq:           f.nextSeq,
		InvoiceNumber: fmt.Sprintf("INV-20260828-%04d", f.nextSeq),
		PatientID:     uuid.New(),
		TotalAmount:   total,
		Status:        status,
		CreatedAt:     time.Now(),
	}
	return id
}

func (f *fakeRepo) InTx(ctx context.Context, fn func(Repository) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	snapshot := make(map[uuid.UUID]*Invoice, len(f.invoices))
	for id, inv := range f.invoices {
		cp := *inv
		snapshot[id] = &cp
	}
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.invoices = snapshot
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeRepo) LockInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return f.GetInvoiceByID(ctx, id)
}

func (f *fakeRepo) GetInvoiceByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeRepo) GetInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]InvoiceItem(nil), f.items[invoiceID]...), nil
}

func (f *fakeRepo) CreateInvoice(ctx context.Context, inv *Invoice, items []InvoiceItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSeq++
	inv.Seq = f.nextSeq
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	cp := *inv
	f.invoices[inv.ID] = &cp
	f.items[inv.ID] = append([]InvoiceItem(nil), items...)
	return nil
}

func (f *fakeRepo) SetInvoiceNumber(ctx context.Context, id uuid.UUID, number string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.InvoiceNumber = number
	return nil
}

func (f *fakeRepo) MarkPaid(ctx context.Context, id uuid.UUID, method string, at time.Time) (*Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok || inv.Status != StatusPending {
		return nil, ErrInvoiceNotFound
	}
	inv.Status = StatusPaid
	inv.PaymentMethod = &method
	inv.PaidAt = &at
	cp := *inv
	return &cp, nil
}

func (f *fakeRepo) UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, from, to InvoiceStatus) (*Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok || inv.Status != from {
		return nil, ErrInvoiceNotFound
	}
	inv.Status = to
	cp := *inv
	return &cp, nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, notify.Noop{}, zerolog.Nop())
}

func TestCreateInvoice_ComputesTotalsAndMintsNumber(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	detail, err := svc.CreateInvoice(context.Background(), uuid.New(), nil, []InvoiceItem{
		{Description: "Consultation", Quantity: 1, UnitPrice: 150},
		{Description: "Blood panel", Quantity: 2, UnitPrice: 45.5},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if detail.Status != StatusPending {
		t.Errorf("status = %q, want pending", detail.Status)
	}
	if detail.TotalAmount != 241 {
		t.Errorf("total = %v, want 241", detail.TotalAmount)
	}
	if detail.Items[1].Subtotal != 91 {
		t.Errorf("item subtotal = %v, want 91", detail.Items[1].Subtotal)
	}

	want := fmt.Sprintf("INV-%s-%04d", detail.CreatedAt.Format("20060102"), detail.Seq)
	if detail.InvoiceNumber != want {
		t.Errorf("invoice number = %q, want %q", detail.InvoiceNumber, want)
	}

	if _, err := svc.CreateInvoice(context.Background(), uuid.New(), nil, nil); !errors.Is(err, ErrNoInvoiceItems) {
		t.Fatalf("empty invoice error = %v, want ErrNoInvoiceItems", err)
	}
}

func TestPay(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	id := repo.addInvoice(StatusPending, 500)

	inv, err := svc.Pay(ctx, id, "card")
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if inv.Status != StatusPaid {
		t.Errorf("status = %q, want paid", inv.Status)
	}
	if inv.PaymentMethod == nil || *inv.PaymentMethod != "card" {
		t.Errorf("payment method = %v, want card", inv.PaymentMethod)
	}
	if inv.PaidAt == nil {
		t.Error("expected paid_at to be set")
	}

	// Second settlement attempt conflicts.
	if _, err := svc.Pay(ctx, id, "cash"); !errors.Is(err, ErrInvoiceAlreadyPaid) {
		t.Fatalf("double pay error = %v, want ErrInvoiceAlreadyPaid", err)
	}

	cancelled := repo.addInvoice(StatusCancelled, 100)
	if _, err := svc.Pay(ctx, cancelled, "card"); !errors.Is(err, ErrInvoiceCancelled) {
		t.Fatalf("pay cancelled error = %v, want ErrInvoiceCancelled", err)
	}

	if _, err := svc.Pay(ctx, uuid.New(), "card"); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("pay missing error = %v, want ErrInvoiceNotFound", err)
	}
}

func TestCancelInvoice(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	pending := repo.addInvoice(StatusPending, 100)
	paid := repo.addInvoice(StatusPaid, 100)

	inv, err := svc.CancelInvoice(ctx, pending)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if inv.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", inv.Status)
	}

	if _, err := svc.CancelInvoice(ctx, paid); !errors.Is(err, ErrInvoiceAlreadyPaid) {
		t.Fatalf("cancel paid error = %v, want ErrInvoiceAlreadyPaid", err)
	}
}

func TestGetInvoice(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	detail, err := svc.CreateInvoice(ctx, uuid.New(), nil, []InvoiceItem{
		{Description: "Consultation", Quantity: 1, UnitPrice: 150},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := svc.GetInvoice(ctx, detail.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.InvoiceNumber != detail.InvoiceNumber {
		t.Errorf("invoice number = %q, want %q", got.InvoiceNumber, detail.InvoiceNumber)
	}
	if len(got.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(got.Items))
	}

	if _, err := svc.GetInvoice(ctx, uuid.New()); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("get missing error = %v, want ErrInvoiceNotFound", err)
	}
}
