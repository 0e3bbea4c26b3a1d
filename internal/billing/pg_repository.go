package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careops/hospital-ops/internal/db"
)

type PgRepository struct {
	q    db.Querier
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{q: pool, pool: pool}
}

func (r *PgRepository) InTx(ctx context.Context, fn func(r Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&PgRepository{q: tx})
	})
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var appointmentID *uuid.UUID
	var paymentMethod *string
	var paidAt *time.Time

	err := row.Scan(
		&inv.ID,
		&inv.Seq,
		&inv.InvoiceNumber,
		&inv.PatientID,
		&appointmentID,
		&inv.TotalAmount,
		&inv.Status,
		&paymentMethod,
		&paidAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}

	inv.AppointmentID = appointmentID
	inv.PaymentMethod = paymentMethod
	inv.PaidAt = paidAt
	return &inv, nil
}

const invoiceColumns = `id, seq, invoice_number, patient_id, appointment_id,
	total_amount, status, payment_method, paid_at, created_at, updated_at`

func (r *PgRepository) LockInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanInvoice(row)
}

func (r *PgRepository) GetInvoiceByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id = $1
	`, id)
	return scanInvoice(row)
}

func (r *PgRepository) GetInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price, subtotal
		FROM invoice_items
		WHERE invoice_id = $1
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *PgRepository) CreateInvoice(ctx context.Context, inv *Invoice, items []InvoiceItem) error {
	row := r.q.QueryRow(ctx, `
		INSERT INTO invoices (id, patient_id, appointment_id, total_amount,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING seq, created_at, updated_at
	`, inv.ID, inv.PatientID, inv.AppointmentID, inv.TotalAmount, inv.Status)

	if err := row.Scan(&inv.Seq, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	for i := range items {
		items[i].InvoiceID = inv.ID
		_, err := r.q.Exec(ctx, `
			INSERT INTO invoice_items (id, invoice_id, description, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, items[i].ID, items[i].InvoiceID, items[i].Description, items[i].Quantity,
			items[i].UnitPrice, items[i].Subtotal)
		if err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}

	return nil
}

func (r *PgRepository) SetInvoiceNumber(ctx context.Context, id uuid.UUID, number string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE invoices
		SET invoice_number = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, number)
	if err != nil {
		return fmt.Errorf("set invoice number: %w", err)
	}
	return nil
}

func (r *PgRepository) MarkPaid(ctx context.Context, id uuid.UUID, method string, at time.Time) (*Invoice, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE invoices
		SET status = 'paid',
		    payment_method = $2,
		    paid_at = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'pending'
		RETURNING `+invoiceColumns+`
	`, id, method, at)
	return scanInvoice(row)
}

func (r *PgRepository) UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, from, to InvoiceStatus) (*Invoice, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE invoices
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+invoiceColumns+`
	`, id, to, from)
	return scanInvoice(row)
}
