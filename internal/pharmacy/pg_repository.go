package pharmacy

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

// Helpers

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var appointmentID *uuid.UUID
	var dispensedAt *time.Time

	err := row.Scan(
		&p.ID,
		&p.Seq,
		&p.PrescriptionNumber,
		&p.PatientID,
		&p.DoctorID,
		&appointmentID,
		&p.Status,
		&dispensedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}

	p.AppointmentID = appointmentID
	p.DispensedAt = dispensedAt
	return &p, nil
}

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine

	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Stock,
		&m.MinStock,
		&m.UnitPrice,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMedicineNotFound
		}
		return nil, err
	}

	return &m, nil
}

const prescriptionColumns = `id, seq, prescription_number, patient_id, doctor_id,
	appointment_id, status, dispensed_at, created_at, updated_at`

// Interface methods

func (r *PgRepository) LockPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanPrescription(row)
}

func (r *PgRepository) GetPrescriptionByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		WHERE id = $1
	`, id)
	return scanPrescription(row)
}

func (r *PgRepository) GetPrescriptionItems(ctx context.Context, prescriptionID uuid.UUID) ([]PrescriptionItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, prescription_id, medicine_id, quantity, COALESCE(dosage, '')
		FROM prescription_items
		WHERE prescription_id = $1
	`, prescriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PrescriptionItem
	for rows.Next() {
		var it PrescriptionItem
		if err := rows.Scan(&it.ID, &it.PrescriptionID, &it.MedicineID, &it.Quantity, &it.Dosage); err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *PgRepository) GetMedicineByID(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, name, stock, min_stock, unit_price, created_at, updated_at
		FROM medicines
		WHERE id = $1
	`, id)
	return scanMedicine(row)
}

func (r *PgRepository) LockMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, name, stock, min_stock, unit_price, created_at, updated_at
		FROM medicines
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanMedicine(row)
}

func (r *PgRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE medicines
		SET stock = stock - $2,
		    updated_at = now()
		WHERE id = $1
		  AND stock >= $2
	`, id, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMedicineNotFound
	}
	return nil
}

func (r *PgRepository) MarkDispensed(ctx context.Context, id uuid.UUID, at time.Time) (*Prescription, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE prescriptions
		SET status = 'completed',
		    dispensed_at = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'active'
		RETURNING `+prescriptionColumns+`
	`, id, at)
	return scanPrescription(row)
}

func (r *PgRepository) CreatePrescription(ctx context.Context, p *Prescription, items []PrescriptionItem) error {
	row := r.q.QueryRow(ctx, `
		INSERT INTO prescriptions (id, patient_id, doctor_id, appointment_id,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING seq, created_at, updated_at
	`, p.ID, p.PatientID, p.DoctorID, p.AppointmentID, p.Status)

	if err := row.Scan(&p.Seq, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}

	for i := range items {
		items[i].PrescriptionID = p.ID
		_, err := r.q.Exec(ctx, `
			INSERT INTO prescription_items (id, prescription_id, medicine_id, quantity, dosage)
			VALUES ($1, $2, $3, $4, $5)
		`, items[i].ID, items[i].PrescriptionID, items[i].MedicineID, items[i].Quantity, items[i].Dosage)
		if err != nil {
			return fmt.Errorf("insert prescription item: %w", err)
		}
	}

	return nil
}

func (r *PgRepository) SetPrescriptionNumber(ctx context.Context, id uuid.UUID, number string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE prescriptions
		SET prescription_number = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, number)
	if err != nil {
		return fmt.Errorf("set prescription number: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdatePrescriptionStatus(ctx context.Context, id uuid.UUID, from, to PrescriptionStatus) (*Prescription, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE prescriptions
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+prescriptionColumns+`
	`, id, to, from)
	return scanPrescription(row)
}
