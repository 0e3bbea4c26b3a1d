package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the schema. The partial unique index on appointments is
// the datastore backstop for the one-active-appointment-per-slot invariant;
// the seq columns feed the display-number formatters.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS patients (
			id UUID PRIMARY KEY,
			seq BIGSERIAL,
			medical_record_number TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			email TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS doctors (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			specialty TEXT,
			available BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY,
			seq BIGSERIAL,
			appointment_number TEXT NOT NULL DEFAULT '',
			patient_id UUID NOT NULL REFERENCES patients(id),
			doctor_id UUID NOT NULL REFERENCES doctors(id),
			appointment_date DATE NOT NULL,
			appointment_time TEXT NOT NULL,
			type TEXT NOT NULL,
			reason TEXT,
			symptoms TEXT[],
			status TEXT NOT NULL,
			queue_token TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_slot
			ON appointments (doctor_id, appointment_date, appointment_time)
			WHERE status NOT IN ('cancelled', 'no_show')`,
		`CREATE TABLE IF NOT EXISTS medicines (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			stock INTEGER NOT NULL CHECK (stock >= 0),
			min_stock INTEGER NOT NULL DEFAULT 0,
			unit_price NUMERIC(10,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS prescriptions (
			id UUID PRIMARY KEY,
			seq BIGSERIAL,
			prescription_number TEXT NOT NULL DEFAULT '',
			patient_id UUID NOT NULL REFERENCES patients(id),
			doctor_id UUID NOT NULL REFERENCES doctors(id),
			appointment_id UUID REFERENCES appointments(id),
			status TEXT NOT NULL,
			dispensed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS prescription_items (
			id UUID PRIMARY KEY,
			prescription_id UUID NOT NULL REFERENCES prescriptions(id),
			medicine_id UUID NOT NULL REFERENCES medicines(id),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			dosage TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS invoices (
			id UUID PRIMARY KEY,
			seq BIGSERIAL,
			invoice_number TEXT NOT NULL DEFAULT '',
			patient_id UUID NOT NULL REFERENCES patients(id),
			appointment_id UUID REFERENCES appointments(id),
			total_amount NUMERIC(10,2) NOT NULL,
			status TEXT NOT NULL,
			payment_method TEXT,
			paid_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS invoice_items (
			id UUID PRIMARY KEY,
			invoice_id UUID NOT NULL REFERENCES invoices(id),
			description TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 1,
			unit_price NUMERIC(10,2) NOT NULL,
			subtotal NUMERIC(10,2) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID,
			action TEXT NOT NULL,
			resource TEXT NOT NULL,
			resource_id TEXT,
			method TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			ip_address TEXT,
			user_agent TEXT,
			request_body JSONB,
			response_status INTEGER,
			severity TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	return nil
}
