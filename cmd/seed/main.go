package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/careops/hospital-ops/internal/db"
	"github.com/careops/hospital-ops/internal/sequence"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "seed").Logger()
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		logger.Fatal().Err(err).Msg("apply schema")
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDoctors(context.Background(), pool, 50, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedPatients(context.Background(), pool, 2000, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedMedicines(context.Background(), pool, 300, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed medicines")
	}
	if err := seedPrescriptions(context.Background(), pool, 400, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed prescriptions")
	}

	logger.Info().Msg("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding doctors")

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, available, created_at, updated_at)
			VALUES ($1, $2, $3, true, now(), now())
		`, id, name, spec)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Info().Msg("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500
	year := time.Now().Year()

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			var seq int64
			err := tx.QueryRow(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
				RETURNING seq
			`, id, name, email).Scan(&seq)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			mrn := sequence.MedicalRecordNumber(year, seq)
			if _, err := tx.Exec(ctx, `
				UPDATE patients SET medical_record_number = $2 WHERE id = $1
			`, id, mrn); err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info().Int("seeded", end).Int("total", count).Msg("patients progress")
	}

	logger.Info().Msg("patients seeded")
	return nil
}

func seedMedicines(ctx context.Context, pool *pgxpool.Pool, count int, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding medicines")

	stems := []string{
		"Amoxicillin", "Paracetamol", "Ibuprofen", "Metformin", "Amlodipine",
		"Omeprazole", "Atorvastatin", "Losartan", "Cetirizine", "Azithromycin",
		"Salbutamol", "Prednisolone", "Ciprofloxacin", "Ranitidine", "Diclofenac",
	}
	doses := []string{"100mg", "200mg", "250mg", "500mg", "10mg", "20mg", "5mg"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := stems[gofakeit.Number(0, len(stems)-1)] + " " +
			doses[gofakeit.Number(0, len(doses)-1)] + " " + gofakeit.LetterN(4)
		stock := gofakeit.Number(0, 500)
		minStock := gofakeit.Number(5, 50)
		price := gofakeit.Price(1, 200)

		_, err := tx.Exec(ctx, `
			INSERT INTO medicines (id, name, stock, min_stock, unit_price, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, name, stock, minStock, price)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Info().Msg("medicines seeded")
	return nil
}

func seedPrescriptions(ctx context.Context, pool *pgxpool.Pool, count int, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding prescriptions")

	patientIDs, err := collectIDs(ctx, pool, `SELECT id FROM patients LIMIT 500`)
	if err != nil {
		return err
	}
	doctorIDs, err := collectIDs(ctx, pool, `SELECT id FROM doctors`)
	if err != nil {
		return err
	}
	medicineIDs, err := collectIDs(ctx, pool, `SELECT id FROM medicines LIMIT 100`)
	if err != nil {
		return err
	}

	dosages := []string{
		"1 tablet once daily",
		"1 tablet twice daily",
		"2 tablets every 8 hours",
		"1 capsule at bedtime",
		"5ml three times daily",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		patientID := patientIDs[gofakeit.Number(0, len(patientIDs)-1)]
		doctorID := doctorIDs[gofakeit.Number(0, len(doctorIDs)-1)]

		var seq int64
		var createdAt time.Time
		err := tx.QueryRow(ctx, `
			INSERT INTO prescriptions (id, patient_id, doctor_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, 'active', now(), now())
			RETURNING seq, created_at
		`, id, patientID, doctorID).Scan(&seq, &createdAt)
		if err != nil {
			return err
		}

		rx := sequence.PrescriptionNumber(createdAt, seq)
		if _, err := tx.Exec(ctx, `
			UPDATE prescriptions SET prescription_number = $2 WHERE id = $1
		`, id, rx); err != nil {
			return err
		}

		used := make(map[uuid.UUID]bool)
		for j := 0; j < gofakeit.Number(1, 3); j++ {
			medicineID := medicineIDs[gofakeit.Number(0, len(medicineIDs)-1)]
			if used[medicineID] {
				continue
			}
			used[medicineID] = true
			dosage := dosages[gofakeit.Number(0, len(dosages)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO prescription_items (id, prescription_id, medicine_id, quantity, dosage)
				VALUES ($1, $2, $3, $4, $5)
			`, uuid.New(), id, medicineID, gofakeit.Number(1, 5), dosage)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Info().Msg("prescriptions seeded")
	return nil
}

func collectIDs(ctx context.Context, pool *pgxpool.Pool, query string) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
