// Command simulate hammers a running api-server with concurrent booking
// requests for a deliberately small set of doctor/date/time slots, then
// checks in Postgres that no slot ended up with more than one active
// appointment.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/careops/hospital-ops/internal/db"
)

type simConfig struct {
	apiBaseURL  string
	postgresDSN string
	workers     int
	duration    time.Duration
	doctorLimit int
	slotTimes   []string
}

type metrics struct {
	total    int64
	booked   int64
	conflict int64
	errors   int64
}

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "simulate").Logger()

	cfg := loadSimConfig()
	if cfg.postgresDSN == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.postgresDSN)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	patients, err := loadIDs(pool, `SELECT id FROM patients LIMIT 500`)
	if err != nil {
		logger.Fatal().Err(err).Msg("load patients")
	}
	doctors, err := loadIDs(pool, fmt.Sprintf(`SELECT id FROM doctors WHERE available LIMIT %d`, cfg.doctorLimit))
	if err != nil {
		logger.Fatal().Err(err).Msg("load doctors")
	}
	if len(patients) == 0 || len(doctors) == 0 {
		logger.Fatal().Msg("no seed data, run cmd/seed first")
	}

	adminID := uuid.New().String()
	day := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	logger.Info().
		Int("workers", cfg.workers).
		Dur("duration", cfg.duration).
		Int("doctors", len(doctors)).
		Strs("slot_times", cfg.slotTimes).
		Msg("simulation starting")

	var m metrics
	client := &http.Client{Timeout: 10 * time.Second}
	deadline := time.Now().Add(cfg.duration)

	var wg sync.WaitGroup
	for w := 0; w < cfg.workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for time.Now().Before(deadline) {
				body, _ := json.Marshal(map[string]any{
					"patient_id":       patients[rng.Intn(len(patients))].String(),
					"doctor_id":        doctors[rng.Intn(len(doctors))].String(),
					"appointment_date": day,
					"appointment_time": cfg.slotTimes[rng.Intn(len(cfg.slotTimes))],
					"type":             "consultation",
				})

				req, err := http.NewRequest(http.MethodPost, cfg.apiBaseURL+"/api/v1/appointments", bytes.NewReader(body))
				if err != nil {
					atomic.AddInt64(&m.errors, 1)
					continue
				}
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("X-User-Id", adminID)
				req.Header.Set("X-User-Role", "admin")

				atomic.AddInt64(&m.total, 1)
				resp, err := client.Do(req)
				if err != nil {
					atomic.AddInt64(&m.errors, 1)
					continue
				}
				_ = resp.Body.Close()

				switch resp.StatusCode {
				case http.StatusCreated:
					atomic.AddInt64(&m.booked, 1)
				case http.StatusConflict:
					atomic.AddInt64(&m.conflict, 1)
				default:
					atomic.AddInt64(&m.errors, 1)
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	logger.Info().
		Int64("total", m.total).
		Int64("booked", m.booked).
		Int64("conflict", m.conflict).
		Int64("errors", m.errors).
		Msg("simulation complete")

	// The invariant check: every (doctor, date, time) tuple holds at most
	// one active appointment no matter how hard it was contended.
	var violations int
	err = pool.QueryRow(context.Background(), `
		SELECT count(*)
		FROM (
			SELECT doctor_id, appointment_date, appointment_time
			FROM appointments
			WHERE status NOT IN ('cancelled', 'no_show')
			GROUP BY doctor_id, appointment_date, appointment_time
			HAVING count(*) > 1
		) dup
	`).Scan(&violations)
	if err != nil {
		logger.Fatal().Err(err).Msg("violation check failed")
	}

	if violations > 0 {
		logger.Fatal().Int("violations", violations).Msg("double-booked slots detected")
	}
	logger.Info().Msg("no double-booked slots detected")
}

func loadSimConfig() simConfig {
	cfg := simConfig{
		apiBaseURL:  envOr("API_BASE_URL", "http://127.0.0.1:8080"),
		postgresDSN: os.Getenv("POSTGRES_DSN"),
		workers:     envIntOr("SIM_WORKERS", 20),
		duration:    envDurationOr("SIM_DURATION", 30*time.Second),
		doctorLimit: envIntOr("SIM_DOCTORS", 5),
		slotTimes:   []string{"09:00", "09:30", "10:00", "10:30", "11:00"},
	}
	return cfg
}

func loadIDs(pool *pgxpool.Pool, query string) ([]uuid.UUID, error) {
	rows, err := pool.Query(context.Background(), query)
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

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
