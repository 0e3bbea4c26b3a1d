package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/careops/hospital-ops/internal/access"
	"github.com/careops/hospital-ops/internal/audit"
	"github.com/careops/hospital-ops/internal/billing"
	"github.com/careops/hospital-ops/internal/booking"
	"github.com/careops/hospital-ops/internal/pharmacy"
)

type RouterConfig struct {
	Booking        *booking.Service
	Pharmacy       *pharmacy.Service
	Billing        *billing.Service
	Recorder       audit.Recorder
	PgPool         *pgxpool.Pool
	Redis          *redis.Client
	Logger         zerolog.Logger
	Env            string
	Version        string
	AuditBodyLimit int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints sit outside the authenticated, audited surface.
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(PrincipalMiddleware)
		r.Use(audit.Middleware(cfg.Recorder, cfg.Logger, cfg.AuditBodyLimit))

		r.Route("/appointments", func(r chi.Router) {
			r.With(RequireCapability(access.CapBookAppointment)).
				Post("/", bookAppointmentHandler(cfg.Booking))
			r.With(RequireCapability(access.CapViewAppointment)).
				Get("/", listAppointmentsHandler(cfg.Booking))
			r.With(RequireCapability(access.CapViewAppointment)).
				Get("/{id}", getAppointmentHandler(cfg.Booking))

			transition := RequireCapability(access.CapTransitionAppointment)
			r.With(transition).Post("/{id}/checkin", appointmentTransitionHandler(cfg.Booking.CheckIn))
			r.With(transition).Post("/{id}/complete", appointmentTransitionHandler(cfg.Booking.Complete))
			r.With(transition).Post("/{id}/cancel", appointmentTransitionHandler(cfg.Booking.Cancel))
		})

		r.Route("/prescriptions", func(r chi.Router) {
			r.With(RequireCapability(access.CapCreatePrescription)).
				Post("/", createPrescriptionHandler(cfg.Pharmacy))
			r.With(RequireCapability(access.CapDispensePrescription)).
				Post("/{id}/dispense", dispensePrescriptionHandler(cfg.Pharmacy))
			r.With(RequireCapability(access.CapCreatePrescription)).
				Post("/{id}/cancel", cancelPrescriptionHandler(cfg.Pharmacy))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.With(RequireCapability(access.CapCreateInvoice)).
				Post("/", createInvoiceHandler(cfg.Billing))
			r.With(RequireCapability(access.CapPayInvoice)).
				Post("/{id}/pay", payInvoiceHandler(cfg.Billing))
			r.With(RequireCapability(access.CapPayInvoice)).
				Post("/{id}/cancel", cancelInvoiceHandler(cfg.Billing))
			r.With(RequireCapability(access.CapPayInvoice)).
				Get("/{id}", getInvoiceHandler(cfg.Billing))
		})
	})

	return r
}
