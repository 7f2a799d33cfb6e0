package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic-scheduling/internal/appointment"
)

type RouterConfig struct {
	Service  *appointment.Service
	DataFile string
	PgPool   *pgxpool.Pool // nil unless the directory runs on Postgres
	Env      string
	Version  string
	Logger   zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.DataFile, cfg.PgPool, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Doctor-side schedule surface
	r.Post("/doctors/{doctorID}/schedule/generate", generateWeekHandler(cfg.Service))
	r.Get("/doctors/{doctorID}/appointments", doctorAppointmentsHandler(cfg.Service))
	r.Post("/doctors/{doctorID}/encounters", recordEncounterHandler(cfg.Service))

	// Patient-side surface
	r.Get("/patients/{patientID}/appointments", patientAppointmentsHandler(cfg.Service))

	// Appointment lifecycle
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/book", bookAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/block", blockAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/unblock", unblockAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/outcome", recordOutcomeHandler(cfg.Service))
	r.Post("/appointments/{id}/prescriptions/{medicine}/dispense", dispensePrescriptionHandler(cfg.Service))

	return r
}
