package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Ja5on1in/gym-book-sub000/internal/booking"
	"github.com/Ja5on1in/gym-book-sub000/internal/ledger"
)

type RouterConfig struct {
	Scheduler *booking.Scheduler
	Lifecycle *booking.Lifecycle
	Bookings  booking.Repository
	Ledger    *ledger.Service
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(ActorMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Booking and block creation
	r.Post("/bookings", createBookingHandler(cfg.Scheduler))
	r.Post("/blocks", saveBlockHandler(cfg.Scheduler))

	// Appointment lifecycle
	r.Post("/appointments/{id}/check-in", checkInHandler(cfg.Lifecycle))
	r.Post("/appointments/{id}/complete", completeHandler(cfg.Lifecycle))
	r.Post("/appointments/{id}/reverse", reverseHandler(cfg.Lifecycle))
	r.Post("/appointments/{id}/cancel", cancelHandler(cfg.Lifecycle))
	r.Post("/appointments/cancel-batch", cancelBatchHandler(cfg.Lifecycle))
	r.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Lifecycle))

	// Day views
	r.Get("/coaches/{id}/schedule", coachScheduleHandler(cfg.Bookings))

	// Credit ledger
	r.Get("/accounts/{id}", getAccountHandler(cfg.Ledger))
	r.Post("/accounts/{id}/adjust", adjustAccountHandler(cfg.Ledger))
	r.Post("/accounts/{id}/balance", setBalanceHandler(cfg.Ledger))

	return r
}
