package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ja5on1in/gym-book-sub000/internal/api"
	"github.com/Ja5on1in/gym-book-sub000/internal/audit"
	"github.com/Ja5on1in/gym-book-sub000/internal/booking"
	"github.com/Ja5on1in/gym-book-sub000/internal/config"
	"github.com/Ja5on1in/gym-book-sub000/internal/db"
	"github.com/Ja5on1in/gym-book-sub000/internal/ledger"
	redisclient "github.com/Ja5on1in/gym-book-sub000/internal/redis"
)

const version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	auditLog := audit.NewPgLogger(pgPool)
	bookingRepo := booking.NewPgRepository(pgPool)
	ledgerRepo := ledger.NewPgRepository(pgPool)
	credits := ledger.NewService(ledgerRepo, auditLog)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	scheduler := booking.NewScheduler(bookingRepo, credits, locker, auditLog, nil)
	lifecycle := booking.NewLifecycle(bookingRepo, credits, auditLog, cfg.CancelNotice)

	handler := api.NewRouter(api.RouterConfig{
		Scheduler: scheduler,
		Lifecycle: lifecycle,
		Bookings:  bookingRepo,
		Ledger:    credits,
		PgPool:    pgPool,
		Redis:     rdb,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
