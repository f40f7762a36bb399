package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ja5on1in/gym-book-sub000/internal/config"
	"github.com/Ja5on1in/gym-book-sub000/internal/db"
	"github.com/Ja5on1in/gym-book-sub000/internal/outbox"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("outbox-dispatcher starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running dispatcher in env=%s interval=%s webhook=%q", cfg.Env, cfg.DispatchInterval, cfg.WebhookURL)

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

	dispatcher := outbox.NewDispatcher(pgPool, cfg.WebhookURL)

	// Run once at startup
	runOnce(rootCtx, dispatcher)

	ticker := time.NewTicker(cfg.DispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping dispatcher")
			return
		case <-ticker.C:
			runOnce(rootCtx, dispatcher)
		}
	}
}

func runOnce(ctx context.Context, d *outbox.Dispatcher) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := d.RunOnce(runCtx); err != nil {
		log.Printf("dispatch run error: %v", err)
		return
	}
	log.Printf("dispatch run complete in %s", time.Since(start))
}
