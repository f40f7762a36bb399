package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ja5on1in/gym-book-sub000/internal/db"
	"github.com/Ja5on1in/gym-book-sub000/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedCoaches(context.Background(), pool, 12); err != nil {
		log.Fatalf("seed coaches: %v", err)
	}
	if err := seedAccounts(context.Background(), pool, 300); err != nil {
		log.Fatalf("seed credit accounts: %v", err)
	}

	log.Println("seed complete")
}

func seedCoaches(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d coaches", count)

	roles := []string{"coach", "coach", "coach", "receptionist", "manager"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		role := roles[gofakeit.Number(0, len(roles)-1)]

		// Mon-Fri by default, a few coaches also work Saturdays.
		workDays := []int{1, 2, 3, 4, 5}
		if gofakeit.Bool() {
			workDays = append(workDays, 6)
		}

		daily := map[int]schedule.DayHours{}
		if gofakeit.Bool() {
			// Late start once a week.
			daily[gofakeit.Number(1, 5)] = schedule.DayHours{Start: "12:00", End: "21:00"}
		}
		dailyJSON, err := json.Marshal(daily)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO coaches (id, name, role, work_days, work_start, work_end, daily_hours, off_dates, created_at, updated_at)
			VALUES ($1, $2, $3, $4, '09:00', '21:00', $5, '{}', now(), now())
		`, id, name, role, workDays, dailyJSON)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func seedAccounts(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d credit accounts", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		phone := gofakeit.Phone()

		// Most members carry an identity link; a few legacy rows do not and
		// exercise the name+phone fallback match.
		externalID := ""
		if gofakeit.Number(0, 9) > 1 {
			externalID = gofakeit.UUID()
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO credit_accounts (id, name, phone, external_user_id, private_credits, group_credits, last_updated)
			VALUES ($1, $2, $3, $4, $5, $6, now())
		`, id, name, phone, externalID, gofakeit.Number(0, 20), gofakeit.Number(0, 30))
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
