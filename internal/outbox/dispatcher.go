package outbox

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Dispatcher polls the outbox table and posts pending event payloads to the
// configured webhook. Delivery is fire-and-forget from the core's point of
// view: a failed POST is logged and the row retried on the next tick.
type Dispatcher struct {
	pool       *pgxpool.Pool
	webhookURL string
	client     *http.Client
	batchSize  int
}

func NewDispatcher(pool *pgxpool.Pool, webhookURL string) *Dispatcher {
	return &Dispatcher{
		pool:       pool,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
		batchSize:  50,
	}
}

// RunOnce drains up to one batch of pending events.
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	rows, err := d.pool.Query(ctx, `
		SELECT id, event_type, payload
		FROM outbox_events
		WHERE dispatched_at IS NULL
		ORDER BY id
		LIMIT $1
	`, d.batchSize)
	if err != nil {
		return fmt.Errorf("load pending events: %w", err)
	}

	type pending struct {
		id        int64
		eventType string
		payload   []byte
	}
	var batch []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.eventType, &p.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan pending event: %w", err)
		}
		batch = append(batch, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range batch {
		if d.webhookURL != "" {
			if err := d.post(ctx, p.payload); err != nil {
				log.Printf("webhook delivery failed for event %d (%s), will retry: %v", p.id, p.eventType, err)
				continue
			}
		}
		if _, err := d.pool.Exec(ctx, `
			UPDATE outbox_events SET dispatched_at = now() WHERE id = $1
		`, p.id); err != nil {
			log.Printf("mark event %d dispatched: %v", p.id, err)
		}
	}

	return nil
}

func (d *Dispatcher) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
