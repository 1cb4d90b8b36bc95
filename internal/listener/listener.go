// Package listener provides a Postgres LISTEN/NOTIFY consumer for archived
// runs. It holds a dedicated pgx connection (not from the pool) listening on
// the `run_saved` channel and relays each notification as a run.completed
// event, so runs stored by any process (API or CLI) reach subscribers.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/copa-sim/internal/events"
)

const (
	channel          = "run_saved"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// RunSaved is the JSON payload from pg_notify('run_saved', ...).
type RunSaved struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	Surprise  int       `json:"surprise"`
	Seed      string    `json:"seed"`
	Champion  string    `json:"champion"`
	RunnerUp  string    `json:"runner_up"`
	CreatedAt time.Time `json:"created_at"`
}

// Event converts the notification into the published event.
func (r RunSaved) Event() events.Event {
	seed, _ := strconv.ParseUint(r.Seed, 10, 64)
	return events.Event{
		Type:      events.TypeRunCompleted,
		RunID:     r.ID,
		Format:    r.Format,
		Surprise:  r.Surprise,
		Seed:      seed,
		Champion:  r.Champion,
		RunnerUp:  r.RunnerUp,
		Timestamp: r.CreatedAt,
	}
}

// Start opens a dedicated connection and listens on the run_saved channel.
// It reconnects automatically on connection loss. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, pub events.Publisher, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, pub, logger)
		if ctx.Err() != nil {
			logger.Info("Run listener stopped (context cancelled)")
			return
		}

		logger.Error("Run listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, pub events.Publisher, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Run listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		Relay(ctx, notification.Payload, pub, logger)
	}
}

// Relay decodes one run_saved payload and publishes it. Malformed payloads
// are logged and dropped.
func Relay(ctx context.Context, payload string, pub events.Publisher, logger *slog.Logger) {
	var saved RunSaved
	if err := json.Unmarshal([]byte(payload), &saved); err != nil {
		logger.Warn("Failed to parse run_saved payload", "payload", payload, "error", err)
		return
	}

	logger.Info("Run saved", "run", saved.ID, "format", saved.Format, "champion", saved.Champion)
	if err := pub.Publish(ctx, saved.Event()); err != nil {
		logger.Warn("Failed to publish run event", "run", saved.ID, "error", err)
	}
}
