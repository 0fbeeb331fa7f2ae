package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/pkg/logger"
)

// OutboxProcessor delivers one batch of pending events.
type OutboxProcessor interface {
	ProcessBatch(ctx context.Context) (int, error)
	PurgePublished(ctx context.Context, retention time.Duration) (int64, error)
}

// ExpiredKeyCleaner drops idempotency keys past their TTL.
type ExpiredKeyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// StatsLogger reports connection pool usage.
type StatsLogger interface {
	LogStats(ctx context.Context)
}

// WorkerConfig holds the loop intervals.
type WorkerConfig struct {
	OutboxInterval  time.Duration
	CleanupInterval time.Duration
	OutboxRetention time.Duration
}

// Worker runs the outbox relay and the periodic cleanups.
type Worker struct {
	cfg         WorkerConfig
	outbox      OutboxProcessor
	idempotency ExpiredKeyCleaner
	stats       StatsLogger
	log         *logger.Logger
}

// NewWorker creates a worker.
func NewWorker(cfg WorkerConfig, outbox OutboxProcessor, idempotency ExpiredKeyCleaner, stats StatsLogger, log *logger.Logger) *Worker {
	if cfg.OutboxInterval <= 0 {
		cfg.OutboxInterval = 2 * time.Second
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	return &Worker{
		cfg:         cfg,
		outbox:      outbox,
		idempotency: idempotency,
		stats:       stats,
		log:         log.WithComponent("worker"),
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ctx = logger.WithLogger(ctx, w.log)

	ticker := time.NewTicker(w.cfg.OutboxInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(w.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainOutbox(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

// drainOutbox processes batches until one comes back short.
func (w *Worker) drainOutbox(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.outbox.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n > 0 {
			w.log.Debugw("processed outbox batch", "count", n)
		}
		if n == 0 {
			return
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if w.cfg.OutboxRetention > 0 {
		n, err := w.outbox.PurgePublished(ctx, w.cfg.OutboxRetention)
		if err != nil {
			w.log.Errorw("failed to purge outbox", "error", err)
		} else if n > 0 {
			w.log.Infow("purged published outbox messages", "count", n)
		}
	}

	n, err := w.idempotency.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("failed to clean up idempotency keys", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}

	if w.stats != nil {
		w.stats.LogStats(ctx)
	}
}

// logEvent is the default outbox handler: it writes each change event to
// the structured log. A payload that does not decode is retried until the
// relay marks it failed.
func logEvent(ctx context.Context, msg *postgres.OutboxMessage) error {
	var ev postgres.ChangeEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return fmt.Errorf("decode change event %s: %w", msg.ID, err)
	}
	logger.Info(ctx, "document event",
		"event_type", ev.EventType,
		"entity_type", ev.EntityType,
		"entity_id", ev.EntityID,
		"number", ev.Number,
		"company_id", ev.CompanyID,
		"action", ev.Action,
		"user_id", ev.UserID,
		"occurred_at", ev.OccurredAt,
	)
	return nil
}
