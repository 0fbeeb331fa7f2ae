package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/id"
	"stockflow/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxMessage is one change event waiting for delivery.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	CompanyID     id.ID        `db:"company_id"`
	AggregateType string       `db:"aggregate_type"` // stock_request, delivery_note, pick_list
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"` // delivery_note.dispatched
	Payload       []byte       `db:"payload"`    // ChangeEvent as JSON
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// OutboxHandler delivers one message; an error schedules a retry.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxHandlerFunc adapts a function to OutboxHandler.
type OutboxHandlerFunc func(ctx context.Context, msg *OutboxMessage) error

func (f OutboxHandlerFunc) Handle(ctx context.Context, msg *OutboxMessage) error { return f(ctx, msg) }

// RelayConfig tunes the relay.
type RelayConfig struct {
	BatchSize  int
	MaxRetries int
	// RetryStep is the first retry delay; it doubles on every attempt.
	RetryStep time.Duration
}

// OutboxRelay moves pending messages to a handler. Each batch is claimed
// with FOR UPDATE SKIP LOCKED so several workers can run side by side.
type OutboxRelay struct {
	txManager *TxManager
	handler   OutboxHandler
	cfg       RelayConfig
}

// NewOutboxRelay creates a relay.
func NewOutboxRelay(txManager *TxManager, handler OutboxHandler, cfg RelayConfig) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryStep <= 0 {
		cfg.RetryStep = time.Minute
	}
	return &OutboxRelay{txManager: txManager, handler: handler, cfg: cfg}
}

// ProcessBatch delivers up to one batch and returns how many were published.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	published := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var messages []*OutboxMessage
		err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &messages, `
			SELECT id, company_id, aggregate_type, aggregate_id, event_type, payload, status,
			       retry_count, last_error, next_retry_at, created_at, published_at
			FROM sys_outbox
			WHERE status = $1
			  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`, OutboxStatusPending, r.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			ok, err := r.deliver(ctx, msg)
			if err != nil {
				return err
			}
			if ok {
				published++
			}
		}
		return nil
	})
	return published, err
}

func (r *OutboxRelay) deliver(ctx context.Context, msg *OutboxMessage) (bool, error) {
	q := r.txManager.GetQuerier(ctx)

	if herr := r.handler.Handle(ctx, msg); herr != nil {
		attempt := msg.RetryCount + 1
		status := OutboxStatusPending
		if attempt >= r.cfg.MaxRetries {
			status = OutboxStatusFailed
		}
		logger.Warn(ctx, "outbox delivery failed",
			"id", msg.ID, "event_type", msg.EventType, "attempt", attempt, "error", herr)

		_, err := q.Exec(ctx, `
			UPDATE sys_outbox
			SET retry_count = $1, last_error = $2, next_retry_at = $3, status = $4
			WHERE id = $5
		`, attempt, herr.Error(), time.Now().UTC().Add(retryDelay(r.cfg.RetryStep, attempt)), status, msg.ID)
		if err != nil {
			return false, fmt.Errorf("record failed delivery: %w", err)
		}
		return false, nil
	}

	_, err := q.Exec(ctx, `
		UPDATE sys_outbox SET status = $1, published_at = $2 WHERE id = $3
	`, OutboxStatusPublished, time.Now().UTC(), msg.ID)
	if err != nil {
		return false, fmt.Errorf("mark published: %w", err)
	}
	return true, nil
}

// PurgePublished removes published messages older than the retention.
func (r *OutboxRelay) PurgePublished(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_outbox WHERE status = $1 AND published_at < $2
	`, OutboxStatusPublished, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return tag.RowsAffected(), nil
}

// retryDelay is step * 2^(attempt-1), capped at a day.
func retryDelay(step time.Duration, attempt int) time.Duration {
	const maxDelay = 24 * time.Hour
	d := step
	for i := 1; i < attempt && d < maxDelay; i++ {
		d *= 2
	}
	return min(d, maxDelay)
}
