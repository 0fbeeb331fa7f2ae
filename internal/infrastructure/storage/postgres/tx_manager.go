package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockflow/internal/core/tx"
	"stockflow/pkg/logger"
)

var tracer = otel.Tracer("stockflow/tx")

var _ tx.ReadOnlyManager = (*TxManager)(nil)

// TxOptions configures one unit of work.
type TxOptions struct {
	IsolationLevel pgx.TxIsoLevel
	AccessMode     pgx.TxAccessMode

	// StatementTimeout is applied with SET LOCAL; zero leaves the server default.
	StatementTimeout time.Duration
}

// TxManager runs units of work on the pool. The active transaction travels
// in the context, so repositories and the stock ledger called from inside a
// service transaction share it.
type TxManager struct {
	pool             *pgxpool.Pool
	statementTimeout time.Duration
}

// NewTxManager creates a transaction manager. statementTimeout bounds every
// statement of the transactions it opens.
func NewTxManager(pool *Pool, statementTimeout time.Duration) *TxManager {
	return &TxManager{pool: pool.Pool, statementTimeout: statementTimeout}
}

type txKey struct{}

// Tx is the transaction carried by the context.
type Tx struct {
	pgx.Tx
	readOnly bool
}

func (m *TxManager) defaults() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		AccessMode:       pgx.ReadWrite,
		StatementTimeout: m.statementTimeout,
	}
}

// RunInTransaction executes fn in a read-write transaction. A transaction
// already present in ctx is joined; the outermost call commits.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransactionWithOptions(ctx, m.defaults(), fn)
}

// ReadOnly executes fn in a read-only transaction, or inside the caller's
// transaction when one is already open.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := m.defaults()
	opts.AccessMode = pgx.ReadOnly
	return m.RunInTransactionWithOptions(ctx, opts, fn)
}

// RunInTransactionWithOptions executes fn with explicit options.
func (m *TxManager) RunInTransactionWithOptions(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	if existing := m.GetTx(ctx); existing != nil {
		if existing.readOnly && opts.AccessMode == pgx.ReadWrite {
			return fmt.Errorf("read-write unit of work started inside a read-only transaction")
		}
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("tx.isolation", string(opts.IsolationLevel)),
			attribute.String("tx.access_mode", string(opts.AccessMode)),
		))
	defer span.End()

	err := m.run(ctx, opts, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rolled back")
	}
	return err
}

func (m *TxManager) run(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	pgTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   opts.IsolationLevel,
		AccessMode: opts.AccessMode,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if opts.StatementTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", opts.StatementTimeout.Milliseconds())
		if _, err := pgTx.Exec(ctx, stmt); err != nil {
			_ = pgTx.Rollback(context.Background())
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	txCtx := context.WithValue(ctx, txKey{}, &Tx{Tx: pgTx, readOnly: opts.AccessMode == pgx.ReadOnly})
	if err := fn(txCtx); err != nil {
		// The request context may already be cancelled.
		if rbErr := pgTx.Rollback(context.Background()); rbErr != nil {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetTx returns the transaction carried by ctx, or nil.
func (m *TxManager) GetTx(ctx context.Context) *Tx {
	if t, ok := ctx.Value(txKey{}).(*Tx); ok {
		return t
	}
	return nil
}

// Querier is satisfied by both the pool and a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns the transaction in ctx, falling back to the pool.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.GetTx(ctx); t != nil {
		return t.Tx
	}
	return m.pool
}
