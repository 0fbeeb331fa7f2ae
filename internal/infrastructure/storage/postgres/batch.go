package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CopyRows bulk-inserts rows with the COPY protocol. It must run inside a
// transaction so a failed posting leaves no partial rows behind.
func (m *TxManager) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	t := m.GetTx(ctx)
	if t == nil {
		return 0, fmt.Errorf("copy into %s requires a transaction", table)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return t.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

// Statement is one query of a batch.
type Statement struct {
	SQL  string
	Args []any
}

// SendBatch executes statements in one round trip inside the current
// transaction. The first failing statement aborts the batch.
func (m *TxManager) SendBatch(ctx context.Context, stmts []Statement) error {
	t := m.GetTx(ctx)
	if t == nil {
		return fmt.Errorf("batch requires a transaction")
	}
	if len(stmts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range stmts {
		batch.Queue(s.SQL, s.Args...)
	}

	results := t.SendBatch(ctx, batch)
	defer results.Close()

	for i := range stmts {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return nil
}
