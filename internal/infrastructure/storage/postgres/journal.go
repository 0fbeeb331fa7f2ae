package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"stockflow/internal/core/id"
	"stockflow/internal/domain/audit"
)

// CompressionAlgo names how a snapshot is stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

const defaultCompressThreshold = 8 * 1024

// AuditRecord is one row of sys_audit with its snapshot decoded.
type AuditRecord struct {
	ID         id.ID           `db:"id" json:"id"`
	CompanyID  id.ID           `db:"company_id" json:"companyId"`
	EntityType string          `db:"entity_type" json:"entityType"`
	EntityID   id.ID           `db:"entity_id" json:"entityId"`
	Number     string          `db:"number" json:"number"`
	Action     string          `db:"action" json:"action"`
	UserID     string          `db:"user_id" json:"userId"`
	Snapshot   json.RawMessage `db:"snapshot" json:"snapshot"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// ChangeEvent is the outbox payload of a journal entry.
type ChangeEvent struct {
	EventType  string    `json:"eventType"`
	EntityType string    `json:"entityType"`
	EntityID   id.ID     `json:"entityId"`
	CompanyID  id.ID     `json:"companyId"`
	Number     string    `json:"number"`
	Action     string    `json:"action"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Journal implements audit.Recorder: every entry becomes a sys_audit row
// holding the document snapshot and a pending sys_outbox event, both written
// in the caller's transaction.
type Journal struct {
	txManager *TxManager
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
	now       func() time.Time
}

var _ audit.Recorder = (*Journal)(nil)

// NewJournal creates the journal. Snapshots larger than compressThreshold
// bytes are stored zstd-compressed; zero selects 8 KiB.
func NewJournal(txManager *TxManager, compressThreshold int) (*Journal, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if compressThreshold <= 0 {
		compressThreshold = defaultCompressThreshold
	}
	return &Journal{
		txManager: txManager,
		encoder:   encoder,
		decoder:   decoder,
		threshold: compressThreshold,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Record writes the audit row and the outbox event.
func (j *Journal) Record(ctx context.Context, entry audit.Entry) error {
	if j.txManager.GetTx(ctx) == nil {
		return fmt.Errorf("journal entry %s outside a transaction", entry.EventType())
	}

	snapshot, err := json.Marshal(entry.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	algo, plain, packed := j.pack(snapshot)

	now := j.now()
	event, err := json.Marshal(ChangeEvent{
		EventType:  entry.EventType(),
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		CompanyID:  entry.CompanyID,
		Number:     entry.Number,
		Action:     entry.Action,
		UserID:     entry.UserID,
		OccurredAt: now,
	})
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}

	return j.txManager.SendBatch(ctx, []Statement{
		{
			SQL: `INSERT INTO sys_audit (
				id, company_id, entity_type, entity_id, number, action, user_id,
				snapshot, snapshot_compressed, compression_algo, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			Args: []any{
				id.New(), entry.CompanyID, entry.EntityType, entry.EntityID, entry.Number,
				entry.Action, entry.UserID, plain, packed, algo, now,
			},
		},
		{
			SQL: `INSERT INTO sys_outbox (
				id, company_id, aggregate_type, aggregate_id, event_type, payload, status, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			Args: []any{
				id.New(), entry.CompanyID, entry.EntityType, entry.EntityID, entry.EventType(),
				event, OutboxStatusPending, now,
			},
		},
	})
}

func (j *Journal) pack(snapshot []byte) (CompressionAlgo, []byte, []byte) {
	if len(snapshot) <= j.threshold {
		return CompressionNone, snapshot, nil
	}
	return CompressionZstd, nil, j.encoder.EncodeAll(snapshot, nil)
}

// History returns the journal of one document, newest first.
func (j *Journal) History(ctx context.Context, companyID id.ID, entityType string, entityID id.ID, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := j.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT id, company_id, entity_type, entity_id, number, action, user_id,
		       snapshot, snapshot_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE company_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, companyID, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		var (
			rec    AuditRecord
			packed []byte
			algo   CompressionAlgo
		)
		if err := rows.Scan(
			&rec.ID, &rec.CompanyID, &rec.EntityType, &rec.EntityID, &rec.Number, &rec.Action, &rec.UserID,
			&rec.Snapshot, &packed, &algo, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if algo == CompressionZstd {
			plain, err := j.decoder.DecodeAll(packed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress snapshot %s: %w", rec.ID, err)
			}
			rec.Snapshot = plain
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
