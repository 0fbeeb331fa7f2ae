package postgres

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/blake2b"

	"stockflow/internal/core/apperror"
)

// IdempotencyStatus represents the state of an idempotent operation.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

// staleAfter is how long a pending key may be held before another request
// can take it over.
const staleAfter = time.Minute

// IdempotencyClaim identifies one keyed request.
type IdempotencyClaim struct {
	CompanyID string
	Key       string
	UserID    string
	Operation string // "POST /api/v1/delivery-notes/:id/dispatch"
	// Fingerprint is RequestFingerprint of the body.
	Fingerprint string
}

// IdempotencyReplay is the stored response of a finished request.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// RequestFingerprint hashes a request body with BLAKE2b-256.
func RequestFingerprint(body []byte) string {
	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// IdempotencyStore keeps sys_idempotency, keyed by company and key.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
}

// NewIdempotencyStore creates a store whose keys expire after ttl.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{txManager: txManager, ttl: ttl}
}

// Acquire claims the key. It returns (nil, nil) when the caller should run
// the request, a replay when the request already finished, and an
// idempotency error when the key is in flight or was used for another request.
func (s *IdempotencyStore) Acquire(ctx context.Context, claim IdempotencyClaim) (*IdempotencyReplay, error) {
	now := time.Now().UTC()

	var (
		inserted    bool
		userID      string
		operation   string
		fingerprint string
		status      IdempotencyStatus
		response    []byte
		statusCode  *int
		contentType *string
		updatedAt   time.Time
	)
	err := s.txManager.GetQuerier(ctx).QueryRow(ctx, `
		INSERT INTO sys_idempotency (
			company_id, idempotency_key, user_id, operation, request_hash, status,
			created_at, updated_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8)
		ON CONFLICT (company_id, idempotency_key) DO UPDATE
			SET expires_at = GREATEST(sys_idempotency.expires_at, EXCLUDED.expires_at)
		RETURNING (xmax = 0), user_id, operation, request_hash, status,
		          response, response_status, response_content_type, updated_at
	`, claim.CompanyID, claim.Key, claim.UserID, claim.Operation, claim.Fingerprint,
		IdempotencyStatusPending, now, now.Add(s.ttl),
	).Scan(&inserted, &userID, &operation, &fingerprint, &status,
		&response, &statusCode, &contentType, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if inserted {
		return nil, nil
	}

	if userID != claim.UserID || operation != claim.Operation || fingerprint != claim.Fingerprint {
		return nil, apperror.NewIdempotencyMismatch(claim.Key).
			WithDetail("operation", operation)
	}

	switch status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		replay := &IdempotencyReplay{StatusCode: http.StatusOK, ContentType: "application/json", Body: response}
		if statusCode != nil && *statusCode != 0 {
			replay.StatusCode = *statusCode
		}
		if contentType != nil && *contentType != "" {
			replay.ContentType = *contentType
		}
		return replay, nil
	}

	if now.Sub(updatedAt) < staleAfter {
		return nil, apperror.NewIdempotencyConflict(claim.Key)
	}

	// The holder never finished; take the key over.
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency SET updated_at = $1
		WHERE company_id = $2 AND idempotency_key = $3 AND status = $4 AND updated_at = $5
	`, now, claim.CompanyID, claim.Key, IdempotencyStatusPending, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("reclaim idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewIdempotencyConflict(claim.Key)
	}
	return nil, nil
}

// Complete stores a successful response for replay.
func (s *IdempotencyStore) Complete(ctx context.Context, companyID, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, companyID, key, IdempotencyStatusSuccess, statusCode, contentType, response)
}

// Fail stores an error response for replay.
func (s *IdempotencyStore) Fail(ctx context.Context, companyID, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, companyID, key, IdempotencyStatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(ctx context.Context, companyID, key string, status IdempotencyStatus, statusCode int, contentType string, response any) error {
	var body []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		body = b
	}

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1, response = $2, response_status = $3, response_content_type = $4, updated_at = $5
		WHERE company_id = $6 AND idempotency_key = $7
	`, status, body, statusCode, contentType, time.Now().UTC(), companyID, key)
	if err != nil {
		return fmt.Errorf("finish idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired removes expired keys.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM sys_idempotency WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
