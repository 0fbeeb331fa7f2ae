package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/id"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/pkg/logger"
)

type fakeOutbox struct {
	batches   []int
	calls     int
	err       error
	purged    time.Duration
	purgeRows int64
}

func (f *fakeOutbox) ProcessBatch(context.Context) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.calls >= len(f.batches) {
		f.calls++
		return 0, nil
	}
	n := f.batches[f.calls]
	f.calls++
	return n, nil
}

func (f *fakeOutbox) PurgePublished(_ context.Context, retention time.Duration) (int64, error) {
	f.purged = retention
	return f.purgeRows, nil
}

type fakeCleaner struct {
	calls int
}

func (f *fakeCleaner) CleanupExpired(context.Context) (int64, error) {
	f.calls++
	return 3, nil
}

func TestWorker_DrainOutboxStopsOnEmptyBatch(t *testing.T) {
	outbox := &fakeOutbox{batches: []int{100, 100, 7}}
	w := NewWorker(WorkerConfig{}, outbox, &fakeCleaner{}, nil, logger.NewNop())

	w.drainOutbox(context.Background())

	assert.Equal(t, 4, outbox.calls)
}

func TestWorker_DrainOutboxStopsOnError(t *testing.T) {
	outbox := &fakeOutbox{err: errors.New("connection reset")}
	w := NewWorker(WorkerConfig{}, outbox, &fakeCleaner{}, nil, logger.NewNop())

	w.drainOutbox(context.Background())

	assert.Equal(t, 0, outbox.calls)
}

func TestWorker_Cleanup(t *testing.T) {
	outbox := &fakeOutbox{purgeRows: 12}
	cleaner := &fakeCleaner{}
	w := NewWorker(WorkerConfig{OutboxRetention: 48 * time.Hour}, outbox, cleaner, nil, logger.NewNop())

	w.cleanup(context.Background())

	assert.Equal(t, 48*time.Hour, outbox.purged)
	assert.Equal(t, 1, cleaner.calls)
}

func TestWorker_RunReturnsOnCancel(t *testing.T) {
	w := NewWorker(WorkerConfig{OutboxInterval: time.Millisecond}, &fakeOutbox{}, &fakeCleaner{}, nil, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestLogEvent(t *testing.T) {
	payload, err := json.Marshal(postgres.ChangeEvent{
		EventType:  "delivery_note.dispatched",
		EntityType: "delivery_note",
		EntityID:   id.New(),
		Number:     "DN-2026-00001",
	})
	require.NoError(t, err)

	ctx := logger.WithLogger(context.Background(), logger.NewNop())
	assert.NoError(t, logEvent(ctx, &postgres.OutboxMessage{ID: id.New(), Payload: payload}))
	assert.Error(t, logEvent(ctx, &postgres.OutboxMessage{ID: id.New(), Payload: []byte("{")}))
}
