package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/id"
)

type mockRow struct {
	val int64
}

func (m *mockRow) Scan(dest ...any) error {
	if ptr, ok := dest[0].(*int64); ok {
		*ptr = m.val
	}
	return nil
}

// mockQuerier simulates sys_sequences: one counter per key.
type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
}

func (m *mockQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.values == nil {
		m.values = make(map[string]int64)
	}
	key := args[0].(string)
	m.values[key] += args[1].(int64)
	m.calls++
	return &mockRow{val: m.values[key]}
}

func fixed(q *mockQuerier) QuerierFunc {
	return func(context.Context) Querier { return q }
}

var period = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func TestNext_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(fixed(q), Options{})
	ctx := context.Background()
	company := id.New()

	num, err := svc.Next(ctx, company, "DN", period)
	require.NoError(t, err)
	assert.Equal(t, "DN-2026-00001", num)

	num, err = svc.Next(ctx, company, "DN", period)
	require.NoError(t, err)
	assert.Equal(t, "DN-2026-00002", num)
	assert.Equal(t, 2, q.calls)
}

func TestNext_SequencesArePerCompanyAndPrefix(t *testing.T) {
	q := &mockQuerier{}
	svc := New(fixed(q), Options{})
	ctx := context.Background()

	a, _ := svc.Next(ctx, id.New(), "SR", period)
	b, _ := svc.Next(ctx, id.New(), "SR", period)
	c, _ := svc.Next(ctx, id.New(), "PL", period)

	assert.Equal(t, "SR-2026-00001", a)
	assert.Equal(t, "SR-2026-00001", b)
	assert.Equal(t, "PL-2026-00001", c)
}

func TestNext_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(fixed(q), Options{Strategy: StrategyCached, RangeSize: 10})
	ctx := context.Background()
	company := id.New()

	for i := 1; i <= 10; i++ {
		_, err := svc.Next(ctx, company, "PL", period)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, q.calls, "one range reservation for ten numbers")

	num, err := svc.Next(ctx, company, "PL", period)
	require.NoError(t, err)
	assert.Equal(t, "PL-2026-00011", num)
	assert.Equal(t, 2, q.calls)
}

func TestConfigure(t *testing.T) {
	q := &mockQuerier{}
	svc := New(fixed(q), Options{})
	svc.Configure(Config{Prefix: "SR", PadWidth: 3})

	num, err := svc.Next(context.Background(), id.New(), "SR", period)
	require.NoError(t, err)
	assert.Equal(t, "SR-001", num)
}
