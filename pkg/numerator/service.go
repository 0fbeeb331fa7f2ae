// Package numerator issues sequential document numbers from sys_sequences.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"stockflow/internal/core/id"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict bumps the sequence row for every number inside the
	// caller's transaction. Gapless: a rollback returns the number.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges in memory. Faster, may leave gaps on restart.
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once by StrategyCached.
	RangeSize int64
}

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFunc resolves the querier for the current call, normally the
// transaction carried by ctx.
type QuerierFunc func(ctx context.Context) Querier

// Config holds numbering configuration for one prefix.
type Config struct {
	Prefix string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// DefaultConfig returns PREFIX-YYYY-NNNNN numbering reset every year.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}

type cachedRange struct {
	current int64
	max     int64
}

// Service generates document numbers. Sequences are kept per company.
type Service struct {
	querier QuerierFunc
	opts    Options

	mu      sync.Mutex
	configs map[string]Config
	ranges  map[string]*cachedRange
}

// New creates a numbering service.
func New(querier QuerierFunc, opts Options) *Service {
	return &Service{
		querier: querier,
		opts:    opts,
		configs: make(map[string]Config),
		ranges:  make(map[string]*cachedRange),
	}
}

// Configure overrides the format for a prefix.
func (s *Service) Configure(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.Prefix] = cfg
}

func (s *Service) config(prefix string) Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg, ok := s.configs[prefix]; ok {
		return cfg
	}
	return DefaultConfig(prefix)
}

// Next returns the next number for prefix in the company's sequence.
func (s *Service) Next(ctx context.Context, companyID id.ID, prefix string, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	cfg := s.config(prefix)
	key := companyID.String() + ":" + s.buildKey(cfg, period)

	var (
		num int64
		err error
	)
	switch s.opts.Strategy {
	case StrategyCached:
		num, err = s.nextCached(ctx, key)
	default:
		num, err = s.reserve(ctx, key, 1)
	}
	if err != nil {
		return "", err
	}

	return s.formatNumber(cfg, period, num), nil
}

// reserve bumps the sequence by n and returns the new last value.
func (s *Service) reserve(ctx context.Context, key string, n int64) (int64, error) {
	var last int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
		RETURNING current_val
	`, key, n).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("reserve sequence %s: %w", key, err)
	}
	return last, nil
}

func (s *Service) nextCached(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rng, ok := s.ranges[key]
	if !ok {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		size := s.opts.RangeSize
		if size <= 0 {
			size = 50
		}
		last, err := s.reserve(ctx, key, size)
		if err != nil {
			return 0, err
		}
		// range is (last-size, last]
		rng.current = last - size
		rng.max = last
	}

	rng.current++
	return rng.current, nil
}

// buildKey creates the sequence key based on config and period.
func (s *Service) buildKey(cfg Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// formatNumber creates the final number string.
func (s *Service) formatNumber(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}
