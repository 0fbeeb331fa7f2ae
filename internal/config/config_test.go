package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/stockflow")
	t.Setenv("JWT_SECRET", "0123456789abcdef")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.DBStatementTimeout)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 100, cfg.OutboxBatchSize)
	assert.True(t, cfg.Development())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database url", map[string]string{"JWT_SECRET": "0123456789abcdef"}},
		{"short secret", map[string]string{"DATABASE_URL": "postgres://x", "JWT_SECRET": "short"}},
		{"min above max", map[string]string{
			"DATABASE_URL": "postgres://x", "JWT_SECRET": "0123456789abcdef",
			"DB_MIN_CONNS": "10", "DB_MAX_CONNS": "2",
		}},
		{"bad duration", map[string]string{
			"DATABASE_URL": "postgres://x", "JWT_SECRET": "0123456789abcdef",
			"OUTBOX_INTERVAL": "soon",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			os.Unsetenv("DATABASE_URL")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}

func TestPermissionPolicies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"delivery_note:void":"is_admin"}`), 0o600))

	rules, err := Config{PermissionPolicyFile: path}.PermissionPolicies()
	require.NoError(t, err)
	assert.Equal(t, "is_admin", rules["delivery_note:void"])

	rules, err = Config{}.PermissionPolicies()
	require.NoError(t, err)
	assert.Nil(t, rules)

	require.NoError(t, os.WriteFile(path, []byte(`[1]`), 0o600))
	_, err = Config{PermissionPolicyFile: path}.PermissionPolicies()
	assert.Error(t, err)
}
