package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.OrderServiceAddr)
	assert.Equal(t, "order-events", cfg.OrderEventsQueue)
	assert.Equal(t, "transactions", cfg.TransactionsQueue)
	assert.Equal(t, float64(10_000_000), cfg.FraudThreshold)
	assert.Equal(t, 100, cfg.DefaultStock)
	assert.Equal(t, 24*time.Hour, cfg.DedupTTL)
	assert.Equal(t, uint64(3), cfg.MaxRetries)
	assert.False(t, cfg.GeneratorEnabled)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("FRAUD_THRESHOLD", "5000")
	t.Setenv("DEFAULT_STOCK", "250")
	t.Setenv("ORDER_EVENTS_QUEUE", "orders.lifecycle")
	t.Setenv("DEDUP_TTL", "1h")
	t.Setenv("GENERATOR_ENABLED", "true")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, float64(5000), cfg.FraudThreshold)
	assert.Equal(t, 250, cfg.DefaultStock)
	assert.Equal(t, "orders.lifecycle", cfg.OrderEventsQueue)
	assert.Equal(t, time.Hour, cfg.DedupTTL)
	assert.True(t, cfg.GeneratorEnabled)
}
