package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "wss://advanced-trade-ws.coinbase.com", cfg.WS.URL)
	assert.Equal(t, 2*time.Second, cfg.WS.ShutdownTimeout)
	assert.Equal(t, "https://api.coinbase.com", cfg.REST.BaseURL)
	assert.Equal(t, uint64(2), cfg.REST.MaxRetries)
	assert.Equal(t, []string{"BTC-USD"}, cfg.Stream.Products)
	assert.Equal(t, []string{"ticker", "heartbeats"}, cfg.Stream.Channels)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.HasCredentials())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("COINBASE_API_KEY_NAME", "organizations/x/apiKeys/y")
	t.Setenv("COINBASE_API_SECRET", "secret")
	t.Setenv("COINBASE_STREAM_PRODUCTS", "ETH-USD, SOL-USD")
	t.Setenv("COINBASE_STREAM_CHANNELS", "level2,market_trades")
	t.Setenv("COINBASE_WS_SHUTDOWN_TIMEOUT", "500ms")
	t.Setenv("COINBASE_KAFKA_ENABLED", "true")
	t.Setenv("COINBASE_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, []string{"ETH-USD", "SOL-USD"}, cfg.Stream.Products)
	assert.Equal(t, []string{"level2", "market_trades"}, cfg.Stream.Channels)
	assert.Equal(t, 500*time.Millisecond, cfg.WS.ShutdownTimeout)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)

	creds := cfg.Credentials()
	assert.Equal(t, "organizations/x/apiKeys/y", creds.KeyName)
	assert.True(t, cfg.HasCredentials())
	assert.NotContains(t, creds.String(), "secret")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]interface{}
	}{
		{name: "bad log level", set: map[string]interface{}{"log.level": "loud"}},
		{name: "unknown channel", set: map[string]interface{}{"stream.channels": []string{"orders"}}},
		{name: "key without secret", set: map[string]interface{}{"api.key_name": "k"}},
		{name: "bearer and key", set: map[string]interface{}{"api.bearer": "t", "api.key_name": "k", "api.secret": "s"}},
		{name: "empty ws url", set: map[string]interface{}{"ws.url": ""}},
		{name: "kafka without brokers", set: map[string]interface{}{"kafka.enabled": true, "kafka.brokers": []string{}}},
		{name: "kafka without producers", set: map[string]interface{}{"kafka.enabled": true, "kafka.pool_size": 0}},
		{name: "metrics without addr", set: map[string]interface{}{"metrics.enabled": true, "metrics.addr": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a,b", " c ", ""}))
	assert.Nil(t, splitList(nil))
}
