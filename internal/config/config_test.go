package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig checks the documented defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(512), cfg.MaxMessageSize)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 50, cfg.HistorySize)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.Kafka.Enabled())
}

// TestFromViperDefaults builds a config from an empty viper instance.
func TestFromViperDefaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

// TestFromViperOverrides sets every key the way environment variables would.
func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	v.Set("server_port", "9090")
	v.Set("allowed_origins", "http://a.example, https://b.example ,")
	v.Set("max_message_size", "1024")
	v.Set("rate_limit_burst", "9")
	v.Set("rate_limit_refill_interval", "3")
	v.Set("history_size", "20")
	v.Set("shutdown_timeout", "4")
	v.Set("log_level", "debug")
	v.Set("log_pretty", "true")
	v.Set("kafka_brokers", "k1:9092,k2:9092")
	v.Set("kafka_topic", "room")

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"http://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, 9, cfg.RateLimit.Burst)
	assert.Equal(t, 3*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 20, cfg.HistorySize)
	assert.Equal(t, 4*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "room", cfg.Kafka.Topic)
	assert.True(t, cfg.Kafka.Enabled())
}

// TestFromViperInvalidValuesFallBack keeps defaults for non-positive numbers.
func TestFromViperInvalidValuesFallBack(t *testing.T) {
	v := viper.New()
	v.Set("max_message_size", "-1")
	v.Set("rate_limit_burst", "0")
	v.Set("rate_limit_refill_interval", "nope")
	v.Set("history_size", "-5")

	cfg, err := FromViper(v)
	require.NoError(t, err)

	defaults := Default()
	assert.Equal(t, defaults.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, defaults.RateLimit, cfg.RateLimit)
	assert.Equal(t, defaults.HistorySize, cfg.HistorySize)
}

// TestParsePort covers the accepted address forms and the rejected one.
func TestParsePort(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "", want: ":8080"},
		{input: "8081", want: ":8081"},
		{input: ":8082", want: ":8082"},
		{input: "127.0.0.1:8083", want: "127.0.0.1:8083"},
		{input: "80 80", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parsePort(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPort)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestLoadFromEnvironment runs the full loader against environment variables.
func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", ":7070")
	t.Setenv("ALLOWED_ORIGINS", "*")
	t.Setenv("HISTORY_SIZE", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 10, cfg.HistorySize)
}
