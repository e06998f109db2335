// Package config provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the chat service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Tyrowin/chatroom/internal/chat"
)

// ErrInvalidPort is returned when SERVER_PORT cannot be used as a listen address.
var ErrInvalidPort = errors.New("invalid SERVER_PORT value")

const (
	keyPort            = "server_port"
	keyAllowedOrigins  = "allowed_origins"
	keyMaxMessageSize  = "max_message_size"
	keyRateLimitBurst  = "rate_limit_burst"
	keyRateLimitRefill = "rate_limit_refill_interval"
	keyHistorySize     = "history_size"
	keyShutdownTimeout = "shutdown_timeout"
	keyLogLevel        = "log_level"
	keyLogPretty       = "log_pretty"
	keyKafkaBrokers    = "kafka_brokers"
	keyKafkaTopic      = "kafka_topic"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// KafkaConfig describes the optional message mirror.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether brokers were configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port            string
	AllowedOrigins  []string
	MaxMessageSize  int64
	RateLimit       RateLimitConfig
	HistorySize     int
	ShutdownTimeout time.Duration
	LogLevel        string
	LogPretty       bool
	Kafka           KafkaConfig
}

// Default returns a Config populated with default values for all settings.
func Default() Config {
	return Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 512,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		HistorySize:     chat.DefaultHistorySize,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		Kafka: KafkaConfig{
			Topic: "chat-messages",
		},
	}
}

// Sanitize replaces non-positive or empty settings with their defaults.
func Sanitize(cfg Config) Config {
	defaults := Default()

	if cfg.Port == "" {
		cfg.Port = defaults.Port
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaults.RateLimit.Burst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = defaults.RateLimit.RefillInterval
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaults.HistorySize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = defaults.Kafka.Topic
	}

	cfg.AllowedOrigins = trimAll(cfg.AllowedOrigins)
	cfg.Kafka.Brokers = trimAll(cfg.Kafka.Brokers)
	return cfg
}

// Load reads an optional .env file, an optional chatroom.{yaml,json,toml}
// file from the working directory or ./config, and the environment.
// Environment variables win over the config file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("chatroom")
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a sanitized Config from v, applying defaults for unset keys.
func FromViper(v *viper.Viper) (*Config, error) {
	defaults := Default()
	v.SetDefault(keyPort, defaults.Port)
	v.SetDefault(keyMaxMessageSize, defaults.MaxMessageSize)
	v.SetDefault(keyRateLimitBurst, defaults.RateLimit.Burst)
	v.SetDefault(keyRateLimitRefill, int(defaults.RateLimit.RefillInterval/time.Second))
	v.SetDefault(keyHistorySize, defaults.HistorySize)
	v.SetDefault(keyShutdownTimeout, int(defaults.ShutdownTimeout/time.Second))
	v.SetDefault(keyLogLevel, defaults.LogLevel)
	v.SetDefault(keyKafkaTopic, defaults.Kafka.Topic)

	port, err := parsePort(v.GetString(keyPort))
	if err != nil {
		return nil, err
	}

	origins := listValue(v, keyAllowedOrigins)
	if origins == nil {
		origins = defaults.AllowedOrigins
	}

	cfg := Sanitize(Config{
		Port:           port,
		AllowedOrigins: origins,
		MaxMessageSize: v.GetInt64(keyMaxMessageSize),
		RateLimit: RateLimitConfig{
			Burst:          v.GetInt(keyRateLimitBurst),
			RefillInterval: time.Duration(v.GetInt(keyRateLimitRefill)) * time.Second,
		},
		HistorySize:     v.GetInt(keyHistorySize),
		ShutdownTimeout: time.Duration(v.GetInt(keyShutdownTimeout)) * time.Second,
		LogLevel:        v.GetString(keyLogLevel),
		LogPretty:       v.GetBool(keyLogPretty),
		Kafka: KafkaConfig{
			Brokers: listValue(v, keyKafkaBrokers),
			Topic:   v.GetString(keyKafkaTopic),
		},
	})
	return &cfg, nil
}

// parsePort accepts "8080", ":8080", or "host:8080".
func parsePort(value string) (string, error) {
	port := strings.TrimSpace(value)
	if port == "" {
		return Default().Port, nil
	}
	if strings.Contains(port, " ") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPort, value)
	}
	if strings.Contains(port, ":") {
		return port, nil
	}
	return ":" + port, nil
}

// listValue reads a comma separated environment value or a list from a config
// file. It returns nil when the key is unset.
func listValue(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}
	switch raw := v.Get(key).(type) {
	case string:
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		return trimAll(strings.Split(raw, ","))
	default:
		return trimAll(v.GetStringSlice(key))
	}
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
