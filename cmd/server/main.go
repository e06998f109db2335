// Command server runs the chat room: WebSocket hub, history endpoint, and
// health checks.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/Tyrowin/chatroom/internal/config"
	"github.com/Tyrowin/chatroom/internal/logging"
	"github.com/Tyrowin/chatroom/internal/relay"
	"github.com/Tyrowin/chatroom/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap := logging.New("info", false, os.Stderr)
		bootstrap.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogPretty, os.Stdout)
	if err := run(*cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped with error")
	}
	logger.Info().Msg("Server stopped")
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("history_size", cfg.HistorySize).
		Msg("Starting chat server")

	var opts []server.Option
	if producer := newMirror(cfg, logger); producer != nil {
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Warn().Err(err).Msg("Error closing Kafka producer")
			}
		}()
		opts = append(opts, server.WithMirror(producer))
	}

	return server.New(cfg, logger, opts...).Run(ctx)
}

// newMirror connects the Kafka relay when brokers are configured. The server
// runs without it if the brokers cannot be reached.
func newMirror(cfg config.Config, logger zerolog.Logger) *relay.Producer {
	if !cfg.Kafka.Enabled() {
		return nil
	}

	producer, err := relay.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.With().Str("component", "relay").Logger())
	if err != nil {
		logger.Warn().Err(err).Msg("Kafka mirror disabled")
		return nil
	}
	return producer
}
