// Package server assembles the hub, the router, and the HTTP listener into a
// runnable chat service.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/chatroom/internal/chat"
	"github.com/Tyrowin/chatroom/internal/config"
)

// Server is one chat room served over HTTP.
type Server struct {
	cfg    config.Config
	hub    *Hub
	http   *http.Server
	logger zerolog.Logger
}

// New builds the room stores, the hub, and the HTTP server for cfg. Extra hub
// options, such as WithMirror, are applied after the logger.
func New(cfg config.Config, logger zerolog.Logger, opts ...Option) *Server {
	cfg = config.Sanitize(cfg)

	hubOpts := append([]Option{WithLogger(logger.With().Str("component", "hub").Logger())}, opts...)
	hub := NewHub(chat.NewHistory(cfg.HistorySize), chat.NewPresence(), hubOpts...)
	handlers := NewHandlers(hub, cfg, logger)

	return &Server{
		cfg:    cfg,
		hub:    hub,
		http:   CreateServer(cfg.Port, NewRouter(handlers)),
		logger: logger,
	}
}

// Hub returns the hub behind the server.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler, for mounting in tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run starts the hub and the listener and blocks until ctx is cancelled or
// the listener fails. Both are shut down gracefully before Run returns.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.hub.Run()
		return nil
	})
	s.logger.Info().Msg("Hub started and ready to manage WebSocket connections")

	g.Go(func() error {
		if err := StartServer(s.http, s.logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		httpErr := ShutdownServer(s.http, s.cfg.ShutdownTimeout, s.logger)
		hubErr := s.hub.Shutdown(s.cfg.ShutdownTimeout)
		return errors.Join(httpErr, hubErr)
	})

	return g.Wait()
}
