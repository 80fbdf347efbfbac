package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"alert-relay/internal/relay"
	"alert-relay/internal/telemetry"
)

// Server hosts the inbound webhook and the auxiliary telemetry read
// endpoints. Each request is handled on its own goroutine by net/http;
// the relay core does no scheduling of its own.
type Server struct {
	relay  *relay.Relay
	store  *telemetry.Store
	logger zerolog.Logger
	http   *http.Server
}

// Options configure the HTTP listener.
type Options struct {
	ListenAddr  string
	ReadTimeout time.Duration
}

// New constructs the server and its routes.
func New(rl *relay.Relay, store *telemetry.Store, opts Options, logger zerolog.Logger) *Server {
	s := &Server{
		relay:  rl,
		store:  store,
		logger: logger.With().Str("component", "server").Logger(),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	router.POST("/webhook", s.handleWebhook)
	router.GET("/telemetry/files", s.handleListBuckets)
	router.GET("/telemetry/files/:name", s.handleDownloadBucket)

	s.http = &http.Server{
		Addr:        opts.ListenAddr,
		Handler:     router,
		ReadTimeout: opts.ReadTimeout,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then drains with the given timeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
