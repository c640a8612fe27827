package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-rest-scaffold/config"
	"github.com/goliatone/go-rest-scaffold/response"
	"github.com/rs/zerolog"
)

// Server owns the gin engine and the HTTP listener.
type Server struct {
	cfg    config.ServerConfig
	engine *gin.Engine
	logger zerolog.Logger
}

// New builds an engine with request ids, access logging, panic recovery,
// CORS and rate limiting installed in that order. GET /health is always
// mounted.
func New(cfg config.ServerConfig, logger zerolog.Logger) *Server {
	engine := gin.New()
	engine.Use(RequestID(), Logger(logger), Recovery(logger))
	if mw := CORS(cfg.CORSOrigins); mw != nil {
		engine.Use(mw)
	}
	engine.Use(RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	if err := engine.SetTrustedProxies(nil); err != nil {
		logger.Warn().Err(err).Msg("failed to set trusted proxies")
	}

	engine.GET("/health", func(c *gin.Context) {
		response.New().Array(map[string]string{"status": "ok"}).Write(c)
	})

	return &Server{cfg: cfg, engine: engine, logger: logger}
}

// Engine returns the gin engine, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Group returns a router group under path for mounting controllers.
func (s *Server) Group(path string) *gin.RouterGroup {
	return s.engine.Group(path)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx := context.Background()
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	s.logger.Info().Msg("server shutting down")
	return srv.Shutdown(shutdownCtx)
}
