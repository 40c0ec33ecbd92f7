// Package http provides the HTTP API for relnotesd.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/relnotesd/internal/llm"
	"github.com/fyrsmithlabs/relnotesd/internal/notes"
	"github.com/fyrsmithlabs/relnotesd/internal/prompt"
	"github.com/fyrsmithlabs/relnotesd/internal/redact"
	"github.com/fyrsmithlabs/relnotesd/internal/relevance"
	"github.com/fyrsmithlabs/relnotesd/internal/stream"
	"github.com/fyrsmithlabs/relnotesd/pkg/sse"
)

// statusClientClosedRequest is the non-standard nginx status for a client
// that closed the connection before the server answered.
const statusClientClosedRequest = 499

// Pull listing bounds.
const (
	defaultPullLimit = 20
	maxPullLimit     = 100
)

// ChangeLister fetches merged changes from the repository host.
type ChangeLister interface {
	ListMergedChanges(ctx context.Context, limit int) ([]notes.ChangeRecord, error)
}

// Server provides HTTP endpoints for relnotesd.
type Server struct {
	echo      *echo.Echo
	generator llm.Generator
	builder   *prompt.Builder
	redactor  redact.Redactor
	changes   ChangeLister
	filter    *relevance.Filter
	logger    *zap.Logger
	config    *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// ProgressBatchSize and IdleTimeout tune each generation session. Zero
	// values take the stream package defaults.
	ProgressBatchSize int
	IdleTimeout       time.Duration

	// MinChangedLines tunes the thorough relevance filter behind the pulls
	// listing. Zero means the relevance package default.
	MinChangedLines int
}

// NewServer creates a new HTTP server.
//
// changes may be nil when no repository host is configured; the pulls
// listing then answers 503. A nil redactor disables redaction.
func NewServer(generator llm.Generator, builder *prompt.Builder, redactor redact.Redactor, changes ChangeLister, logger *zap.Logger, cfg *Config) (*Server, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}
	if builder == nil {
		return nil, fmt.Errorf("prompt builder cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if redactor == nil {
		redactor = &redact.NoopRedactor{}
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9300,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		generator: generator,
		builder:   builder,
		redactor:  redactor,
		changes:   changes,
		filter:    relevance.NewFilter(cfg.MinChangedLines),
		logger:    logger,
		config:    cfg,
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Health check
	s.echo.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	v1.POST("/analyze", s.handleAnalyze)
	v1.GET("/pulls", s.handlePulls)
}

// AnalyzeRequest is the request body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	DiffID      string `json:"diffId"`
	Description string `json:"description"`
	DiffContent string `json:"diffContent"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleAnalyze runs one generation session over the submitted change and
// streams its events as SSE frames. The response is 200 for both generated
// and rejected changes; outcomes travel in the event stream.
func (s *Server) handleAnalyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid analyze request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.DiffContent == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "diffContent field is required")
	}

	ctx := c.Request().Context()
	select {
	case <-ctx.Done():
		// The client left before the stream opened.
		return c.NoContent(statusClientClosedRequest)
	default:
	}

	w, err := sse.NewWriter(c.Response())
	if err != nil {
		s.logger.Error("preparing event stream", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	sess, err := stream.NewSession(stream.SessionConfig{
		ID:                req.DiffID,
		Generator:         s.generator,
		Builder:           s.builder,
		Redactor:          s.redactor,
		Sink:              &sseSink{w: w},
		Logger:            s.logger,
		ProgressBatchSize: s.config.ProgressBatchSize,
		IdleTimeout:       s.config.IdleTimeout,
	})
	if err != nil {
		s.logger.Error("creating session", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "session setup failed")
	}

	rec := notes.ChangeRecord{
		ID:          sess.ID(),
		Description: req.Description,
		DiffText:    req.DiffContent,
	}

	if err := sess.Run(ctx, rec); err != nil {
		s.logger.Error("session run", zap.String("session_id", sess.ID()), zap.Error(err))
	}
	return nil
}

// handlePulls lists merged changes from the repository host, filtered and
// ranked by relevance.
func (s *Server) handlePulls(c echo.Context) error {
	if s.changes == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no repository host configured")
	}

	limit := defaultPullLimit
	if q := c.QueryParam("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		if n > maxPullLimit {
			n = maxPullLimit
		}
		limit = n
	}

	records, err := s.changes.ListMergedChanges(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error("listing merged changes", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "listing merged changes failed")
	}

	ranked := s.filter.FilterAndRank(records)
	pulls := make([]PullSummary, 0, len(ranked))
	for _, r := range ranked {
		pulls = append(pulls, PullSummary{
			ID:        r.Record.ID,
			Title:     titleLine(r.Record.Description),
			SourceURL: r.Record.SourceURL,
			Score:     r.Score,
			Reason:    r.Reason,
		})
	}

	s.logger.Debug("listed merged changes",
		zap.Int("fetched", len(records)),
		zap.Int("relevant", len(pulls)),
	)

	return c.JSON(http.StatusOK, PullsResponse{Pulls: pulls, Total: len(pulls)})
}

// sseSink bridges a session's event channel onto an SSE response.
type sseSink struct {
	w *sse.Writer
}

// WriteEvent encodes and writes one event frame.
func (s *sseSink) WriteEvent(ev stream.Event) error {
	data, err := ev.Encode()
	if err != nil {
		return err
	}
	return s.w.WriteFrame(data)
}

// Echo returns the underlying Echo instance for registering additional
// routes, such as the metrics handler.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then performs a graceful shutdown bounded by shutdownTimeout. Returns
// http.ErrServerClosed after a clean shutdown.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}

		return http.ErrServerClosed
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
