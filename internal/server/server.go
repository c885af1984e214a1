// Package server exposes the pipeline over HTTP.
//
// The route layer is deliberately thin: request parsing, error-to-status
// mapping, and JSON encoding. All engineering lives in the rotation
// pipeline behind the Pipeline interface.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rotationlab/rotation-data/internal/api"
	"github.com/rotationlab/rotation-data/internal/metrics"
	"github.com/rotationlab/rotation-data/internal/rotation"
)

// Pipeline is the query surface of the rotation service.
type Pipeline interface {
	ListCategories(ctx context.Context) ([]rotation.Category, error)
	CategoryDetail(ctx context.Context, id string) (*api.CategoryDetail, error)
	CategoryHistory(ctx context.Context, id string, days int) (*rotation.CategorySeries, error)
	CompareCategories(ctx context.Context, ids []string, days int) ([]rotation.CategorySeries, error)
	TopTokens(ctx context.Context, name string, limit int) ([]rotation.TopToken, error)
	TokensHistory(ctx context.Context, ids []int64, days int) ([]rotation.TokenHistory, error)
	RotationAnalysis(ctx context.Context) (map[string]any, error)
}

// Pinger reports document store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds HTTP server settings.
type Config struct {
	Addr       string
	CORSOrigin string
}

// Server serves the produced HTTP surface.
type Server struct {
	cfg      Config
	pipeline Pipeline
	pinger   Pinger
	logger   *slog.Logger
	metrics  *metrics.Metrics

	srv *http.Server
}

// New creates a Server. pinger and m may be nil.
func New(cfg Config, pipeline Pipeline, pinger Pinger, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		pipeline: pipeline,
		pinger:   pinger,
		logger:   logger,
		metrics:  m,
	}
}

// Handler builds the route table with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("GET /categories/compare", s.handleCompareCategories)
	mux.HandleFunc("GET /categories/{id}", s.handleCategoryDetail)
	mux.HandleFunc("GET /categories/{id}/historical", s.handleCategoryHistory)
	mux.HandleFunc("GET /category/{name}/top-tokens", s.handleTopTokens)
	mux.HandleFunc("POST /tokens/historical", s.handleTokensHistory)
	mux.HandleFunc("GET /api/rotation-analysis", s.handleRotationAnalysis)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withMiddleware(mux)
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", "err", err)
		}
	}()

	s.logger.Info("http server starting", "addr", s.cfg.Addr)
	if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
