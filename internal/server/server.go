// Package server is the HTTP boundary between the form UI and the session
// orchestrator.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/payorders/constants"
	"github.com/joseph-ayodele/payorders/internal/export"
	"github.com/joseph-ayodele/payorders/internal/session"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Registry *session.Registry
	Exporter *export.Service
	// DB is optional; when set /healthz pings it.
	DB Pinger
	// DocumentRoot enables attaching documents by server-side path. Paths
	// are resolved inside it. Empty disables path attachment.
	DocumentRoot  string
	MaxDocumentMB int
	Logger        *slog.Logger
}

type Server struct {
	echo     *echo.Echo
	registry *session.Registry
	exporter *export.Service
	db       Pinger
	docRoot  string
	maxMB    int
	logger   *slog.Logger
	started  time.Time
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxMB := opts.MaxDocumentMB
	if maxMB <= 0 {
		maxMB = constants.MaxDocumentMBDefault
	}

	s := &Server{
		echo:     echo.New(),
		registry: opts.Registry,
		exporter: opts.Exporter,
		db:       opts.DB,
		docRoot:  opts.DocumentRoot,
		maxMB:    maxMB,
		logger:   logger,
		started:  time.Now(),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)
	e.Use(middleware.Recover())
	e.Use(requestContext())
	e.Use(requestLogger(logger))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", maxMB*2)))

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	g := e.Group("/sessions")
	g.POST("", s.createSession)
	g.GET("/:id", s.getSession)
	g.DELETE("/:id", s.deleteSession)
	g.PATCH("/:id", s.editSession)
	g.POST("/:id/document", s.attachDocument)
	g.GET("/:id/discrepancies", s.discrepancies)
	g.POST("/:id/submit", s.submit)

	e.GET("/orders/export", s.exportOrders)
}

// Handler exposes the router, for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown. It returns http.ErrServerClosed after
// a clean shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("http.listening", "addr", addr)
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
