package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/payorders/internal/common"
	"github.com/joseph-ayodele/payorders/internal/export"
	"github.com/joseph-ayodele/payorders/internal/extraction"
	repo "github.com/joseph-ayodele/payorders/internal/repository"
	"github.com/joseph-ayodele/payorders/internal/server"
	"github.com/joseph-ayodele/payorders/internal/session"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Server.LogFormat, cfg.Server.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("payorderd.exit", "error", err)
		os.Exit(1)
	}
}

func run(cfg *common.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := session.Deps{Logger: logger, VATRatePct: cfg.Session.VATRatePct}
	var refs repo.ReferenceRepository
	var db server.Pinger

	if cfg.Database.DSN != "" {
		pool, err := repo.Open(ctx, repo.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
		if err != nil {
			return err
		}
		defer repo.Close(pool, logger)

		if err := repo.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
			return err
		}
		deps.Jobs = repo.NewExtractJobRepository(pool, logger)
		deps.Orders = repo.NewOrderRepository(pool, logger)
		refs = repo.NewReferenceRepository(pool, logger)
		db = pool
	} else {
		logger.Warn("payorderd.no_database", "detail", "orders and extract jobs are kept in memory")
		deps.Jobs = repo.NewMemoryExtractJobRepository()
		deps.Orders = repo.NewMemoryOrderRepository()
	}

	if cfg.References.File != "" {
		store, err := repo.LoadFileReferenceStore(cfg.References.File)
		if err != nil {
			return err
		}
		refs = store
		logger.Info("payorderd.references", "file", cfg.References.File)
	}

	client, err := extraction.NewClient(extraction.Config{
		URL:     cfg.Extraction.URL,
		APIKey:  cfg.Extraction.APIKey,
		Timeout: cfg.Extraction.Timeout,
		Lenient: cfg.Extraction.Lenient,
	}, logger)
	if err != nil {
		return err
	}
	deps.Extractor = client
	if cfg.Cache.Enabled {
		cache, err := extraction.OpenCache(ctx, cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer cache.Close()
		deps.Extractor = extraction.NewCachedExtractor(client, cache, logger)
	}

	registry := session.NewRegistry(deps, refs, cfg.Session.TTL)
	if err := registry.StartSweeper(cfg.Session.SweepSchedule, cfg.Session.Location); err != nil {
		return err
	}
	defer registry.StopSweeper()

	httpServer := server.New(server.Options{
		Registry:      registry,
		Exporter:      export.NewService(deps.Orders, logger),
		DB:            db,
		DocumentRoot:  cfg.Server.DocumentRoot,
		MaxDocumentMB: cfg.Extraction.MaxDocumentMB,
		Logger:        logger,
	})

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return err
	}
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	errc := make(chan error, 2)
	go func() {
		if err := httpServer.Start(cfg.Server.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	go func() {
		logger.Info("grpc.listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("payorderd.shutdown")
	case err = <-errc:
		logger.Error("payorderd.serve_failed", "error", err)
	}

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := common.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("http.shutdown_failed", "error", serr)
	}
	grpcServer.GracefulStop()
	return err
}
