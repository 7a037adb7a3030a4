package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	api "library-backend/internal/api/grpc"
	"library-backend/internal/api/grpc/interceptor"
	httpapi "library-backend/internal/api/http"
	"library-backend/internal/cache"
	"library-backend/internal/clock"
	"library-backend/internal/config"
	"library-backend/internal/logger"
	"library-backend/internal/metrics"
	"library-backend/internal/repository"
	"library-backend/internal/repository/memory"
	"library-backend/internal/repository/postgres"
	"library-backend/internal/security"
	"library-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Library Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http_address", cfg.GetHTTPAddress(), "grpc_address", cfg.GetGRPCAddress())

	store, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err)
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer closeStore()

	// Shared infrastructure
	clk := clock.New()
	m := metrics.New()
	statsCache := cache.New(cfg.Cache.Size, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	tx := service.NewTxRunner(store, cfg.Loans.MaxTxAttempts, cfg.Loans.RetryBackoff(), m)

	// Initialize Services
	loanSvc := service.NewLoanService(store, tx, clk, service.LoanSettingsFromConfig(cfg.Loans), statsCache, m)
	services := httpapi.Services{
		Auth:         service.NewAuthService(store.Users(), tokenManager),
		Books:        service.NewBookService(store, tx, statsCache),
		Users:        service.NewUserService(store, statsCache),
		Loans:        loanSvc,
		Reservations: service.NewReservationService(store, clk),
		Stats:        service.NewStatsService(store.Stats(), clk, statsCache, m),
	}

	// Set up gRPC server
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.Logging(m),
			interceptor.NewAuthInterceptor(tokenManager).Unary(),
		),
	)
	api.RegisterLoanServiceServer(grpcServer, api.NewLoanHandler(loanSvc, clk))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// Register reflection service for grpcurl
	reflection.Register(grpcServer)

	// Set up REST server
	router := httpapi.NewRouter(httpapi.NewHandler(services, tokenManager, clk, store), m)
	httpServer := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", "address", cfg.GetGRPCAddress())
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetHTTPAddress())
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig)
	case err := <-errCh:
		logger.Error("Server stopped unexpectedly", "error", err)
	}

	healthServer.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Library Backend stopped")
}

// openStore connects to PostgreSQL and applies the schema, or returns the
// in-memory store when database.driver is "memory".
func openStore(cfg *config.Config) (repository.Store, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("Using in-memory store; data is lost on exit")
		return memory.NewStore(), func() {}, nil
	}

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver, "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	store, err := postgres.Open(cfg.Database.Driver, cfg.GetDatabaseConnectionString(), cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	logger.Info("Database connection established")
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}
