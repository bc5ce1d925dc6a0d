package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bagisva/vpos-gateway/internal/checkout"
	"github.com/bagisva/vpos-gateway/internal/config"
	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/bagisva/vpos-gateway/internal/gateway"
	"github.com/bagisva/vpos-gateway/internal/infrastructure/persistence"
	"github.com/bagisva/vpos-gateway/internal/infrastructure/persistence/postgres"
	"github.com/bagisva/vpos-gateway/internal/interfaces/rest/handlers"
	"github.com/bagisva/vpos-gateway/internal/interfaces/rest/middleware"
	"github.com/bagisva/vpos-gateway/internal/routing"
	"github.com/bagisva/vpos-gateway/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting vpos gateway",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := persistence.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	orderRepo := postgres.NewOrderRepository(db.Pool)
	sessionRepo := postgres.NewSessionRepository(db.Pool)
	binRepo := postgres.NewBinRepository(db.Pool)
	projectRepo := postgres.NewProjectRepository(db.Pool)
	txCoordinator := postgres.NewTransactionCoordinator(db.Pool)

	adapters := map[domain.GatewayKind]gateway.Adapter{
		domain.GatewayPrimary:   gateway.NewPrimaryAdapter(cfg.Primary),
		domain.GatewayAlternate: gateway.NewAlternateAdapter(cfg.Alternate),
	}

	router := routing.NewRouter(binRepo, logger)
	guard := checkout.NewDuplicateGuard(orderRepo, cfg.Checkout.DuplicateWindow, logger)

	checkoutService := checkout.NewService(
		orderRepo,
		sessionRepo,
		projectRepo,
		router,
		adapters,
		guard,
		cfg.Checkout.Currency,
		logger,
	)
	callbackService := checkout.NewCallbackService(orderRepo, sessionRepo, txCoordinator, adapters, logger)

	h := handlers.NewHandlers(checkoutService, callbackService, logger)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	handler := middleware.Recovery(logger)(mux)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	reconciler := worker.NewReconciler(
		orderRepo,
		sessionRepo,
		adapters,
		cfg.Worker.Interval,
		cfg.Checkout.SessionTimeout,
		cfg.Worker.BatchSize,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go reconciler.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
