package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/benchline-erp/benchline/internal/accounts"
	"github.com/benchline-erp/benchline/internal/app"
	"github.com/benchline-erp/benchline/internal/consol"
	consolhttp "github.com/benchline-erp/benchline/internal/consol/http"
	"github.com/benchline-erp/benchline/internal/fx"
	"github.com/benchline-erp/benchline/internal/inventory"
	"github.com/benchline-erp/benchline/internal/invoicing"
	"github.com/benchline-erp/benchline/internal/ledger"
	"github.com/benchline-erp/benchline/internal/observability"
	"github.com/benchline-erp/benchline/internal/payments"
	"github.com/benchline-erp/benchline/internal/platform/db"
	"github.com/benchline-erp/benchline/internal/sale"
	"github.com/benchline-erp/benchline/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	accountsRepo := accounts.NewRepository(dbpool)
	directory := accounts.NewDirectory(accountsRepo)

	fxRepo := fx.NewRepository(dbpool)
	fxCache := fx.NewRateCache(redisClient, cfg.FXCacheTTL)
	rateResolver := fx.NewResolver(fxRepo, fxCache, logger)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, rateResolver, auditLogger, cfg.BaseCurrency)

	consolRepo := consol.NewRepository(dbpool)
	consolService := consol.NewService(consolRepo, logger, consol.Config{
		StrictInterCompany: cfg.ConsolStrictIC,
	})

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger)
	invoicingService := invoicing.NewService(invoicing.NewRepository(dbpool), auditLogger)
	paymentsService := payments.NewService(payments.NewRepository(dbpool), ledgerService, auditLogger)

	metrics := observability.NewMetrics()

	// Sale finalization is invoked in-process by POS-facing modules rather
	// than exposed on the wire.
	registry := app.ServiceRegistry{
		Accounts:  directory,
		Rates:     rateResolver,
		Ledger:    ledgerService,
		Consol:    consolService,
		Inventory: inventoryService,
		Invoicing: invoicingService,
		Payments:  paymentsService,
	}
	registry.Sale = sale.NewService(
		inventoryService,
		invoicingService,
		ledgerService,
		paymentsService,
		directory,
		idempotencyStore,
		auditLogger,
		logger,
	)
	registry.Sale.WithMetrics(metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		ConsolHandler: consolhttp.NewHandler(logger, consolService),
		Services:      &registry,
		Pool:          dbpool,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
