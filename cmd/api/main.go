package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/jkhalligan/gala-ticket-platform/api/routes"
	"github.com/jkhalligan/gala-ticket-platform/internal/allocation"
	"github.com/jkhalligan/gala-ticket-platform/internal/audit"
	"github.com/jkhalligan/gala-ticket-platform/internal/events"
	"github.com/jkhalligan/gala-ticket-platform/internal/export"
	"github.com/jkhalligan/gala-ticket-platform/internal/guests"
	"github.com/jkhalligan/gala-ticket-platform/internal/orders"
	"github.com/jkhalligan/gala-ticket-platform/internal/permissions"
	"github.com/jkhalligan/gala-ticket-platform/internal/promos"
	"github.com/jkhalligan/gala-ticket-platform/internal/refcodes"
	"github.com/jkhalligan/gala-ticket-platform/internal/tables"
	paymentswebhook "github.com/jkhalligan/gala-ticket-platform/internal/webhooks/payments"
	"github.com/jkhalligan/gala-ticket-platform/pkg/config"
	"github.com/jkhalligan/gala-ticket-platform/pkg/db"
	"github.com/jkhalligan/gala-ticket-platform/pkg/logger"
	"github.com/jkhalligan/gala-ticket-platform/pkg/metrics"
	"github.com/jkhalligan/gala-ticket-platform/pkg/migrate"
	"github.com/jkhalligan/gala-ticket-platform/pkg/outbox"
	"github.com/jkhalligan/gala-ticket-platform/pkg/outbox/idempotency"
	"github.com/jkhalligan/gala-ticket-platform/pkg/redis"
	"github.com/jkhalligan/gala-ticket-platform/pkg/sheets"
	"github.com/jkhalligan/gala-ticket-platform/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	squareClient, err := square.NewClient(ctx, cfg.Square, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap square client", err)
		os.Exit(1)
	}

	sheetsClient, err := sheets.NewClient(ctx, cfg.GCP, cfg.Sheets, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap sheets client", err)
		os.Exit(1)
	}

	confirmationLog, err := idempotency.NewManager(redisClient, cfg.Eventing.WebhookIdempotencyTTL)
	if err != nil {
		logg.Error(ctx, "failed to create idempotency manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	auditRec := audit.NewRecorder(logg)
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)
	perms := permissions.NewEngine()
	alloc := allocation.NewAllocator()
	codes := refcodes.NewGenerator()

	eventsService, err := events.NewService(events.NewRepository(gormDB), dbClient, auditRec, logg)
	if err != nil {
		logg.Error(ctx, "failed to create events service", err)
		os.Exit(1)
	}

	tablesService, err := tables.NewService(gormDB, tables.NewRepository(gormDB), dbClient, perms, alloc, codes, auditRec, outboxSvc, logg)
	if err != nil {
		logg.Error(ctx, "failed to create tables service", err)
		os.Exit(1)
	}

	guestsService, err := guests.NewService(gormDB, guests.NewRepository(gormDB), dbClient, perms, alloc, codes, auditRec, outboxSvc, logg)
	if err != nil {
		logg.Error(ctx, "failed to create guests service", err)
		os.Exit(1)
	}

	promosService, err := promos.NewService(promos.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(ctx, "failed to create promos service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(gormDB, orders.NewRepository(gormDB), dbClient, alloc, promosService, codes, auditRec, outboxSvc, squareClient, confirmationLog, cfg.Orders, logg)
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	exportService, err := export.NewService(gormDB, dbClient, sheetsClient, alloc, auditRec, outboxSvc, cfg.Sheets, logg)
	if err != nil {
		logg.Error(ctx, "failed to create export service", err)
		os.Exit(1)
	}

	webhookService, err := paymentswebhook.NewService(
		ordersService,
		confirmationLog,
		metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		logg.Error(ctx, "failed to create payments webhook service", err)
		os.Exit(1)
	}

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient, redisClient,
			redisClient,
			squareClient,
			eventsService,
			tablesService,
			guestsService,
			ordersService,
			promosService,
			exportService,
			webhookService,
			checkoutMetrics,
			auditRec,
			gormDB,
		),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logg.Error(startCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	case sig := <-stop:
		logg.Info(logg.WithField(startCtx, "signal", sig.String()), "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	shutdownErr := server.Shutdown(shutdownCtx)
	shutdownErr = multierr.Append(shutdownErr, redisClient.Close())
	shutdownErr = multierr.Append(shutdownErr, dbClient.Close())
	if shutdownErr != nil {
		logg.Error(startCtx, "graceful shutdown failed", shutdownErr)
		os.Exit(1)
	}
}
