package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/eshoplite-backend/pkg/config"
	"github.com/angelmondragon/eshoplite-backend/pkg/db"
	"github.com/angelmondragon/eshoplite-backend/pkg/instance"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
	"github.com/angelmondragon/eshoplite-backend/pkg/metrics"
	"github.com/angelmondragon/eshoplite-backend/pkg/migrate"
	"github.com/angelmondragon/eshoplite-backend/pkg/outbox"
	"github.com/angelmondragon/eshoplite-backend/pkg/outbox/registry"
	"github.com/angelmondragon/eshoplite-backend/pkg/pubsub"
)

const metricsShutdownTimeout = 5 * time.Second

func main() {
	boot := logger.New(logger.Options{ServiceName: config.ServiceKindOutbox})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err == nil {
		err = cfg.RequirePubSub()
	}
	if err != nil {
		boot.Error(context.Background(), "invalid configuration", err)
		os.Exit(1)
	}
	cfg.Service.Kind = config.ServiceKindOutbox

	logg := logger.New(logger.Options{
		ServiceName: config.ServiceKindOutbox,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": config.ServiceKindOutbox,
		"instance":    instance.ID(),
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "outbox publisher stopped", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shut down")
}

// run wires the relay and the retention sweeper and blocks until ctx ends
// or the relay fails.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	sender, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer func() { err = multierr.Append(err, sender.Close()) }()

	routes, err := registry.NewRoutes(cfg.PubSub)
	if err != nil {
		return err
	}

	repo := outbox.NewRepository(dbClient.DB())
	reg := prometheus.NewRegistry()
	relay, err := NewRelay(RelayParams{
		Outbox:  cfg.Outbox,
		Logger:  logg,
		DB:      dbClient,
		Sender:  sender,
		Store:   repo,
		Routes:  routes,
		Metrics: metrics.NewOutboxMetrics(reg),
	})
	if err != nil {
		return err
	}
	sweeper, err := newRetentionSweeper(logg, dbClient, repo, cfg.Outbox.RetentionDays, cfg.Outbox.RetentionInterval)
	if err != nil {
		return err
	}

	srv := serveMetrics(ctx, ":"+cfg.App.Port, reg, logg)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting outbox publisher")
	go sweeper.Run(ctx)

	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logg *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()
	return srv
}
