package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/eshoplite-backend/api/routes"
	"github.com/angelmondragon/eshoplite-backend/internal/assistant"
	product "github.com/angelmondragon/eshoplite-backend/internal/products"
	"github.com/angelmondragon/eshoplite-backend/internal/search"
	"github.com/angelmondragon/eshoplite-backend/internal/vectorindex"
	"github.com/angelmondragon/eshoplite-backend/pkg/config"
	"github.com/angelmondragon/eshoplite-backend/pkg/db"
	"github.com/angelmondragon/eshoplite-backend/pkg/instance"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
	"github.com/angelmondragon/eshoplite-backend/pkg/metrics"
	"github.com/angelmondragon/eshoplite-backend/pkg/migrate"
	"github.com/angelmondragon/eshoplite-backend/pkg/openai"
	"github.com/angelmondragon/eshoplite-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: config.ServiceKindProducts})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = config.ServiceKindProducts

	logg = logger.New(logger.Options{
		ServiceName: config.ServiceKindProducts,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	if cfg.FeatureFlags.SeedCatalog {
		if _, err := product.Seed(context.Background(), dbClient.DB(), logg); err != nil {
			logg.Error(context.Background(), "failed to seed catalog", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	productRepo := product.NewRepository(dbClient.DB())
	catalog, err := product.NewService(productRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	// Left nil without an API key: search then degrades with a provider
	// message instead of failing startup.
	var (
		embedder search.Embedder
		chat     search.ChatCompleter
	)
	if cfg.OpenAI.Enabled() {
		client, err := openai.NewClient(cfg.OpenAI.APIKey,
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithChatModel(cfg.OpenAI.ChatModel),
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithHTTPClient(&http.Client{Timeout: cfg.OpenAI.Timeout}),
		)
		if err != nil {
			logg.Error(context.Background(), "failed to create openai client", err)
			os.Exit(1)
		}
		embedder, chat = client, client
	} else {
		logg.Warn(context.Background(), "openai api key not set, semantic search and assistant are disabled")
	}

	executor, err := search.NewExecutor(search.ExecutorParams{
		Catalog:  productRepo,
		Index:    vectorindex.NewMemory(),
		Embedder: embedder,
		Chat:     chat,
		Metrics:  metrics.NewSearchMetrics(promRegistry),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create search executor", err)
		os.Exit(1)
	}

	assistantService, err := assistant.NewService(assistant.ServiceParams{
		Retriever:       executor,
		Chat:            chat,
		Store:           assistant.NewRedisStore(redisClient, cfg.Assistant.HistoryLimit, cfg.Assistant.ConversationTTL),
		Logger:          logg,
		ContextMessages: cfg.Assistant.ContextMessages,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create assistant service", err)
		os.Exit(1)
	}

	handler := routes.NewProductsRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Gatherer:    promRegistry,
		HTTPMetrics: metrics.NewHTTPMetrics(promRegistry),
	}, catalog, executor, assistantService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"serviceKind": config.ServiceKindProducts,
		"instance":    instance.ID(),
	})

	if embedder != nil {
		go func() {
			if _, err := executor.Rebuild(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "startup index build failed", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := serve(ctx, logg, server); err != nil {
		logg.Error(ctx, "products server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "products server shut down gracefully")
}

func serve(ctx context.Context, logg *logger.Logger, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting products server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
