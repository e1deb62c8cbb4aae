package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/eshoplite-backend/api/controllers"
	"github.com/angelmondragon/eshoplite-backend/api/middleware"
	"github.com/angelmondragon/eshoplite-backend/internal/assistant"
	"github.com/angelmondragon/eshoplite-backend/internal/payments"
	product "github.com/angelmondragon/eshoplite-backend/internal/products"
	"github.com/angelmondragon/eshoplite-backend/internal/search"
	"github.com/angelmondragon/eshoplite-backend/pkg/config"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
	"github.com/angelmondragon/eshoplite-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/eshoplite-backend/pkg/redis"
)

// RedisStore is the redis surface the HTTP layer needs: readiness,
// idempotent replay and rate limit counters.
type RedisStore interface {
	pkgredis.ReplayStore
	pkgredis.Counter
	Ping(context.Context) error
}

// Searcher answers semantic queries and rebuilds the vector index.
type Searcher interface {
	Search(ctx context.Context, query string) search.Result
	Rebuild(ctx context.Context) (search.RebuildReport, error)
}

// Deps carries what both routers share.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       RedisStore
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

func newBaseRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(deps.Logger),
		middleware.Recoverer(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(deps.Config.App.AllowedOrigins()),
	)

	var redisPinger controllers.Pinger
	if deps.Redis != nil {
		redisPinger = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.DB, redisPinger))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	return r
}

// idempotency returns the replay middleware, or a pass-through without redis.
func idempotency(deps Deps) func(http.Handler) http.Handler {
	if deps.Redis == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.Idempotency(deps.Redis, deps.Config.RateLimit.IdempotencyTTL, deps.Logger)
}

func rateLimit(deps Deps, policy middleware.RateLimitPolicy) func(http.Handler) http.Handler {
	if deps.Redis == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(policy, deps.Redis, deps.Logger)
}

// NewPaymentsRouter serves the payment record API.
func NewPaymentsRouter(deps Deps, paymentService payments.Service) http.Handler {
	r := newBaseRouter(deps)

	r.With(idempotency(deps)).Post("/api/payments", controllers.CreatePayment(paymentService, deps.Logger))
	r.Get("/api/payments", controllers.ListPayments(paymentService, deps.Logger))
	r.Get("/api/payments/{paymentId}", controllers.GetPayment(paymentService, deps.Logger))

	return r
}

// NewProductsRouter serves the catalog, both search flavours and the
// shopping assistant.
func NewProductsRouter(deps Deps, catalog product.Service, searcher Searcher, assistantService assistant.Service) http.Handler {
	r := newBaseRouter(deps)

	searchPolicy := middleware.NewRateLimitPolicy("search", deps.Config.RateLimit.SearchWindow, deps.Config.RateLimit.SearchIPLimit)
	assistantPolicy := middleware.NewRateLimitPolicy("assistant", deps.Config.RateLimit.AssistantWindow, deps.Config.RateLimit.AssistantIPLimit)

	// Registered flat so the matched pattern equals the path the
	// idempotency rules are keyed on.
	r.Get("/api/products", controllers.ListProducts(catalog, deps.Logger))
	r.With(idempotency(deps)).Post("/api/products", controllers.CreateProduct(catalog, deps.Logger))
	r.Get("/api/products/search/{search}", controllers.KeywordSearch(catalog, deps.Logger))
	r.Post("/api/products/index/rebuild", controllers.RebuildIndex(searcher, deps.Logger))
	r.Get("/api/products/{productId}", controllers.GetProduct(catalog, deps.Logger))
	r.Put("/api/products/{productId}", controllers.UpdateProduct(catalog, deps.Logger))
	r.Delete("/api/products/{productId}", controllers.DeleteProduct(catalog, deps.Logger))

	r.With(rateLimit(deps, searchPolicy)).Get("/api/aisearch/{search}", controllers.SemanticSearch(searcher, deps.Logger))

	r.Route("/api/agent", func(r chi.Router) {
		r.With(rateLimit(deps, assistantPolicy)).Post("/chat", controllers.AgentChat(assistantService, deps.Logger))
		r.Delete("/conversations/{conversationId}", controllers.DeleteConversation(assistantService, deps.Logger))
	})

	return r
}
