package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/api/controllers"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/api/middleware"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/agent"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/catalog"
	checkoutsvc "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/checkout"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/orders"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/payments"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/config"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/db"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/logger"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/redis"
)

type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           *redis.Client
	Catalog         *catalog.Catalog
	Checkout        checkoutsvc.Service
	Orders          orders.Store
	Payments        payments.Provider
	Agent           *agent.Controller
	MetricsRegistry *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.DB, deps.Redis))
	})

	if deps.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Get("/products/feed", controllers.ProductFeed(deps.Catalog, deps.Logger))

	r.Route("/checkout_sessions", func(r chi.Router) {
		r.Post("/", controllers.CreateCheckoutSession(deps.Checkout, deps.Logger))
		r.Get("/{id}", controllers.GetCheckoutSession(deps.Checkout, deps.Logger))
		r.Post("/{id}", controllers.UpdateCheckoutSession(deps.Checkout, deps.Logger))
		r.Post("/{id}/complete", controllers.CompleteCheckoutSession(deps.Checkout, deps.Logger))
	})

	r.Get("/orders", controllers.ListOrders(deps.Orders, deps.Logger))

	r.Post("/payment_intents", controllers.CreatePaymentIntent(deps.Payments, deps.Checkout, deps.Logger))

	r.Post("/chat", controllers.Chat(deps.Agent, deps.Logger))

	return r
}
