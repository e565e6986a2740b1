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

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/api/routes"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/agent"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/agent/tools"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/catalog"
	checkoutsvc "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/checkout"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/conversations"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/orders"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/internal/payments"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/config"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/db"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/llm"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/logger"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/metrics"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/redis"
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
	var shutdowns []func() error

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	shutdowns = append(shutdowns, dbClient.Close)

	if err := dbClient.Migrate(ctx); err != nil {
		logg.Error(ctx, "failed to migrate database", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	var conversationStore conversations.Store = conversations.NewMemoryStore()
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		shutdowns = append(shutdowns, redisClient.Close)

		conversationStore, err = conversations.NewRedisStore(redisClient)
		if err != nil {
			logg.Error(ctx, "failed to create conversation store", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "redis not configured, conversations are in-memory only")
	}

	var paymentProvider payments.Provider
	if cfg.Stripe.Enabled() {
		paymentProvider, err = payments.NewStripeProvider(ctx, cfg.Stripe, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap stripe", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "stripe not configured, payments run against the in-memory provider")
		paymentProvider = payments.NewFakeProvider()
	}

	cat, err := catalog.Load(cfg.Commerce.CatalogPath)
	if err != nil {
		logg.Error(ctx, "failed to load product catalog", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	agentMetrics := metrics.NewAgentMetrics(registry)

	orderStore := orders.NewRepository(dbClient.DB())

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Store:      checkoutsvc.NewRepository(dbClient.DB()),
		Orders:     orderStore,
		Products:   cat,
		Payments:   paymentProvider,
		Logger:     logg,
		Metrics:    checkoutMetrics,
		Currency:   cfg.Commerce.Currency,
		TaxRateBps: cfg.Commerce.TaxRateBps,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	commerceTools, err := tools.NewCommerceRegistry(checkoutService, cat)
	if err != nil {
		logg.Error(ctx, "failed to build commerce tools", err)
		os.Exit(1)
	}

	sources := []tools.Source{commerceTools}
	if cfg.ToolProvider.URL != "" {
		proxy, err := tools.NewProxy(cfg.ToolProvider, logg)
		if err != nil {
			logg.Error(ctx, "failed to configure tool provider proxy", err)
			os.Exit(1)
		}
		sources = append(sources, proxy)
	}

	dispatcher, err := tools.NewDispatcher(logg, agentMetrics, sources...)
	if err != nil {
		logg.Error(ctx, "failed to create tool dispatcher", err)
		os.Exit(1)
	}

	modelClient, err := llm.NewClient(cfg.OpenAI, logg)
	if err != nil {
		logg.Error(ctx, "failed to create model client", err)
		os.Exit(1)
	}

	agentController, err := agent.NewController(agent.ControllerParams{
		Model:         modelClient,
		Tools:         dispatcher,
		Conversations: conversationStore,
		Logger:        logg,
		Metrics:       agentMetrics,
		Config:        cfg.Agent,
	})
	if err != nil {
		logg.Error(ctx, "failed to create agent controller", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		Redis:           redisClient,
		Catalog:         cat,
		Checkout:        checkoutService,
		Orders:          orderStore,
		Payments:        paymentProvider,
		Agent:           agentController,
		MetricsRegistry: registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	closeErr := server.Shutdown(shutdownCtx)
	for _, fn := range shutdowns {
		closeErr = multierr.Append(closeErr, fn())
	}
	if closeErr != nil {
		logg.Error(ctx, "shutdown finished with errors", closeErr)
		os.Exit(1)
	}
	logg.Info(ctx, "shutdown complete")
}
