// Command cognigate runs the AI agent governance gateway: it wires
// config, logging, telemetry, and the ten gateway components into an HTTP
// server with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/vorion/cognigate/core"
	"github.com/vorion/cognigate/internal/breaker"
	"github.com/vorion/cognigate/internal/cache"
	"github.com/vorion/cognigate/internal/critic"
	"github.com/vorion/cognigate/internal/critic/provider"
	"github.com/vorion/cognigate/internal/gateway"
	"github.com/vorion/cognigate/internal/httpapi"
	"github.com/vorion/cognigate/internal/ledger"
	"github.com/vorion/cognigate/internal/model"
	"github.com/vorion/cognigate/internal/policy"
	"github.com/vorion/cognigate/internal/telemetry"
	"github.com/vorion/cognigate/internal/tripwire"
	"github.com/vorion/cognigate/internal/trust"
	"github.com/vorion/cognigate/internal/velocity"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := core.NewConfig()
	if err != nil {
		return err
	}
	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:  cfg.Name,
		Development:  cfg.Development.DebugLogging,
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	})
	if err != nil {
		logger.Error("telemetry setup failed, continuing without tracing", map[string]interface{}{"error": err.Error()})
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tel.Shutdown(shutdownCtx)
		}()
	}
	core.SetMetricsRegistry(telemetry.NewCounters())

	gw, err := buildGateway(cfg, logger)
	if err != nil {
		return err
	}

	server := httpapi.NewServer(gw, logger)
	handler := core.LoggingMiddleware(logger, cfg.Development.DebugLogging)(server.Handler())
	if cfg.HTTP.CORS.Enabled {
		handler = core.CORSMiddleware(&cfg.HTTP.CORS)(handler)
	}

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", map[string]interface{}{"port": cfg.Port})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received", nil)
	case err := <-serveErr:
		logger.Error("http server failed", map[string]interface{}{"error": err.Error()})
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// buildGateway constructs all ten components from cfg and composes them
// into a Gateway. This is the only place process-wide singletons are
// built; everything downstream takes them as explicit dependencies.
func buildGateway(cfg *core.Config, logger core.Logger) (*gateway.Gateway, error) {
	catalog, err := policy.CatalogWithSupplement(os.Getenv("COGNIGATE_POLICY_CATALOG_FILE"))
	if err != nil {
		return nil, err
	}

	var cacheMemory cache.Memory
	if cfg.Cache.RedisURL != "" {
		redisClient, err := core.NewRedisClient(core.RedisClientOptions{
			RedisURL:  cfg.Cache.RedisURL,
			DB:        core.RedisDBCache,
			Namespace: "cache",
			Logger:    logger,
		})
		if err != nil {
			logger.Warn("redis cache tier unavailable, falling back to in-process only", map[string]interface{}{"error": err.Error()})
		} else {
			cacheMemory = cache.NewRedisTier(core.NewRedisMemory(redisClient), core.DefaultCacheKeyPrefix)
		}
	}

	criticProvider, err := provider.New(cfg.Critic.Provider, providerConfig(cfg))
	if err != nil {
		return nil, err
	}
	reviewer := critic.New(criticProvider, func() string { return model.NewCriticID() })

	deps := gateway.Deps{
		Logger:          logger,
		Tripwire:        tripwire.New(),
		Velocity:        velocity.New(cfg.Velocity.PruneAfter),
		Breaker:         breaker.New(nil),
		Trust: trust.New(trust.Config{
			DefaultLevel:  model.TrustLevel(cfg.Trust.DefaultLevel),
			DecayRate:     cfg.Trust.DecayRate,
			DecayInterval: cfg.Trust.DecayInterval,
			PerUpdateCap:  cfg.Trust.PerUpdateCap,
			PerHourCap:    cfg.Trust.PerHourCap,
			PerDayCap:     cfg.Trust.PerDayCap,
		}),
		Catalog:         catalog,
		Cache:           cache.New(cfg.Cache.MaxItems, cfg.Cache.TTL, cfg.Cache.Enabled, cacheMemory),
		Ledger:          ledger.New(func() string { return model.NewProofID() }),
		Reviewer:        reviewer,
		CriticEnabled:   cfg.Critic.Enabled,
		RequestDeadline: cfg.HTTP.RequestDeadline,
		CriticDeadline:  cfg.HTTP.CriticDeadline,
	}

	return gateway.New(deps), nil
}

func providerConfig(cfg *core.Config) provider.Config {
	pc := provider.Config{Temperature: cfg.Critic.Temperature, Timeout: cfg.Critic.Timeout}
	switch cfg.Critic.Provider {
	case "anthropic":
		pc.APIKey, pc.Model = cfg.Critic.AnthropicAPIKey, cfg.Critic.ModelAnthropic
	case "openai":
		pc.APIKey, pc.Model = cfg.Critic.OpenAIAPIKey, cfg.Critic.ModelOpenAI
	case "google":
		pc.APIKey, pc.Model = cfg.Critic.GoogleAPIKey, cfg.Critic.ModelGoogle
	case "xai":
		pc.APIKey, pc.Model = cfg.Critic.XAIAPIKey, cfg.Critic.ModelXAI
	}
	return pc
}
