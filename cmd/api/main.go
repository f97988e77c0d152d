package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/sisma-inspection/internal/adapters/cache"
	"github.com/zatekoja/sisma-inspection/internal/adapters/providers/analysis"
	"github.com/zatekoja/sisma-inspection/internal/api/handlers"
	"github.com/zatekoja/sisma-inspection/internal/api/routes"
	"github.com/zatekoja/sisma-inspection/internal/application/services"
	"github.com/zatekoja/sisma-inspection/internal/domain/providers"
	"github.com/zatekoja/sisma-inspection/internal/infrastructure/clients/openai"
	"github.com/zatekoja/sisma-inspection/internal/infrastructure/clients/redis"
	"github.com/zatekoja/sisma-inspection/internal/infrastructure/observability"
	"github.com/zatekoja/sisma-inspection/pkg/config"
	"github.com/zatekoja/sisma-inspection/pkg/secrets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Secrets must be exported before configuration is read
	vaultResult, vaultErr := secrets.ApplyVaultSecrets(ctx, secrets.LoadVaultConfigFromEnv())

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.App.Env, cfg.App.LogLevel)

	if vaultErr != nil {
		log.Warn().Err(vaultErr).Msg("Failed to load secrets from Vault")
	} else if vaultResult.Enabled {
		log.Info().
			Str("path", vaultResult.Path).
			Int("loaded", vaultResult.Loaded).
			Int("skipped", vaultResult.Skipped).
			Msg("Vault secrets loaded")
	}

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(15 * time.Second)); err != nil {
				log.Warn().Err(err).Msg("Failed to start runtime metrics")
			}
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	cacheProvider, closeCache := newCacheProvider(ctx, cfg)

	// The generator is optional; without it every report falls back
	var (
		reportGenerator    providers.ReportGenerator
		normativeResponder providers.NormativeResponder
	)
	if cfg.OpenAI.APIKey != "" {
		openaiClient, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize OpenAI client")
		} else {
			defer openaiClient.Close()
			reportGenerator = openaiClient
			normativeResponder = openaiClient
			log.Info().Str("model", cfg.OpenAI.Model).Msg("OpenAI client initialized")
		}
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, reports will use the fallback generator")
	}

	checklistService := services.NewChecklistService(reportGenerator, metrics)
	normativeService := services.NewNormativeService(normativeResponder, cacheProvider, cfg.Assistant.CacheTTL, metrics)
	imageService := services.NewImageAnalysisService(analysis.NewMockAnalyzer(cfg.Analysis.MockDelay), cfg.Analysis.MaxImageBytes, metrics)

	router := routes.NewRouter(
		handlers.NewChecklistHandler(checklistService),
		handlers.NewAssistantHandler(normativeService),
		handlers.NewImageHandler(imageService),
		routes.RateLimit{
			Cache:      cacheProvider,
			Requests:   cfg.RateLimit.Requests,
			Window:     cfg.RateLimit.Window,
			TrustProxy: cfg.RateLimit.TrustProxy,
		},
		cfg.App.AllowedOrigins,
		metrics,
	)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		closeCache()
		log.Fatal().Err(err).Str("addr", server.Addr).Msg("Failed to listen")
	}

	serveErr := serve(ctx, server, listener, cfg.Server.ShutdownTimeout)

	// In-flight requests have drained; the cache is no longer reachable.
	closeCache()

	if serveErr != nil {
		log.Error().Err(serveErr).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

// serve runs server on listener until ctx is done, then shuts it down and
// waits for in-flight requests for up to shutdownTimeout.
func serve(ctx context.Context, server *http.Server, listener net.Listener, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", listener.Addr().String()).Msg("Server starting")
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newCacheProvider connects to Redis when enabled and falls back to an
// in-process cache otherwise. The returned func releases the connection.
func newCacheProvider(ctx context.Context, cfg *config.Config) (providers.CacheProvider, func()) {
	noop := func() {}
	if !cfg.Redis.Enabled {
		log.Info().Msg("Redis disabled, using in-memory cache")
		return cache.NewMemoryAdapter(cfg.Cache.MaxEntries, cfg.Cache.TTL), noop
	}

	redisClient, err := redis.NewClient(ctx, &cfg.Redis, func(attempt int, err error, next time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("Redis not ready")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis client, using in-memory cache")
		return cache.NewMemoryAdapter(cfg.Cache.MaxEntries, cfg.Cache.TTL), noop
	}

	log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
	return cache.NewRedisAdapter(redisClient), func() {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Redis client")
		}
	}
}
