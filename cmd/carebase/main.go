package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/carebase/pkg/api"
	"github.com/platinummonkey/carebase/pkg/async"
	"github.com/platinummonkey/carebase/pkg/auth"
	"github.com/platinummonkey/carebase/pkg/config"
	"github.com/platinummonkey/carebase/pkg/jobs"
	"github.com/platinummonkey/carebase/pkg/middleware"
	"github.com/platinummonkey/carebase/pkg/observability"
	"github.com/platinummonkey/carebase/pkg/storage/postgres"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "carebase: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).
		WithField("service", "carebase").
		WithField("version", version)

	ctx, stop := observability.SignalContext(context.Background())
	defer stop()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: version,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return err
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	authRecorders := auth.MultiRecorder{metrics}
	storageRecorders := postgres.Recorders{metrics}
	if providers != nil && providers.MeterProvider != nil {
		otelMetrics, err := observability.NewOTelMetrics(providers.MeterProvider)
		if err != nil {
			return err
		}
		authRecorders = append(authRecorders, otelMetrics)
		storageRecorders = append(storageRecorders, otelMetrics)
	}

	// Database
	conns, err := postgres.NewConnectionManager(postgres.ConnectionConfigFrom(cfg.Database), logger)
	if err != nil {
		return err
	}
	if cfg.Database.RunMigrations {
		if err := postgres.RunMigrations(ctx, conns.Primary(), logger); err != nil {
			conns.Close()
			return err
		}
	}
	repos := postgres.NewRepositories(conns.Primary(),
		postgres.WithReader(conns.Replica()),
		postgres.WithRecorder(storageRecorders),
	)

	// Redis is optional unless a backend needs it
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = postgres.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			conns.Close()
			return err
		}
	}

	revocations, purger, err := revocationStore(cfg.Auth, redisClient, repos)
	if err != nil {
		conns.Close()
		return err
	}

	var (
		audit     *auth.AuditLogger
		auditPool *async.Pool
	)
	if cfg.Auth.AuditEnabled {
		auditPool = async.NewPool("audit", 2, 256, 2*time.Second, logger)
		audit = auth.NewAuditLogger(repos.Audit, logger, auth.WithDispatcher(auditPool))
	}

	service, err := auth.NewService(
		repos.Users,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL),
		revocations,
		auth.WithRecorder(authRecorders),
		auth.WithLogger(logger),
	)
	if err != nil {
		conns.Close()
		return err
	}

	loginLimiter, loginBuckets, err := accountRateLimit("login", cfg.Auth, redisClient, metrics, audit, logger)
	if err != nil {
		conns.Close()
		return err
	}
	logoutLimiter, logoutBuckets, err := accountRateLimit("logout", cfg.Auth, redisClient, metrics, audit, logger)
	if err != nil {
		conns.Close()
		return err
	}

	server := api.NewServer(api.Dependencies{
		Auth:          service,
		LoginLimiter:  loginLimiter,
		LogoutLimiter: logoutLimiter,
		Audit:         audit,
		Patients:      repos.Patients,
		Guardians:     repos.Guardians,
		Diseases:      repos.Diseases,
		Attendance:    repos.Attendance,
		History:       repos.History,
		Logger:        logger,
		Metrics:       metrics,
	})

	var handler http.Handler = server.Handler(api.HandlerOptionsFrom(cfg.Server))
	if providers != nil {
		handler = otelhttp.NewHandler(handler, "carebase")
	}
	apiServer := api.NewHTTPServer(cfg.Server, handler)

	// Health and metrics on their own port
	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(conns.Primary(), redisClient).
		WithVersion(version).
		RequireRedis(cfg.Auth.RevocationBackend == config.BackendRedis)
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Background maintenance
	scheduler := jobs.NewScheduler(logger, jobs.WithRecorder(metrics))
	if cfg.Jobs.Enabled {
		if err := scheduleJobs(scheduler, cfg.Jobs, purger, conns, metrics, memoryCleaners(loginBuckets, logoutBuckets), logger); err != nil {
			conns.Close()
			return err
		}
		scheduler.Start()
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.Register("database", func(context.Context) error { return conns.Close() })
	if redisClient != nil {
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
	}
	shutdown.Register("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	shutdown.Register("scheduler", scheduler.Stop)
	if auditPool != nil {
		shutdown.Register("audit", auditPool.Shutdown)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("Starting carebase API server")
		return serve(apiServer)
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Starting health server")
		return serve(healthServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		return shutdown.Shutdown(context.Background())
	})

	return g.Wait()
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", srv.Addr, err)
	}
	return nil
}

// revocationStore selects the configured registry. The purger is non-nil
// only for the persistent backend.
func revocationStore(cfg config.AuthConfig, client *redis.Client, repos *postgres.Repositories) (auth.RevocationStore, jobs.Purger, error) {
	switch cfg.RevocationBackend {
	case config.BackendRedis:
		if client == nil {
			return nil, nil, errors.New("redis revocation backend requires a redis URL")
		}
		return auth.NewRedisRevocationStore(client), nil, nil
	case config.BackendPostgres:
		store := auth.NewPersistentRevocationStore(repos.RevokedTokens)
		return store, store, nil
	default:
		return auth.NewMemoryRevocationStore(cfg.TokenTTL), nil, nil
	}
}

// accountRateLimit builds the per client IP throttle of one public account
// route. The in-memory limiter is also returned so its idle buckets can be
// evicted.
func accountRateLimit(route string, cfg config.AuthConfig, client *redis.Client, metrics *observability.Metrics, audit *auth.AuditLogger, logger *observability.Logger) (*middleware.RateLimitMiddleware, *middleware.RateLimiter, error) {
	if cfg.LoginRateLimit <= 0 {
		return nil, nil, nil
	}

	limits := middleware.LoginRateLimitConfig(cfg.LoginRateLimit, cfg.LoginRateBurst)
	opts := []middleware.RateLimitOption{
		middleware.WithRateLimitRecorder(metrics),
		middleware.WithRateLimitAudit(audit),
		middleware.WithRateLimitLogger(logger.WithField("route", route)),
	}

	if cfg.RateLimitBackend == config.BackendRedis {
		if client == nil {
			return nil, nil, errors.New("redis rate limit backend requires a redis URL")
		}
		limiter := middleware.NewDistributedRateLimiter(client, limits, "carebase:ratelimit:"+route)
		return middleware.NewRateLimitMiddleware(limiter, opts...), nil, nil
	}

	limiter := middleware.NewRateLimiter(limits)
	return middleware.NewRateLimitMiddleware(limiter, opts...), limiter, nil
}

func memoryCleaners(limiters ...*middleware.RateLimiter) []jobs.Cleaner {
	var cleaners []jobs.Cleaner
	for _, l := range limiters {
		if l != nil {
			cleaners = append(cleaners, l)
		}
	}
	return cleaners
}

func scheduleJobs(s *jobs.Scheduler, cfg config.JobsConfig, purger jobs.Purger, conns *postgres.ConnectionManager, metrics *observability.Metrics, cleaners []jobs.Cleaner, logger *observability.Logger) error {
	if err := s.Add(jobs.DBStats(cfg.DBStatsSchedule, conns, metrics)); err != nil {
		return err
	}
	if purger != nil {
		if err := s.Add(jobs.RevocationPurge(cfg.RevocationPurgeSchedule, purger, logger)); err != nil {
			return err
		}
	}
	if len(cleaners) > 0 {
		if err := s.Add(jobs.LimiterCleanup(cfg.LimiterCleanupSchedule, logger, cleaners...)); err != nil {
			return err
		}
	}
	return nil
}
