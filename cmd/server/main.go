package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adsdash/internal/delivery"
	"adsdash/internal/domain"
	"adsdash/internal/infrastructure"
	"adsdash/internal/usecase"
	"adsdash/pkg/config"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: environment only)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	m := metrics.New(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, closeProvider, err := newProvider(ctx, cfg, log, m)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialise data provider")
	}
	defer closeProvider()

	repo, closeRepo, err := newSessionRepository(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialise session repository")
	}
	defer closeRepo()

	loader := usecase.NewLoadService(provider, log, m, cfg.Provider.LoadTimeout)
	sessions := usecase.NewSessionService(loader, repo, log, m, cfg.Session.NoticeTTL, cfg.Session.TTL)
	go sessions.RunEviction(ctx, cfg.Session.SweepInterval)

	handlers := delivery.NewHTTPHandlers(sessions, log)
	router := delivery.NewHTTPRouter(handlers, log, m, prometheus.DefaultGatherer, cfg.Server.RequestTimeout)

	// no WriteTimeout: event streams stay open
	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithFields(map[string]any{
			"addr":     srv.Addr,
			"provider": cfg.Provider.Kind,
			"sessions": cfg.Session.Repository,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func newProvider(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (domain.DataProvider, func(), error) {
	noop := func() {}

	switch cfg.Provider.Kind {
	case config.ProviderHTTP:
		return infrastructure.NewHTTPProvider(infrastructure.HTTPProviderOptions{
			BaseURL:            cfg.Provider.BaseURL,
			Parametrized:       cfg.Provider.Parametrized,
			Timeout:            cfg.Provider.RequestTimeout,
			RateLimitPerSecond: float64(cfg.Provider.RateLimitPerSecond),
		}, log, m), noop, nil

	case config.ProviderS3:
		return infrastructure.NewS3Provider(infrastructure.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
		}, log, m), noop, nil

	case config.ProviderPostgres:
		pool, err := infrastructure.NewPostgresPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
		if err != nil {
			return nil, nil, err
		}
		return infrastructure.NewPostgresProvider(pool, log, m), pool.Close, nil

	default:
		return infrastructure.NewFileProvider(cfg.Provider.DataDir, log, m), noop, nil
	}
}

func newSessionRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (domain.SessionRepository, func(), error) {
	if cfg.Session.Repository != config.SessionRepositoryRedis {
		repo := infrastructure.NewMemorySessionRepository(cfg.Session.TTL, log)
		go repo.RunPurge(ctx, cfg.Session.SweepInterval)
		return repo, func() {}, nil
	}

	client, err := infrastructure.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	log.WithField("addr", cfg.Redis.Addr).Info("Connected to Redis")

	closeFn := func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("Failed to close Redis client")
		}
	}
	return infrastructure.NewRedisSessionRepository(client, cfg.Redis.KeyPrefix, cfg.Session.TTL, log), closeFn, nil
}
