package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/allegro/bigcache/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/banking/fraud-risk-service/internal/api"
	"github.com/banking/fraud-risk-service/internal/clients"
	"github.com/banking/fraud-risk-service/internal/config"
	"github.com/banking/fraud-risk-service/internal/consumer"
	"github.com/banking/fraud-risk-service/internal/domain"
	"github.com/banking/fraud-risk-service/internal/events"
	"github.com/banking/fraud-risk-service/internal/geo"
	"github.com/banking/fraud-risk-service/internal/idempotency"
	"github.com/banking/fraud-risk-service/internal/pkg/logger"
	"github.com/banking/fraud-risk-service/internal/pkg/metrics"
	"github.com/banking/fraud-risk-service/internal/pkg/tracing"
	"github.com/banking/fraud-risk-service/internal/repository"
	"github.com/banking/fraud-risk-service/internal/resilience"
	"github.com/banking/fraud-risk-service/internal/scoring"
	"github.com/banking/fraud-risk-service/internal/velocity"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Environment, cfg.Telemetry.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal("failed to initialize tracing", logger.ErrorField(err))
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Infrastructure connections.
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer func() { _ = rdb.Close() }()

	pool, err := pgxpool.New(ctx, databaseDSN(cfg.Database))
	if err != nil {
		log.Fatal("failed to connect to postgres", logger.ErrorField(err))
	}
	defer pool.Close()

	localCacheCfg := bigcache.DefaultConfig(cfg.Velocity.LocalCacheTTL)
	localCacheCfg.HardMaxCacheSize = cfg.Velocity.LocalCacheMaxMB
	localCache, err := bigcache.New(ctx, localCacheCfg)
	if err != nil {
		log.Fatal("failed to create local cache", logger.ErrorField(err))
	}

	syncProducer, err := events.NewSyncProducer(cfg.Kafka)
	if err != nil {
		log.Fatal("failed to create sync producer", logger.ErrorField(err))
	}
	asyncProducer, err := events.NewAsyncProducer(cfg.Kafka)
	if err != nil {
		log.Fatal("failed to create async producer", logger.ErrorField(err))
	}
	consumerGroup, err := consumer.NewConsumerGroup(cfg.Kafka)
	if err != nil {
		log.Fatal("failed to create consumer group", logger.ErrorField(err))
	}

	// Domain wiring.
	breakerGauge := func(name string, state gobreaker.State) {
		m.SetBreakerState(name, float64(state))
	}
	mlClient := clients.NewMLClient(cfg.Clients, cfg.Resilience.MLPredictor, log,
		resilience.WithStateChangeHook[domain.MLPrediction](breakerGauge))
	accountClient := clients.NewAccountClient(cfg.Clients, cfg.Resilience.AccountProfile, rdb, log,
		resilience.WithStateChangeHook[*domain.AccountProfile](breakerGauge))
	ruleClient := clients.NewRuleEngineClient(cfg.Clients, log)

	counter := velocity.NewCounter(rdb, localCache, log)
	validator := geo.NewValidator(accountClient, cfg.Geo, log)
	repo := repository.NewAssessmentRepository(pool)
	publisher := events.NewPublisher(syncProducer, asyncProducer, cfg.Kafka, m, log)
	defer func() { _ = publisher.Close() }()

	scoringService := scoring.NewService(mlClient, ruleClient, counter, validator, cfg.Scoring, log)
	pipeline := scoring.NewPipeline(counter, scoringService, scoring.NewDecisionEngine(), repo, publisher, m, log)

	guard := idempotency.NewGuard(rdb, cfg.Idempotency.TTL)
	streamConsumer := consumer.New(consumerGroup, cfg.Kafka, guard, pipeline, m, log)

	// HTTP servers.
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Security.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))
	api.NewHandler(pipeline, repo, log).Register(e)

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("server started", logger.StringField("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal("server stopped unexpectedly", logger.ErrorField(err))
		}
	}()
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("metrics server stopped unexpectedly", logger.ErrorField(err))
		}
	}()
	go func() {
		if err := streamConsumer.Run(ctx); err != nil {
			log.Error("consumer stopped", logger.ErrorField(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := streamConsumer.Close(); err != nil {
		log.Error("consumer close failed", logger.ErrorField(err))
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", logger.ErrorField(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown failed", logger.ErrorField(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown failed", logger.ErrorField(err))
	}

	log.Info("server exited")
}

func databaseDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_max_conn_lifetime=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
		cfg.MaxConns, cfg.ConnMaxLifetime,
	)
}
