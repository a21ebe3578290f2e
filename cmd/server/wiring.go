package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"landtrust/internal/listings"
	"landtrust/internal/platform/config"
	"landtrust/internal/platform/database"
	"landtrust/internal/platform/health"
	"landtrust/internal/platform/kafka/producer"
	"landtrust/internal/platform/metrics"
	redisclient "landtrust/internal/platform/redis"
	httptransport "landtrust/internal/transport/http"
	"landtrust/internal/verification/audit"
	vhandler "landtrust/internal/verification/handler"
	vmetrics "landtrust/internal/verification/metrics"
	"landtrust/internal/verification/orchestrator"
	"landtrust/internal/verification/providers"
	"landtrust/internal/verification/providers/adapters"
	"landtrust/internal/verification/providers/bizregistry"
	"landtrust/internal/verification/providers/emailcheck"
	"landtrust/internal/verification/providers/peopledata"
	"landtrust/internal/verification/providers/propertyrecords"
	"landtrust/internal/verification/service"
	"landtrust/internal/verification/store"
	"landtrust/internal/verification/tracer"
	"landtrust/migrations"
	"landtrust/pkg/platform/middleware/request"
)

const (
	auditBufferSize   = 256
	poolStatsInterval = 15 * time.Second
	producerFlushWait = 5 * time.Second
)

type app struct {
	router  http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger, reg *prometheus.Registry) (*app, error) {
	a := &app{}
	checks := health.New(cfg.Environment)

	registry, err := buildRegistry(cfg.EnabledProviders())
	if err != nil {
		return nil, err
	}
	verificationMetrics := vmetrics.NewWithRegisterer(reg)
	coordinator := orchestrator.New(orchestrator.Config{
		Registry:         registry,
		Timeout:          cfg.ProviderTimeout,
		Timeouts:         timeouts(cfg.EnabledProviders()),
		FailureThreshold: cfg.CircuitFailureThreshold,
		Cooldown:         cfg.CircuitCooldown,
		Logger:           log,
		Metrics:          verificationMetrics,
		Tracer:           tracer.NewOTel(),
	})

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(verificationMetrics),
		service.WithTracer(tracer.NewOTel()),
	}

	if cfg.ReportCacheTTL > 0 {
		cache, err := buildCache(ctx, cfg, log, reg, a, checks)
		if err != nil {
			a.close()
			return nil, err
		}
		opts = append(opts, service.WithCache(cache))
	} else {
		log.Info("REPORT_CACHE_TTL is 0, report cache disabled")
	}

	history, err := buildHistory(ctx, cfg, log, reg, a, checks)
	if err != nil {
		a.close()
		return nil, err
	}
	if history != nil {
		opts = append(opts, service.WithHistory(history))
	}

	auditor, err := buildAuditor(cfg, log, a, checks)
	if err != nil {
		a.close()
		return nil, err
	}
	opts = append(opts, service.WithAuditor(auditor))

	svc := service.New(coordinator, opts...)
	search := listings.NewService(buildListingSources(cfg.EnabledListings()), log)

	a.router = httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Metrics:        request.NewMetrics(reg),
		MetricsHandler: metrics.Handler(reg),
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RequestTimeout: cfg.RequestTimeout,
		Modules: []httptransport.Routes{
			checks,
			vhandler.New(svc, log),
			listings.NewHandler(search, log),
		},
	})

	checks.RegisterInfo("circuits", func() any {
		states := make(map[string]string, len(registry.IDs()))
		for _, id := range registry.IDs() {
			states[id] = coordinator.CircuitState(id)
		}
		return states
	})
	log.Info("verification providers configured", "providers", registry.IDs())
	log.Info("listing sources configured", "sources", search.Sources())
	return a, nil
}

func clientConfig(p config.ProviderConfig) adapters.ClientConfig {
	return adapters.ClientConfig{
		BaseURL:    p.BaseURL,
		Credential: adapters.Credential{Value: p.Credential},
		Timeout:    p.Timeout,
	}
}

func buildRegistry(enabled []config.ProviderConfig) (*providers.Registry, error) {
	registry := providers.NewRegistry()
	for _, p := range enabled {
		var provider providers.Provider
		switch p.ID {
		case config.ProviderPeopleData:
			provider = peopledata.New(clientConfig(p))
		case config.ProviderHunter:
			provider = emailcheck.New(clientConfig(p))
		case config.ProviderBusinessReg:
			provider = bizregistry.New(clientConfig(p))
		case config.ProviderPropertyRecords:
			provider = propertyrecords.New(clientConfig(p))
		default:
			return nil, fmt.Errorf("unknown verification provider %q", p.ID)
		}
		if err := registry.Register(provider); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func timeouts(enabled []config.ProviderConfig) map[string]time.Duration {
	out := make(map[string]time.Duration)
	for _, p := range enabled {
		if p.Timeout > 0 {
			out[p.ID] = p.Timeout
		}
	}
	return out
}

func buildListingSources(enabled []config.ProviderConfig) []listings.Source {
	sources := make([]listings.Source, 0, len(enabled))
	for _, p := range enabled {
		switch p.ID {
		case config.ListingZillow:
			sources = append(sources, listings.NewZillow(clientConfig(p)))
		case config.ListingAttom:
			sources = append(sources, listings.NewAttom(clientConfig(p)))
		case config.ListingRentCast:
			sources = append(sources, listings.NewRentCast(clientConfig(p)))
		}
	}
	return sources
}

func buildCache(ctx context.Context, cfg config.Server, log *slog.Logger, reg prometheus.Registerer, a *app, checks *health.Handler) (service.Cache, error) {
	client, err := redisclient.New(ctx, cfg.Redis, redisclient.NewPoolMetrics(reg))
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if client == nil {
		log.Info("REDIS_URL not set, using in-process report cache")
		return store.NewMemoryCache(cfg.ReportCacheTTL), nil
	}

	checks.RegisterCheck("redis", client.Health)
	stopStats := make(chan struct{})
	go func() {
		ticker := time.NewTicker(poolStatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				client.RecordPoolStats()
			case <-stopStats:
				return
			}
		}
	}()
	a.closers = append(a.closers, func() {
		close(stopStats)
		if err := client.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	})
	return store.NewRedisCache(client.Client, cfg.ReportCacheTTL), nil
}

func buildHistory(ctx context.Context, cfg config.Server, log *slog.Logger, reg prometheus.Registerer, a *app, checks *health.Handler) (service.History, error) {
	pool, err := database.New(ctx, database.DefaultConfig(cfg.Database.URL))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if pool == nil {
		if cfg.Environment == "development" {
			log.Info("DATABASE_URL not set, keeping report history in process")
			return store.NewMemoryHistory(), nil
		}
		log.Info("DATABASE_URL not set, report history disabled")
		return nil, nil
	}
	a.closers = append(a.closers, func() {
		if err := pool.Close(); err != nil {
			log.Warn("database close failed", "error", err)
		}
	})
	if err := database.Migrate(ctx, pool.DB(), migrations.FS); err != nil {
		return nil, err
	}
	if err := pool.RegisterMetrics(reg); err != nil {
		return nil, fmt.Errorf("register database metrics: %w", err)
	}
	checks.RegisterCheck("postgres", pool.Health)
	return store.NewPostgresHistory(pool.DB()), nil
}

func buildAuditor(cfg config.Server, log *slog.Logger, a *app, checks *health.Handler) (*audit.Publisher, error) {
	var sink audit.Sink = audit.NewLogSink(log)
	if cfg.Kafka.Brokers != "" {
		prod, err := producer.New(producer.DefaultConfig(cfg.Kafka.Brokers), log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { prod.Close(producerFlushWait) })
		checks.RegisterCheck("kafka", prod.Health)
		sink = audit.NewKafkaSink(prod, cfg.Kafka.AuditTopic)
		log.Info("publishing audit events to kafka", "topic", cfg.Kafka.AuditTopic)
	}
	pub := audit.NewPublisher(sink, audit.WithAsyncBuffer(auditBufferSize), audit.WithLogger(log))
	a.closers = append(a.closers, pub.Close)
	return pub, nil
}
