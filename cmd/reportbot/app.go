package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/reportbot/config"
	"github.com/mohammad-safakhou/reportbot/internal/artifact"
	"github.com/mohammad-safakhou/reportbot/internal/engine"
	"github.com/mohammad-safakhou/reportbot/internal/engine/fetch"
	"github.com/mohammad-safakhou/reportbot/internal/engine/search"
	"github.com/mohammad-safakhou/reportbot/internal/index"
	"github.com/mohammad-safakhou/reportbot/internal/llm"
	"github.com/mohammad-safakhou/reportbot/internal/logging"
	"github.com/mohammad-safakhou/reportbot/internal/pipeline"
	"github.com/mohammad-safakhou/reportbot/internal/publish"
	"github.com/mohammad-safakhou/reportbot/internal/queue/streams"
	"github.com/mohammad-safakhou/reportbot/internal/report"
	"github.com/mohammad-safakhou/reportbot/internal/runtime"
	"github.com/mohammad-safakhou/reportbot/internal/stats"
	"github.com/mohammad-safakhou/reportbot/internal/store"
)

const serviceName = "reportbot"

// app holds the process-wide collaborators shared by every command.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	stats     *stats.Aggregator
	pool      *pipeline.Pool
	index     *index.Index
	store     *store.Store
	redis     *redis.Client
	telemetry *runtime.Telemetry
}

func loadApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.General.LogLevel, cfg.General.Debug)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.stats = stats.New(stats.WithRegisterer(a.registry))

	tel, tracer, err := runtime.SetupTelemetry(ctx, cfg.Telemetry, runtime.TelemetryOptions{
		ServiceName:    serviceName,
		ServiceVersion: "v1",
		Gatherer:       a.registry,
		Logger:         logger.Named("telemetry"),
	})
	if err != nil {
		return nil, err
	}
	a.telemetry = tel

	if a.index, err = index.New(); err != nil {
		return nil, err
	}
	observers := []pipeline.Observer{a.index}

	if cfg.Storage.Postgres.Enabled() {
		if a.store, err = store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN()); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		observers = append(observers, a.store)
	}
	if cfg.Storage.Redis.Enabled() {
		r := cfg.Storage.Redis
		a.redis = redis.NewClient(&redis.Options{
			Addr:        net.JoinHostPort(r.Host, r.Port),
			Password:    r.Password,
			DB:          r.DB,
			DialTimeout: r.Timeout,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis connection failed (%s:%s): %w", r.Host, r.Port, err)
		}
		reg := streams.NewSchemaRegistry()
		if err := streams.RegisterBaseSchemas(reg); err != nil {
			return nil, err
		}
		observers = append(observers, streams.NewReportEvents(streams.NewPublisher(a.redis, reg, r.MaxLen), r.EventsStream))
	}

	researcher, err := a.engine()
	if err != nil {
		return nil, err
	}
	fs := afero.NewOsFs()
	s3 := cfg.Storage.S3
	publisher := publish.NewS3Publisher(fs, publish.NewClientFactory(publish.Credentials{
		Region:          s3.Region,
		AccessKeyID:     s3.AccessKeyID,
		SecretAccessKey: s3.SecretAccessKey,
		UsePathStyle:    s3.UsePathStyle,
	}))
	orch := pipeline.NewOrchestrator(researcher, report.NewAssembler(), artifact.NewWriter(fs), publisher,
		pipeline.WithRecorder(a.stats),
		pipeline.WithObservers(observers...),
		pipeline.WithTracer(tracer),
		pipeline.WithLogger(logger.Named("pipeline")),
	)
	a.pool = pipeline.NewPool(orch, cfg.Pipeline.MaxConcurrentJobs)
	return a, nil
}

func (a *app) engine() (*engine.Adapter, error) {
	rc := a.cfg.Research
	key := rc.BraveAPIKey
	if rc.SearchProvider == string(search.SerperProvider) {
		key = rc.SerperAPIKey
	}
	searcher, err := search.NewSearcher(search.Provider(rc.SearchProvider), key)
	if err != nil {
		return nil, err
	}
	fetcher, err := fetch.NewFetcher(fetch.FetcherType(rc.Fetcher), rc.FetchTimeout, rc.MaxChars)
	if err != nil {
		return nil, err
	}
	lc := a.cfg.LLM
	if lc.APIKey == "" {
		return nil, fmt.Errorf("llm.api_key not configured")
	}
	client := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:          lc.APIKey,
		BaseURL:         lc.BaseURL,
		Model:           lc.Model,
		Temperature:     lc.Temperature,
		MaxTokens:       lc.MaxTokens,
		Timeout:         lc.Timeout,
		CostPer1K:       lc.CostPer1K,
		CostPer1KOutput: lc.CostPer1KOutput,
	})
	svc := engine.NewService(client, searcher, fetcher, engine.Config{
		MaxSubqueries:    rc.MaxSubqueries,
		MaxSources:       rc.MaxSources,
		ResultsPerQuery:  rc.ResultsPerQuery,
		FetchConcurrency: rc.FetchConcurrency,
		MaxContextChars:  rc.MaxContextChars,
	}, a.logger.Named("engine"))
	return engine.NewAdapter(svc.NewResearcher), nil
}

func (a *app) storage() publish.Config {
	s3 := a.cfg.Storage.S3
	return publish.Config{Endpoint: s3.Endpoint, Bucket: s3.Bucket, Domain: s3.Domain}
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown", zap.Error(err))
	}
	if a.index != nil {
		_ = a.index.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.logger.Sync()
}
