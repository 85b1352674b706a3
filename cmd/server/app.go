package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"dqa/internal/assessment/metrics"
	"dqa/internal/assessment/service"
	"dqa/internal/cache"
	"dqa/internal/configlists"
	"dqa/internal/platform/config"
	"dqa/internal/platform/logger"
	platformredis "dqa/internal/platform/redis"
	"dqa/internal/search"
	"dqa/pkg/platform/circuit"
)

// app holds the wired collaborators shared by the serve and assess commands.
type app struct {
	settings config.Settings
	logger   *slog.Logger
	registry *prometheus.Registry
	lists    *configlists.Store
	service  *service.Service
	closers  []io.Closer
}

func newApp(ctx context.Context, settings config.Settings) (*app, error) {
	log, logCloser := logger.New(logger.Options{Level: settings.Logging.Level, File: settings.Logging.File})
	a := &app{
		settings: settings,
		logger:   log,
		registry: prometheus.NewRegistry(),
		closers:  []io.Closer{logCloser},
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	assessMetrics := metrics.New(a.registry)

	reportCache, err := a.newCache(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	searcher, err := search.NewClient(settings.Search.URL,
		search.WithTimeout(settings.Search.Timeout),
		search.WithRows(settings.Search.Rows),
		search.WithQueryBuilder(search.NewQueryBuilder(settings.Search.ClosedWithinMonths)),
		search.WithBreaker(circuit.New("search")),
		search.WithMetrics(assessMetrics),
		search.WithLogger(log),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("search client: %w", err)
	}

	a.lists = configlists.NewStore(settings.DataDir, configlists.WithLogger(log))

	a.service, err = service.New(searcher, reportCache, a.lists,
		service.WithLogger(log),
		service.WithMetrics(assessMetrics),
		service.WithRuleConfig(settings.RuleConfig),
		service.WithFinancialYearStart(time.Month(settings.Rules.FinancialYearStart)),
		service.WithWorkers(settings.Rules.EvaluationWorkers),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("assessment service: %w", err)
	}
	return a, nil
}

// newCache connects to Redis when configured. An unreachable server leaves
// caching disabled rather than failing startup.
func (a *app) newCache(ctx context.Context) (*cache.Cache, error) {
	opts := []cache.Option{cache.WithTTL(a.settings.Redis.TTL), cache.WithLogger(a.logger)}

	client, err := platformredis.New(ctx, a.settings.Redis)
	if err != nil {
		a.logger.WarnContext(ctx, "redis unavailable, caching disabled", "error", err)
		return cache.New(nil, opts...), nil
	}
	if client == nil {
		a.logger.InfoContext(ctx, "REDIS_URL not set, caching disabled")
		return cache.New(nil, opts...), nil
	}
	a.closers = append(a.closers, client)
	return cache.New(client.Client, opts...), nil
}

// Close releases the Redis connection and the log file.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
