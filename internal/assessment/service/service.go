package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"dqa/internal/assessment"
	"dqa/internal/assessment/metrics"
	"dqa/internal/configlists"
	"dqa/internal/search"
	"dqa/pkg/requestcontext"
)

const (
	programmeLevel = 1
	projectLevel   = 2
)

var tracer = otel.Tracer("dqa/assessment")

// Searcher retrieves in-scope activity records. Failures yield an empty slice.
type Searcher interface {
	Activities(ctx context.Context, req search.Request) []assessment.Record
	Ping(ctx context.Context) error
}

// Cache stores finished reports. Failures degrade to misses.
type Cache interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any) bool
	DeleteMatching(ctx context.Context, pattern string) int
	Ping(ctx context.Context) bool
}

// ListSource supplies the editable rule lists.
type ListSource interface {
	Values(ctx context.Context, name string) ([]string, error)
}

// Service runs organisation assessments end to end: retrieval, evaluation,
// aggregation and caching.
type Service struct {
	searcher   Searcher
	cache      Cache
	lists      ListSource
	ruleConfig func(now time.Time) assessment.Config
	fyStart    time.Month
	workers    int
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRuleConfig sets how the per-run rule configuration is derived.
func WithRuleConfig(fn func(now time.Time) assessment.Config) Option {
	return func(s *Service) {
		if fn != nil {
			s.ruleConfig = fn
		}
	}
}

func WithFinancialYearStart(month time.Month) Option {
	return func(s *Service) {
		if month >= time.January && month <= time.December {
			s.fyStart = month
		}
	}
}

// WithWorkers bounds parallel record evaluation. Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.workers = n
		}
	}
}

func New(searcher Searcher, cache Cache, lists ListSource, opts ...Option) (*Service, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if lists == nil {
		return nil, fmt.Errorf("list source is required")
	}

	svc := &Service{
		searcher:   searcher,
		cache:      cache,
		lists:      lists,
		ruleConfig: assessment.DefaultConfig,
		fyStart:    time.April,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Assess produces the report for req, serving it from cache when possible.
// The evaluation instant is the request time carried by ctx.
func (s *Service) Assess(ctx context.Context, req Request) (*assessment.Report, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "assessment.Assess",
		trace.WithAttributes(
			attribute.String("dqa.organisation", req.Organisation),
			attribute.Bool("dqa.include_exemptions", req.IncludeExemptions),
		),
	)
	defer span.End()

	start := time.Now()
	requestID := requestcontext.RequestID(ctx)
	key := req.CacheKey()

	var cached assessment.Report
	if s.cache.Get(ctx, key, &cached) {
		s.metrics.IncrementCacheLookup(true)
		span.SetAttributes(attribute.Bool("dqa.cache_hit", true))
		s.logger.DebugContext(ctx, "assessment served from cache",
			"organisation", req.Organisation,
			"request_id", requestID,
		)
		return &cached, nil
	}
	s.metrics.IncrementCacheLookup(false)
	span.SetAttributes(attribute.Bool("dqa.cache_hit", false))

	now := requestcontext.Now(ctx)
	cfg := s.buildConfig(ctx, now, req.IncludeExemptions)
	if err := cfg.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("rule configuration: %w", err)
	}

	programmes, projects, err := s.fetch(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.logger.InfoContext(ctx, "activities fetched",
		"organisation", req.Organisation,
		"programmes", len(programmes),
		"projects", len(projects),
		"request_id", requestID,
	)

	records := make([]assessment.Record, 0, len(programmes)+len(projects))
	records = append(records, programmes...)
	records = append(records, projects...)

	assessments, err := assessment.NewEngine(cfg).EvaluateAll(ctx, records, s.workers)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("evaluate records: %w", err)
	}

	report := assessment.BuildReport(req.Organisation, records, assessments,
		assessment.NewFinancialYear(now, s.fyStart), now)

	s.metrics.AddRecordOutcomes(report.PassCount, report.FailCount)
	s.metrics.ObserveAssessLatency(time.Since(start))
	span.SetAttributes(
		attribute.Int("dqa.records", len(records)),
		attribute.Int("dqa.failed", report.FailCount),
	)
	s.logger.InfoContext(ctx, "assessment completed",
		"organisation", req.Organisation,
		"pass", report.PassCount,
		"fail", report.FailCount,
		"not_applicable", report.NotApplicableCount,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID,
	)

	s.cache.Set(ctx, key, report)
	return &report, nil
}

// fetch retrieves programmes and projects concurrently.
func (s *Service) fetch(ctx context.Context, req Request) ([]assessment.Record, []assessment.Record, error) {
	var programmes, projects []assessment.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		programmes = s.searcher.Activities(gctx, req.search(programmeLevel))
		return nil
	})
	g.Go(func() error {
		projects = s.searcher.Activities(gctx, req.search(projectLevel))
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return programmes, projects, nil
}

// buildConfig reads the rule lists fresh for every run. A list that cannot
// be read is treated as empty.
func (s *Service) buildConfig(ctx context.Context, now time.Time, includeExemptions bool) assessment.Config {
	cfg := s.ruleConfig(now)

	exemptions := []string{}
	if includeExemptions {
		exemptions = s.list(ctx, configlists.Exemptions)
	}
	cfg = cfg.WithExemptions(exemptions)
	cfg = cfg.WithNonAcronyms(s.list(ctx, configlists.NonAcronyms))

	raw := s.list(ctx, configlists.DefaultDates)
	dates := make([]time.Time, 0, len(raw))
	for _, v := range raw {
		d, err := assessment.ParseISODate(v)
		if err != nil {
			s.logger.WarnContext(ctx, "ignoring unparsable default date",
				"value", v,
				"request_id", requestcontext.RequestID(ctx),
			)
			continue
		}
		dates = append(dates, d)
	}
	return cfg.WithDefaultDates(dates)
}

func (s *Service) list(ctx context.Context, name string) []string {
	values, err := s.lists.Values(ctx, name)
	if err != nil {
		s.logger.WarnContext(ctx, "config list unavailable",
			"config_name", name,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}
	return values
}

// ClearCache evicts cached reports matching pattern and returns the count.
func (s *Service) ClearCache(ctx context.Context, pattern string) int {
	if pattern == "" {
		pattern = "*"
	}
	n := s.cache.DeleteMatching(ctx, pattern)
	s.logger.InfoContext(ctx, "cache cleared",
		"pattern", pattern,
		"count", n,
		"request_id", requestcontext.RequestID(ctx),
	)
	return n
}

// Health status values.
const (
	StatusHealthy      = "healthy"
	StatusDegraded     = "degraded"
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// Health describes the reachability of the service's backends.
type Health struct {
	Status    string    `json:"status" enum:"healthy,degraded"`
	Redis     string    `json:"redis" enum:"connected,disconnected"`
	Search    string    `json:"search" enum:"connected,disconnected"`
	Timestamp time.Time `json:"timestamp"`
}

// Health pings the cache and the search backend.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{
		Status:    StatusHealthy,
		Redis:     StatusConnected,
		Search:    StatusConnected,
		Timestamp: requestcontext.Now(ctx),
	}
	if !s.cache.Ping(ctx) {
		h.Redis = StatusDisconnected
		h.Status = StatusDegraded
	}
	if err := s.searcher.Ping(ctx); err != nil {
		h.Search = StatusDisconnected
		h.Status = StatusDegraded
		s.logger.WarnContext(ctx, "search backend unreachable",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return h
}
