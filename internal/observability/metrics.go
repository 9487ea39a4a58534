package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"resumatch/internal/config"
)

// Business metric types accepted by RecordBusinessMetric
const (
	MetricDocumentIngested = "document_ingested"
	MetricQueueJob         = "queue_job"
	MetricRateLimitHit     = "rate_limit_hit"
	MetricLexiconReload    = "lexicon_reload"
)

// Metrics holds all custom metrics for resumatch
type Metrics struct {
	settings config.CustomMetricsConfig

	// Match operation metrics
	MatchDuration metric.Float64Histogram
	MatchCount    metric.Int64Counter
	MatchErrors   metric.Int64Counter
	MatchScore    metric.Int64Histogram
	KeywordCount  metric.Int64Histogram

	// Business metrics
	DocumentsIngested metric.Int64Counter
	ContentSize       metric.Int64Histogram
	QueueJobs         metric.Int64Counter

	// Infrastructure metrics
	RateLimitHits  metric.Int64Counter
	LexiconReloads metric.Int64Counter
}

// MatchOperationResult is what a tracked operation reports back
type MatchOperationResult struct {
	Error error
	// Scored is set when Score and the keyword counts are meaningful
	Scored   bool
	Score    int
	Required int
	Found    int
	Missing  int
}

func newMetrics(meter metric.Meter, settings config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{settings: settings}

	if err := m.createMatchMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createBusinessMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createInfrastructureMetrics(meter); err != nil {
		return nil, err
	}
	return m, nil
}

// createMatchMetrics creates match operation metrics
func (m *Metrics) createMatchMetrics(meter metric.Meter) error {
	var err error

	m.MatchDuration, err = meter.Float64Histogram(
		"resumatch_match_duration_seconds",
		metric.WithDescription("Time spent extracting and scoring keywords"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create match duration metric: %w", err)
	}

	m.MatchCount, err = meter.Int64Counter(
		"resumatch_matches_total",
		metric.WithDescription("Total number of match operations"),
	)
	if err != nil {
		return fmt.Errorf("failed to create match count metric: %w", err)
	}

	m.MatchErrors, err = meter.Int64Counter(
		"resumatch_match_errors_total",
		metric.WithDescription("Total number of failed match operations"),
	)
	if err != nil {
		return fmt.Errorf("failed to create match error metric: %w", err)
	}

	m.MatchScore, err = meter.Int64Histogram(
		"resumatch_match_score",
		metric.WithDescription("Distribution of match scores"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 75, 80, 90, 100),
	)
	if err != nil {
		return fmt.Errorf("failed to create match score metric: %w", err)
	}

	m.KeywordCount, err = meter.Int64Histogram(
		"resumatch_keywords",
		metric.WithDescription("Keywords per match operation by kind (required, found, missing)"),
	)
	if err != nil {
		return fmt.Errorf("failed to create keyword count metric: %w", err)
	}

	return nil
}

// createBusinessMetrics creates business-related metrics
func (m *Metrics) createBusinessMetrics(meter metric.Meter) error {
	var err error

	m.DocumentsIngested, err = meter.Int64Counter(
		"resumatch_documents_ingested_total",
		metric.WithDescription("Total number of uploaded documents converted to text"),
	)
	if err != nil {
		return fmt.Errorf("failed to create documents ingested metric: %w", err)
	}

	m.ContentSize, err = meter.Int64Histogram(
		"resumatch_content_size_bytes",
		metric.WithDescription("Size of resumes and job descriptions submitted"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("failed to create content size metric: %w", err)
	}

	m.QueueJobs, err = meter.Int64Counter(
		"resumatch_queue_jobs_total",
		metric.WithDescription("Total number of queue jobs processed"),
	)
	if err != nil {
		return fmt.Errorf("failed to create queue jobs metric: %w", err)
	}

	return nil
}

// createInfrastructureMetrics creates rate limit and lexicon metrics
func (m *Metrics) createInfrastructureMetrics(meter metric.Meter) error {
	var err error

	m.RateLimitHits, err = meter.Int64Counter(
		"resumatch_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	m.LexiconReloads, err = meter.Int64Counter(
		"resumatch_lexicon_reloads_total",
		metric.WithDescription("Total number of lexicon reload attempts"),
	)
	if err != nil {
		return fmt.Errorf("failed to create lexicon reload metric: %w", err)
	}

	return nil
}

// TrackMatchOperation instruments a match operation with a span and metrics
func (m *Metrics) TrackMatchOperation(ctx context.Context, tracer oteltrace.Tracer, operation string, fn func(context.Context) *MatchOperationResult) error {
	if tracer != nil {
		var span oteltrace.Span
		ctx, span = tracer.Start(ctx, "match."+operation)
		defer span.End()
	}
	span := oteltrace.SpanFromContext(ctx)

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	if result == nil {
		result = &MatchOperationResult{}
	}
	err := result.Error

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	if m.MatchCount != nil && m.settings.MatchOperations.Enabled {
		m.recordMatchMetrics(ctx, duration, result, attrs)
	}

	span.SetAttributes(attrs...)
	if result.Scored {
		span.SetAttributes(
			attribute.Int("match.score", result.Score),
			attribute.Int("match.keywords.required", result.Required),
			attribute.Int("match.keywords.found", result.Found),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}

	return err
}

// recordMatchMetrics records the configured match operation metrics
func (m *Metrics) recordMatchMetrics(ctx context.Context, duration float64, result *MatchOperationResult, attrs []attribute.KeyValue) {
	opts := metric.WithAttributes(attrs...)
	settings := m.settings.MatchOperations

	m.MatchCount.Add(ctx, 1, opts)
	if result.Error != nil {
		m.MatchErrors.Add(ctx, 1, opts)
	}
	if settings.TrackDuration {
		m.MatchDuration.Record(ctx, duration, opts)
	}
	if !result.Scored {
		return
	}
	if settings.TrackScores {
		m.MatchScore.Record(ctx, int64(result.Score), metric.WithAttributes(attrs[0]))
	}
	if settings.TrackKeywords {
		kinds := []struct {
			kind  string
			count int
		}{
			{"required", result.Required},
			{"found", result.Found},
			{"missing", result.Missing},
		}
		for _, k := range kinds {
			m.KeywordCount.Record(ctx, int64(k.count),
				metric.WithAttributes(attrs[0], attribute.String("kind", k.kind)))
		}
	}
}

// RecordContentSize records the size of a submitted text
func (m *Metrics) RecordContentSize(ctx context.Context, kind string, size int) {
	if m.ContentSize == nil || !m.settings.BusinessMetrics.Enabled || !m.settings.BusinessMetrics.TrackContentSizes {
		return
	}
	m.ContentSize.Record(ctx, int64(size), metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordBusinessMetric records business-specific metrics
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, attributes ...attribute.KeyValue) {
	attrs := append([]attribute.KeyValue{
		attribute.Bool("success", success),
	}, attributes...)

	switch metricType {
	case MetricDocumentIngested:
		if m.businessEnabled() {
			add(ctx, m.DocumentsIngested, attrs)
		}
	case MetricQueueJob:
		if m.businessEnabled() {
			add(ctx, m.QueueJobs, attrs)
		}
	case MetricRateLimitHit:
		if m.settings.Infrastructure.Enabled && m.settings.Infrastructure.TrackRateLimits {
			add(ctx, m.RateLimitHits, attrs)
		}
	case MetricLexiconReload:
		if m.settings.Infrastructure.Enabled && m.settings.Infrastructure.TrackLexiconReloads {
			add(ctx, m.LexiconReloads, attrs)
		}
	}
}

func (m *Metrics) businessEnabled() bool {
	return m.settings.BusinessMetrics.Enabled && m.settings.BusinessMetrics.TrackSuccessRates
}

func add(ctx context.Context, counter metric.Int64Counter, attrs []attribute.KeyValue) {
	if counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
