package metrics

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// All Record methods are safe to call on a nil receiver, which is what tests
// and the CLI pass around.
type AppMetrics struct {
	SearchRequestsTotal      metric.Int64Counter
	SearchDurationSeconds    metric.Float64Histogram
	DiscoveryShopsTotal      metric.Int64Counter
	DiscoveryErrorsTotal     metric.Int64Counter
	IntentCacheLookupsTotal  metric.Int64Counter
	ExternalCallDuration     metric.Float64Histogram
	ExternalCallErrorsTotal  metric.Int64Counter
	GeocodeCacheLookupsTotal metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics(serviceName string) *AppMetrics {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter(serviceName)
		var err error
		m := &AppMetrics{}

		m.SearchRequestsTotal, err = meter.Int64Counter(
			"coffee_search_requests_total",
			metric.WithDescription("Total number of coffee shop searches served, by search type and intent"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create coffee_search_requests_total: %v", err)
		}

		m.SearchDurationSeconds, err = meter.Float64Histogram(
			"coffee_search_duration_seconds",
			metric.WithDescription("Duration of coffee shop searches in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create coffee_search_duration_seconds: %v", err)
		}

		m.DiscoveryShopsTotal, err = meter.Int64Counter(
			"discovery_shops_total",
			metric.WithDescription("Shops written by discovery runs, by outcome (added, updated)"),
			metric.WithUnit("{shop}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create discovery_shops_total: %v", err)
		}

		m.DiscoveryErrorsTotal, err = meter.Int64Counter(
			"discovery_errors_total",
			metric.WithDescription("Errors recorded by discovery runs"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create discovery_errors_total: %v", err)
		}

		m.IntentCacheLookupsTotal, err = meter.Int64Counter(
			"intent_cache_lookups_total",
			metric.WithDescription("Intent cache lookups, by result (hit, miss)"),
			metric.WithUnit("{lookup}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create intent_cache_lookups_total: %v", err)
		}

		m.ExternalCallDuration, err = meter.Float64Histogram(
			"external_call_duration_seconds",
			metric.WithDescription("Duration of calls to external providers in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create external_call_duration_seconds: %v", err)
		}

		m.ExternalCallErrorsTotal, err = meter.Int64Counter(
			"external_call_errors_total",
			metric.WithDescription("Total number of failed calls to external providers"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create external_call_errors_total: %v", err)
		}

		m.GeocodeCacheLookupsTotal, err = meter.Int64Counter(
			"geocode_cache_lookups_total",
			metric.WithDescription("Geocode cache lookups, by result (hit, miss)"),
			metric.WithUnit("{lookup}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create geocode_cache_lookups_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
	return appMetrics
}

// Get returns the globally initialized AppMetrics instance, or nil if
// InitAppMetrics was never called.
func Get() *AppMetrics {
	return appMetrics
}

func (m *AppMetrics) RecordSearch(ctx context.Context, searchType, intent string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("search_type", searchType),
		attribute.String("intent", intent),
	)
	m.SearchRequestsTotal.Add(ctx, 1, attrs)
	m.SearchDurationSeconds.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *AppMetrics) RecordDiscovery(ctx context.Context, added, updated, errs int) {
	if m == nil {
		return
	}
	m.DiscoveryShopsTotal.Add(ctx, int64(added), metric.WithAttributes(attribute.String("outcome", "added")))
	m.DiscoveryShopsTotal.Add(ctx, int64(updated), metric.WithAttributes(attribute.String("outcome", "updated")))
	if errs > 0 {
		m.DiscoveryErrorsTotal.Add(ctx, int64(errs))
	}
}

func (m *AppMetrics) RecordIntentCache(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	m.IntentCacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", hitLabel(hit))))
}

func (m *AppMetrics) RecordGeocodeCache(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	m.GeocodeCacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", hitLabel(hit))))
}

// RecordExternalCall tracks latency and failures of a provider call such as
// a places search or an LLM completion.
func (m *AppMetrics) RecordExternalCall(ctx context.Context, provider, op string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", op),
	)
	m.ExternalCallDuration.Record(ctx, elapsed.Seconds(), attrs)
	if err != nil {
		m.ExternalCallErrorsTotal.Add(ctx, 1, attrs)
	}
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
