package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/platinummonkey/carebase"

// OTelMetrics mirrors the auth and storage Prometheus counters onto OpenTelemetry
// instruments so they reach the OTLP collector alongside traces.
type OTelMetrics struct {
	authOutcomes    metric.Int64Counter
	revocations     metric.Int64Counter
	storageOps      metric.Int64Counter
	storageDuration metric.Float64Histogram
}

// NewOTelMetrics creates the instruments on provider, or on the global provider when nil
func NewOTelMetrics(provider metric.MeterProvider) (*OTelMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	m := &OTelMetrics{}
	var err error

	m.authOutcomes, err = meter.Int64Counter(
		"carebase.auth.outcomes",
		metric.WithDescription("Authentication outcomes by operation"),
		metric.WithUnit("{outcome}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth outcomes counter: %w", err)
	}

	m.revocations, err = meter.Int64Counter(
		"carebase.auth.revocations",
		metric.WithDescription("Tokens recorded in the revocation registry"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create revocations counter: %w", err)
	}

	m.storageOps, err = meter.Int64Counter(
		"carebase.storage.operations",
		metric.WithDescription("Total number of storage operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage operations counter: %w", err)
	}

	m.storageDuration, err = meter.Float64Histogram(
		"carebase.storage.duration",
		metric.WithDescription("Storage operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage duration histogram: %w", err)
	}

	return m, nil
}

// RecordAuthOutcome counts one gate, login, logout or register result
func (m *OTelMetrics) RecordAuthOutcome(operation, outcome string) {
	m.authOutcomes.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("auth.operation", operation),
		attribute.String("auth.outcome", outcome),
	))
}

// RecordRevocation counts a token recorded by the given backend
func (m *OTelMetrics) RecordRevocation(backend string) {
	m.revocations.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("revocation.backend", backend),
	))
}

// RecordStorageOperation records the outcome and latency of a repository call
func (m *OTelMetrics) RecordStorageOperation(entity, operation string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("storage.entity", entity),
		attribute.String("storage.operation", operation),
		attribute.Bool("error", err != nil),
	)

	ctx := context.Background()
	m.storageOps.Add(ctx, 1, attrs)
	m.storageDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}
