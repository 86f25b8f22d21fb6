package usecase

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("genesis.usecase")
	meter  = otel.Meter("genesis.usecase")
)

var (
	functionsExtracted metric.Int64Counter
	filesWritten       metric.Int64Counter
	diagnosticsTotal   metric.Int64Counter
	validationsTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		functionsExtracted, err = meter.Int64Counter(
			"genesis_functions_extracted_total",
			metric.WithDescription("Functions extracted from consolidated sources"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		filesWritten, err = meter.Int64Counter(
			"genesis_files_written_total",
			metric.WithDescription("Generated files written to the output tree"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		diagnosticsTotal, err = meter.Int64Counter(
			"genesis_diagnostics_total",
			metric.WithDescription("Diagnostics recorded, by kind"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		validationsTotal, err = meter.Int64Counter(
			"genesis_validations_total",
			metric.WithDescription("Validator runs, by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordExtracted(ctx context.Context, file string, n int) {
	if err := initMetrics(); err != nil {
		return
	}
	functionsExtracted.Add(ctx, int64(n), metric.WithAttributes(attribute.String("file", file)))
}

func recordWritten(ctx context.Context, n int) {
	if err := initMetrics(); err != nil {
		return
	}
	filesWritten.Add(ctx, int64(n))
}

func recordDiagnostic(ctx context.Context, kind string) {
	if err := initMetrics(); err != nil {
		return
	}
	diagnosticsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func recordValidation(ctx context.Context, passed bool) {
	if err := initMetrics(); err != nil {
		return
	}
	validationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("passed", passed)))
}

func startPhase(ctx context.Context, phase string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "genesis."+phase, trace.WithAttributes(attrs...))
}
