// Package telemetry wires the ledger's OpenTelemetry signals (traces, metrics
// and the zap log bridge) plus Pyroscope profiles, and defines the ledger's
// own instruments and span helpers on top of them.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const flushTimeout = 10 * time.Second

// Collector identifies the OTLP gRPC endpoint every signal is exported to
// and the service reporting to it.
type Collector struct {
	Endpoint       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
}

// Options selects the exported signals. A disabled signal leaves the global
// no-op provider in place.
type Options struct {
	Collector Collector

	Traces        bool
	SamplingRatio float64

	Metrics         bool
	MetricsInterval time.Duration // default 60s

	Logs bool
}

// Signals owns the providers started by Setup.
type Signals struct {
	opts   Options
	logger *zap.Logger

	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	logs    *sdklog.LoggerProvider

	mu           sync.Mutex
	spanProfiles bool
}

// Setup starts the enabled providers and installs them globally. If one
// fails, the ones already started are shut down.
func Setup(ctx context.Context, opts Options, logger *zap.Logger) (*Signals, error) {
	s := &Signals{opts: opts, logger: logger}
	if !opts.Traces && !opts.Metrics && !opts.Logs {
		logger.Info("Telemetry export disabled")
		return s, nil
	}

	res, err := opts.Collector.resource()
	if err != nil {
		return nil, err
	}

	if opts.Traces {
		if s.traces, err = newTracerProvider(ctx, opts.Collector, opts.SamplingRatio, res); err != nil {
			return nil, err
		}
	}
	if opts.Metrics {
		if s.metrics, err = newMeterProvider(ctx, opts.Collector, opts.MetricsInterval, res); err != nil {
			_ = s.Shutdown(ctx)
			return nil, err
		}
	}
	if opts.Logs {
		if s.logs, err = newLoggerProvider(ctx, opts.Collector, res); err != nil {
			_ = s.Shutdown(ctx)
			return nil, err
		}
	}

	logger.Info("Telemetry started",
		zap.String("collector_endpoint", opts.Collector.Endpoint),
		zap.String("service_name", opts.Collector.ServiceName),
		zap.Bool("traces", s.traces != nil),
		zap.Float64("sampling_ratio", opts.SamplingRatio),
		zap.Bool("metrics", s.metrics != nil),
		zap.Bool("logs", s.logs != nil),
	)
	return s, nil
}

// TracingEnabled reports whether spans are exported
func (s *Signals) TracingEnabled() bool { return s.traces != nil }

// MetricsEnabled reports whether metrics are exported
func (s *Signals) MetricsEnabled() bool { return s.metrics != nil }

// Meter returns a named meter. With metrics disabled it comes from the
// global no-op provider.
func (s *Signals) Meter(name string) metric.Meter {
	if s.metrics == nil {
		return otel.GetMeterProvider().Meter(name)
	}
	return s.metrics.Meter(name)
}

// EnableSpanProfiles tags every span's goroutine with its span_id so
// Pyroscope can link profiles to traces. Call it after the profiler started.
func (s *Signals) EnableSpanProfiles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.traces == nil || s.spanProfiles {
		return
	}
	otel.SetTracerProvider(otelpyroscope.NewTracerProvider(s.traces))
	s.spanProfiles = true
	s.logger.Info("Span profiles enabled")
}

// Shutdown flushes and stops every started provider.
func (s *Signals) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	var errs []error
	if s.traces != nil {
		if err := s.traces.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("traces: %w", err))
		}
	}
	if s.metrics != nil {
		if err := s.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}
	if s.logs != nil {
		if err := s.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logs: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c Collector) resource() (*resource.Resource, error) {
	version := c.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(c.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
