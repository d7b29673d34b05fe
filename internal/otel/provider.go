package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const defaultMetricInterval = time.Minute

// Config describes where session telemetry goes.
type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	LogWriter    io.Writer // pretty-printed log records, usually the session log file
	Endpoint     string    // optional OTLP/HTTP collector
	Insecure     bool

	// MetricWriter receives periodic metric dumps; nil disables metrics export.
	MetricWriter   io.Writer
	MetricInterval time.Duration
	// MetricReader overrides MetricWriter, mainly for tests.
	MetricReader sdkmetric.Reader
}

// Provider owns the log and meter providers of one missionmap session.
// A disabled Provider hands out no-op meters and a nil LoggerProvider.
type Provider struct {
	cfg    Config
	logs   *sdklog.LoggerProvider
	meters *sdkmetric.MeterProvider
}

func New(cfg Config) (*Provider, error) {
	p := &Provider{cfg: cfg}
	if !cfg.Enabled {
		return p, nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	processors, err := logProcessors(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if len(processors) == 0 {
		return nil, fmt.Errorf("OTel enabled but no log writer or endpoint configured")
	}

	logOpts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, proc := range processors {
		logOpts = append(logOpts, sdklog.WithProcessor(proc))
	}
	p.logs = sdklog.NewLoggerProvider(logOpts...)

	reader, err := metricReader(cfg)
	if err != nil {
		return nil, err
	}
	if reader != nil {
		p.meters = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
		// instruments created via otel.Meter (dispatcher) pick this up
		otel.SetMeterProvider(p.meters)
	}
	return p, nil
}

// logProcessors builds one batch processor per configured log destination.
func logProcessors(ctx context.Context, cfg Config) ([]sdklog.Processor, error) {
	var out []sdklog.Processor
	batch := func(exp sdklog.Exporter) sdklog.Processor {
		return sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout))
	}

	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create file log exporter: %w", err)
		}
		out = append(out, batch(exp))
	}

	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		out = append(out, batch(exp))
	}
	return out, nil
}

// metricReader returns nil when metrics are not requested.
func metricReader(cfg Config) (sdkmetric.Reader, error) {
	if cfg.MetricReader != nil {
		return cfg.MetricReader, nil
	}
	if cfg.MetricWriter == nil {
		return nil, nil
	}
	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.MetricWriter))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	interval := cfg.MetricInterval
	if interval <= 0 {
		interval = defaultMetricInterval
	}
	return sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval)), nil
}

// LoggerProvider feeds the otelslog bridge; nil when disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

// Meter returns a no-op meter unless metrics export is configured.
func (p *Provider) Meter(name string) metric.Meter {
	if p.meters == nil {
		return noop.Meter{}
	}
	return p.meters.Meter(name)
}

// Flush pushes buffered records out. Called after each finalized mission.
func (p *Provider) Flush(ctx context.Context) error {
	return p.each(ctx, "flush",
		func(ctx context.Context) error { return p.logs.ForceFlush(ctx) },
		func(ctx context.Context) error { return p.meters.ForceFlush(ctx) })
}

// Shutdown flushes and stops both providers. Call once on exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.each(ctx, "shutdown",
		func(ctx context.Context) error { return p.logs.Shutdown(ctx) },
		func(ctx context.Context) error { return p.meters.Shutdown(ctx) })
}

// each runs the log step then the metric step, skipping providers that
// were never built. Both steps run even if the first fails.
func (p *Provider) each(ctx context.Context, op string, logStep, metricStep func(context.Context) error) error {
	if !p.cfg.Enabled {
		return nil
	}
	var errs []error
	if p.logs != nil {
		if err := logStep(ctx); err != nil {
			errs = append(errs, fmt.Errorf("log %s failed: %w", op, err))
		}
	}
	if p.meters != nil {
		if err := metricStep(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metric %s failed: %w", op, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Provider) Enabled() bool {
	return p.cfg.Enabled
}
