package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/suspension-kinematics/internal/logging"
)

// SpanExporter names where solver and RPC spans are sent.
type SpanExporter string

const (
	ExportNone   SpanExporter = "none"
	ExportStdout SpanExporter = "stdout"
	ExportOTLP   SpanExporter = "otlp"
)

const (
	defaultTraceService  = "suspension-kinematics"
	defaultOTLPEndpoint  = "localhost:4317"
	traceShutdownTimeout = 5 * time.Second
)

// TracingConfig selects the span exporter for Solve, Analyze and QuasiStatic
// spans and for the RPC handler spans around them.
type TracingConfig struct {
	Exporter    SpanExporter
	ServiceName string
	// Endpoint is the OTLP collector address.
	Endpoint string
	// SampleRatio is the share of root analyses that are traced.
	SampleRatio float64
	// Output receives stdout spans; nil means standard error.
	Output io.Writer
}

// TracingConfigFromEnv reads KIN_TRACE_EXPORTER, KIN_TRACE_SERVICE,
// KIN_TRACE_ENDPOINT and KIN_TRACE_SAMPLE_RATIO. An unset exporter disables
// tracing.
func TracingConfigFromEnv() (TracingConfig, error) {
	return tracingConfigFrom(os.Getenv)
}

func tracingConfigFrom(getenv func(string) string) (TracingConfig, error) {
	cfg := TracingConfig{
		Exporter:    SpanExporter(strings.ToLower(strings.TrimSpace(getenv("KIN_TRACE_EXPORTER")))),
		ServiceName: getenv("KIN_TRACE_SERVICE"),
		Endpoint:    getenv("KIN_TRACE_ENDPOINT"),
		SampleRatio: 1,
	}
	if raw := getenv("KIN_TRACE_SAMPLE_RATIO"); raw != "" {
		ratio, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("KIN_TRACE_SAMPLE_RATIO: %w", err)
		}
		cfg.SampleRatio = ratio
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return TracingConfig{}, err
	}
	return cfg, nil
}

func (c TracingConfig) withDefaults() TracingConfig {
	if c.Exporter == "" {
		c.Exporter = ExportNone
	}
	if c.ServiceName == "" {
		c.ServiceName = defaultTraceService
	}
	if c.Exporter == ExportOTLP && c.Endpoint == "" {
		c.Endpoint = defaultOTLPEndpoint
	}
	return c
}

// Validate rejects unknown exporters and sample ratios outside [0, 1].
func (c TracingConfig) Validate() error {
	switch c.Exporter {
	case "", ExportNone, ExportStdout, ExportOTLP:
	default:
		return fmt.Errorf("unsupported span exporter %q", c.Exporter)
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("sample ratio %v outside [0, 1]", c.SampleRatio)
	}
	return nil
}

// Tracing is the installed global tracer provider.
type Tracing struct {
	provider *sdktrace.TracerProvider
	log      logging.Logger
}

// StartTracing installs the global tracer provider and W3C propagators for
// cfg. With ExportNone a noop provider is installed and Close does nothing.
func StartTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (*Tracing, error) {
	if log == nil {
		log = logging.Noop()
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t := &Tracing{log: log}
	if cfg.Exporter == ExportNone {
		otel.SetTracerProvider(noop.NewTracerProvider())
		log.Debug(ctx, "span export disabled")
		return t, nil
	}

	exp, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s span exporter: %w", cfg.Exporter, err)
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.namespace", "kinematics"),
	))
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}
	t.provider = sdktrace.NewTracerProvider(
		sdktrace.WithSampler(samplerFor(cfg.SampleRatio)),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(t.provider)

	log.Info(ctx, "span export enabled",
		logging.String("exporter", string(cfg.Exporter)),
		logging.String("service_name", cfg.ServiceName),
		logging.Float64("sample_ratio", cfg.SampleRatio),
	)
	return t, nil
}

// samplerFor keeps the caller's sampling decision for child spans, so a
// traced quasi-static run traces every nested analysis.
func samplerFor(ratio float64) sdktrace.Sampler {
	if ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

func newSpanExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	if cfg.Exporter == ExportStdout {
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		return stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithoutTimestamps())
	}
	return otlptrace.New(ctx, otlptracegrpc.NewClient(
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	))
}

// Enabled reports whether spans are exported.
func (t *Tracing) Enabled() bool {
	return t != nil && t.provider != nil
}

// Close flushes buffered spans, giving up after a few seconds. Failures are
// logged, not returned.
func (t *Tracing) Close(ctx context.Context) {
	if !t.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, traceShutdownTimeout)
	defer cancel()
	if err := t.provider.Shutdown(ctx); err != nil {
		t.log.Warn(ctx, "span exporter shutdown failed", logging.Error(err))
	}
}
