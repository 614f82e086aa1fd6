package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestTracingConfigDefaults(t *testing.T) {
	cfg, err := tracingConfigFrom(envOf(nil))
	if err != nil {
		t.Fatalf("tracingConfigFrom: %v", err)
	}
	want := TracingConfig{Exporter: ExportNone, ServiceName: "suspension-kinematics", SampleRatio: 1}
	if cfg != want {
		t.Fatalf("defaults = %+v, want %+v", cfg, want)
	}
}

func TestTracingConfigFromValues(t *testing.T) {
	cfg, err := tracingConfigFrom(envOf(map[string]string{
		"KIN_TRACE_EXPORTER":     " OTLP ",
		"KIN_TRACE_SAMPLE_RATIO": "0.25",
		"KIN_TRACE_SERVICE":      "bench",
	}))
	if err != nil {
		t.Fatalf("tracingConfigFrom: %v", err)
	}
	want := TracingConfig{Exporter: ExportOTLP, ServiceName: "bench", Endpoint: "localhost:4317", SampleRatio: 0.25}
	if cfg != want {
		t.Fatalf("config = %+v, want %+v", cfg, want)
	}
}

func TestTracingConfigRejectsBadValues(t *testing.T) {
	for name, env := range map[string]map[string]string{
		"unparsable ratio":   {"KIN_TRACE_EXPORTER": "stdout", "KIN_TRACE_SAMPLE_RATIO": "half"},
		"ratio out of range": {"KIN_TRACE_EXPORTER": "stdout", "KIN_TRACE_SAMPLE_RATIO": "7"},
		"unknown exporter":   {"KIN_TRACE_EXPORTER": "zipkin"},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := tracingConfigFrom(envOf(env)); err == nil {
				t.Fatalf("expected an error for %v", env)
			}
		})
	}
}

func TestStartTracingDisabledInstallsNoop(t *testing.T) {
	tr, err := StartTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("StartTracing: %v", err)
	}
	if tr.Enabled() {
		t.Fatalf("Enabled = true for the none exporter")
	}
	_, span := otel.Tracer("test").Start(context.Background(), "analyze")
	if span.SpanContext().IsValid() {
		t.Fatalf("disabled tracing produced a sampled span")
	}
	span.End()
	tr.Close(context.Background())
}

func TestStartTracingStdoutWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tr, err := StartTracing(context.Background(), TracingConfig{Exporter: ExportStdout, SampleRatio: 1, Output: &buf}, nil)
	if err != nil {
		t.Fatalf("StartTracing: %v", err)
	}
	t.Cleanup(func() { _, _ = StartTracing(context.Background(), TracingConfig{}, nil) })

	_, span := otel.Tracer("test").Start(context.Background(), "core.Analyze")
	if !span.SpanContext().IsSampled() {
		t.Fatalf("span not sampled at ratio 1")
	}
	span.End()
	tr.Close(context.Background())

	if !strings.Contains(buf.String(), "core.Analyze") || !strings.Contains(buf.String(), "suspension-kinematics") {
		t.Fatalf("stdout export missing span or service name:\n%s", buf.String())
	}
}

func TestStartTracingRejectsUnknownExporter(t *testing.T) {
	if _, err := StartTracing(context.Background(), TracingConfig{Exporter: "zipkin", SampleRatio: 1}, nil); err == nil {
		t.Fatalf("expected unsupported exporter error")
	}
}

func TestNilTracingIsSafe(t *testing.T) {
	var tr *Tracing
	if tr.Enabled() {
		t.Fatalf("nil Tracing reports enabled")
	}
	tr.Close(context.Background())
}
