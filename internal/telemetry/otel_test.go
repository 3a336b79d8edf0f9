package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{
			name: "full configuration",
			opts: Options{ServiceName: "personalization", ServiceVersion: "1.0.0", Endpoint: "localhost:4318", SampleRatio: 0.25},
		},
		{
			name: "empty service name",
			opts: Options{Endpoint: "localhost:4318"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tp, err := InitTracer(ctx, tt.opts)
			if err != nil {
				t.Fatalf("InitTracer() error = %v", err)
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := Shutdown(shutdownCtx, tp); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestShutdown_NilProvider(t *testing.T) {
	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown() with nil provider should not error, got: %v", err)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{ratio: 0, want: "ParentBased{root:AlwaysOnSampler"},
		{ratio: 1, want: "ParentBased{root:AlwaysOnSampler"},
		{ratio: 0.5, want: "ParentBased{root:TraceIDRatioBased{0.5}"},
	}

	for _, tt := range tests {
		got := sampler(tt.ratio).Description()
		if len(got) < len(tt.want) || got[:len(tt.want)] != tt.want {
			t.Errorf("sampler(%v) = %q, want prefix %q", tt.ratio, got, tt.want)
		}
	}
}

func TestStartSpan_RecordsAttributesAndErrors(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	_, span := StartSpan(context.Background(), "profile.rebuild", attribute.String("reason", "api"))
	RecordError(span, errors.New("activity store unavailable"))
	span.End()

	_, ok := StartSpan(context.Background(), "profile.rebuild")
	RecordError(ok, nil)
	ok.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(spans))
	}

	failed := spans[0]
	if failed.Name != "profile.rebuild" {
		t.Errorf("Expected span name profile.rebuild, got %s", failed.Name)
	}
	if failed.Status.Code != codes.Error {
		t.Errorf("Expected error status, got %v", failed.Status.Code)
	}
	found := false
	for _, attr := range failed.Attributes {
		if attr.Key == "reason" && attr.Value.AsString() == "api" {
			found = true
		}
	}
	if !found {
		t.Error("Expected reason attribute on span")
	}

	if spans[1].Status.Code == codes.Error {
		t.Error("Nil error must not mark the span failed")
	}
}
