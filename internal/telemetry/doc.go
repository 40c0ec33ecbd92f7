// Package telemetry provides OpenTelemetry instrumentation for relnotesd.
//
// # Overview
//
// This package implements distributed tracing and metrics collection using the
// OpenTelemetry Go SDK. It exports telemetry data over OTLP http/protobuf to an
// OTEL Collector, which forwards to whatever backend the deployment uses.
//
// # Usage
//
// Create telemetry instance:
//
//	cfg := telemetry.NewDefaultConfig()
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
// Use tracer and meter:
//
//	tracer := tel.Tracer("relnotesd.http")
//	ctx, span := tracer.Start(ctx, "session.run")
//	defer span.End()
//
//	meter := tel.Meter("relnotesd.http")
//	counter, _ := meter.Int64Counter("http.requests")
//	counter.Add(ctx, 1)
//
// # Configuration
//
//	observability:
//	  enable_telemetry: true
//	  endpoint: "localhost:4318"
//	  service_name: "relnotesd"
//	  sampling:
//	    rate: 1.0  # 100% in dev, lower in prod
//	    always_on_errors: true
//	  metrics:
//	    enabled: true
//	    export_interval: "15s"
//
// # Error Handling
//
// Telemetry failures do not crash the application. If telemetry cannot be
// initialized, the instance degrades gracefully and returns no-op providers.
//
// # Testing
//
// Use TestTelemetry for tests:
//
//	tt := telemetry.NewTestTelemetry()
//	tracer := tt.Tracer("test")
//	_, span := tracer.Start(ctx, "test-span")
//	span.End()
//	tt.AssertSpanExists(t, "test-span")
package telemetry
