// Package telemetry sets up OpenTelemetry tracing and metrics for chunkopt.
//
// Spans and metrics are exported over OTLP (grpc or http/protobuf) to a
// collector. When telemetry is disabled the global no-op providers are used,
// so instrumented code never needs to check.
//
//	cfg := telemetry.FromObservability(appCfg.Observability, version)
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	tracer := tel.Tracer("chunkopt.optimizer")
//	ctx, span := tracer.Start(ctx, "optimizer.AnalyzeChunk")
//	defer span.End()
//
// Tests use NewTestTelemetry, which records spans with a tracetest recorder
// and collects metrics through a manual reader:
//
//	tt := telemetry.NewTestTelemetry()
//	engine := optimizer.NewEngine(optimizer.WithTelemetry(tt.Telemetry))
//	...
//	tt.AssertSpanExists(t, "optimizer.AnalyzeChunk")
package telemetry
