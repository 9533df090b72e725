// Package logging provides structured, context-aware logging for chunkopt.
//
// Logger wraps zap with:
//   - a Trace level (-2, below Debug)
//   - stdout and/or OpenTelemetry output
//   - correlation fields pulled from the context (trace_id, request.id,
//     document.id, batch.id, domain)
//   - redaction of sensitive keys and values at the encoder
//   - per-level sampling; Error and above are never sampled
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithDocumentID(ctx, "doc-42")
//	ctx = logging.WithDomain(ctx, "medical")
//	logger.Info(ctx, "document analyzed", zap.Int("chunks", 12))
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	engine := optimizer.NewEngine(optimizer.WithLogger(tl.Logger))
//	...
//	tl.AssertLogged(t, zapcore.WarnLevel, "chunk failed")
//	tl.AssertNoSecrets(t)
package logging
