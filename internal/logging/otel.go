package logging

import (
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// instrumentationName identifies chunkopt records in the OTEL log pipeline.
const instrumentationName = "github.com/fyrsmithlabs/chunkopt"

// newDualCore creates core with stdout and/or OTEL outputs, wrapped with
// sampling. OTEL output is skipped when otelProvider is nil.
func newDualCore(cfg *Config, otelProvider log.LoggerProvider, stdout zapcore.WriteSyncer) (zapcore.Core, error) {
	cores := make([]zapcore.Core, 0, 2)

	if cfg.Output.Stdout {
		encoder, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
		if err != nil {
			return nil, fmt.Errorf("failed to create redacting encoder: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoder, stdout, cfg.Level))
	}

	if cfg.Output.OTEL && otelProvider != nil {
		otelCore := otelzap.NewCore(instrumentationName,
			otelzap.WithLoggerProvider(otelProvider),
		)
		cores = append(cores, &levelRangeCore{Core: otelCore, min: cfg.Level, max: zapcore.FatalLevel})
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("at least one output must be enabled and available")
	}

	core := cores[0]
	if len(cores) > 1 {
		core = zapcore.NewTee(cores...)
	}
	return newSampledCore(core, cfg.Sampling), nil
}
