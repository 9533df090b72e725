package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/chunkopt/internal/config"
	"github.com/fyrsmithlabs/chunkopt/internal/events"
	"github.com/fyrsmithlabs/chunkopt/internal/logging"
	"github.com/fyrsmithlabs/chunkopt/internal/optimizer"
	"github.com/fyrsmithlabs/chunkopt/internal/profile"
	"github.com/fyrsmithlabs/chunkopt/internal/telemetry"
)

// deps holds everything both serving modes share.
type deps struct {
	cfg       *config.Config
	logger    *logging.Logger
	tel       *telemetry.Telemetry
	engine    *optimizer.Engine
	publisher *events.NATSPublisher
}

// setup initializes dependencies in order:
//  1. Loads and validates configuration
//  2. Initializes telemetry and the logger (writing to logOut)
//  3. Loads the profile table
//  4. Connects to NATS when an events URL is configured
//  5. Creates the engine
func setup(ctx context.Context, path string, logOut io.Writer) (*deps, error) {
	cfg, err := config.LoadWithFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	d := &deps{cfg: cfg}

	d.tel, err = telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	d.logger, err = newLogger(cfg.Log, d.tel, logOut)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	d.logger.Info(ctx, "starting chunkoptd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Int("workers", cfg.Engine.Workers),
		zap.Bool("telemetry", d.tel.IsEnabled()),
		zap.Bool("auth", cfg.Auth.APIKey.IsSet()),
	)

	table, err := profile.LoadTable(cfg.Engine.ProfilesFile)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	d.logger.Info(ctx, "profiles loaded", zap.Strings("profiles", table.Names()))

	opts := []optimizer.Option{
		optimizer.WithTable(table),
		optimizer.WithWorkers(cfg.Engine.Workers),
		optimizer.WithCacheSize(cfg.Engine.CacheSize),
		optimizer.WithMaxContentLength(cfg.Engine.MaxContentLength),
		optimizer.WithLogger(d.logger),
		optimizer.WithTelemetry(d.tel),
	}

	if cfg.Events.NATSURL != "" {
		d.publisher, err = events.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		opts = append(opts, optimizer.WithPublisher(d.publisher))
		d.logger.Info(ctx, "publishing progress events",
			zap.String("subject_prefix", d.publisher.Prefix()))
	}

	d.engine, err = optimizer.NewEngine(opts...)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return d, nil
}

func newLogger(lc config.LogConfig, tel *telemetry.Telemetry, w io.Writer) (*logging.Logger, error) {
	cfg := logging.NewDefaultConfig()
	if err := cfg.Apply(lc.Level, lc.Format); err != nil {
		return nil, err
	}
	return logging.NewLoggerWithWriter(cfg, tel.LoggerProvider(), w)
}

// Close releases resources in reverse order of setup.
func (d *deps) Close() {
	ctx := context.Background()
	if d.publisher != nil {
		if err := d.publisher.Close(); err != nil && d.logger != nil {
			d.logger.Warn(ctx, "failed to close nats connection", zap.Error(err))
		}
	}
	if err := d.tel.Shutdown(ctx); err != nil && d.logger != nil {
		d.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	if d.logger != nil {
		_ = d.logger.Sync()
	}
}
