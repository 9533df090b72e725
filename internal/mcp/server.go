package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/chunkopt/internal/logging"
	"github.com/fyrsmithlabs/chunkopt/internal/optimizer"
	"github.com/fyrsmithlabs/chunkopt/internal/profile"
	"github.com/fyrsmithlabs/chunkopt/internal/telemetry"
)

// Engine is the analysis surface exposed as tools. *optimizer.Engine
// implements it.
type Engine interface {
	AnalyzeChunk(ctx context.Context, chunk optimizer.Chunk, domain string, opts *optimizer.Options) (*optimizer.ChunkResult, error)
	AnalyzeDocument(ctx context.Context, documentID string, chunks []optimizer.Chunk, domain string, opts *optimizer.Options) (*optimizer.DocumentResult, error)
	AnalyzeBatch(ctx context.Context, batchID string, items []optimizer.Chunk, domain string, opts *optimizer.Options) (*optimizer.BatchResult, error)
	Compare(ctx context.Context, a, b string) (float64, error)
	Profiles() []profile.Profile
}

// Server serves the engine over MCP.
type Server struct {
	mcp     *mcp.Server
	engine  Engine
	logger  *logging.Logger
	metrics *Metrics
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "chunkopt")
	Name string

	// Version is the server version (default: "dev")
	Version string

	Logger    *logging.Logger
	Telemetry *telemetry.Telemetry
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "chunkopt",
		Version: "dev",
		Logger:  logging.NewNop(),
	}
}

// NewServer creates an MCP server with every tool registered.
func NewServer(cfg *Config, engine Engine) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    cfg.Name,
				Version: cfg.Version,
			},
			nil,
		),
		engine:  engine,
		logger:  logger.Named("mcp"),
		metrics: NewMetrics(cfg.Telemetry.Meter(instrumentationName), logger),
	}
	s.registerTools()
	return s, nil
}

// Run serves on the stdio transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
