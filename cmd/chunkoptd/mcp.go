package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fyrsmithlabs/chunkopt/internal/mcp"
)

// runMCP serves MCP tools on stdio until the client disconnects or ctx is
// cancelled.
func runMCP(ctx context.Context, path string) error {
	// stdout is the protocol channel.
	d, err := setup(ctx, path, os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	srv, err := mcp.NewServer(&mcp.Config{
		Name:      "chunkopt",
		Version:   version,
		Logger:    d.logger,
		Telemetry: d.tel,
	}, d.engine)
	if err != nil {
		return fmt.Errorf("failed to create mcp server: %w", err)
	}

	fmt.Fprintf(os.Stderr, "chunkoptd stdio mode started (%d profiles)\n", len(d.engine.Profiles()))
	return srv.Run(ctx)
}
