// Chunkoptd is the chunk optimization daemon.
//
// By default it serves the REST API. The mcp subcommand serves the same
// engine as MCP tools over stdio.
//
// Configuration is read from ~/.config/chunkopt/config.yaml (or --config)
// and overridden by environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the HTTP server with defaults
//	chunkoptd
//
//	# Configure via environment
//	SERVER_HTTP_PORT=9090 AUTH_API_KEY=secret chunkoptd
//
//	# Serve MCP tools on stdio
//	chunkoptd mcp
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chunkhttp "github.com/fyrsmithlabs/chunkopt/internal/http"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chunkoptd",
	Short: "Chunk scoring and optimization daemon",
	Long: `chunkoptd scores text chunks for retrieval pipelines and suggests
optimizations. It serves a REST API under /api/v1.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHTTP(cmd.Context(), configPath)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve MCP tools over stdio",
	Long: `Serve the analysis engine as MCP tools over stdin/stdout.

Logs are written to stderr since stdout carries the protocol.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context(), configPath)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/chunkopt/config.yaml)")
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "chunkoptd by Fyrsmith Labs\n")
	fmt.Fprintf(w, "Version:    %s\n", version)
	fmt.Fprintf(w, "Commit:     %s\n", gitCommit)
	fmt.Fprintf(w, "Build Date: %s\n", buildDate)
}

// runHTTP starts the HTTP server and blocks until ctx is cancelled, then
// shuts down within the configured timeout.
func runHTTP(ctx context.Context, path string) error {
	d, err := setup(ctx, path, os.Stdout)
	if err != nil {
		return err
	}
	defer d.Close()

	srv, err := chunkhttp.NewServer(d.engine, d.logger, chunkhttp.ConfigFrom(d.cfg, version),
		chunkhttp.WithTelemetry(d.tel))
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	d.logger.Info(context.Background(), "shutdown signal received",
		zap.Duration("timeout", d.cfg.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}
