// Package main implements the chunkopt CLI for analyzing chunks against a
// chunkoptd server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/chunkopt/pkg/client"
)

var (
	// serverURL is the base URL for the chunkoptd HTTP server
	serverURL string
	apiKey    string
	timeout   time.Duration
	// jsonOutput prints raw API responses instead of summaries
	jsonOutput bool
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chunkopt",
	Short: "CLI for chunkoptd analysis",
	Long: `chunkopt is a command-line interface for the chunkoptd HTTP server.
It scores chunks, documents and batches, compares texts and lists the
domain profiles the server knows.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "chunkoptd server URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("CHUNKOPT_API_KEY"), "API key (default $CHUNKOPT_API_KEY)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON responses")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(documentCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(healthCmd)
}

// newClient builds a client from the persistent flags. The response cache is
// pointless for a single invocation.
func newClient() (*client.Client, error) {
	opts := []client.Option{client.WithTimeout(timeout), client.WithoutCache()}
	if apiKey != "" {
		opts = append(opts, client.WithAPIKey(apiKey))
	}
	return client.New(serverURL, opts...)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return nil
}
