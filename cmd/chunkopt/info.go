package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// compareCmd prints the lexical similarity of two files
var compareCmd = &cobra.Command{
	Use:   "compare <file-a> <file-b>",
	Short: "Compare two texts",
	Long: `Print the lexical similarity of two files, from 0 (no shared content
words) to 1 (identical vocabulary).

Example:
  chunkopt compare v1/intro.md v2/intro.md`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

// profilesCmd lists the domain profiles
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List domain profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfiles,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func runCompare(cmd *cobra.Command, args []string) error {
	chunks, err := readChunks(args)
	if err != nil {
		return err
	}
	if len(chunks) != 2 {
		return fmt.Errorf("expected 2 texts, got %d", len(chunks))
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	sim, err := c.Similarity(cmd.Context(), chunks[0].Content, chunks[1].Content)
	if err != nil {
		return fmt.Errorf("compare failed: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]float64{"similarity": sim})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%.3f\n", sim)
	return nil
}

func runProfiles(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	profiles, err := c.Profiles(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), profiles)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tWEIGHTS (Q/R/S/SIM)\tLENGTH\tOPTIMAL")
	for _, p := range profiles {
		fmt.Fprintf(tw, "%s\t%.2f/%.2f/%.2f/%.2f\t%d-%d\t%d-%d\n",
			p.Name,
			p.QualityWeight, p.RedundancyWeight, p.SizeWeight, p.SimilarityWeight,
			p.MinLength, p.MaxLength,
			p.OptimalLength[0], p.OptimalLength[1])
	}
	return tw.Flush()
}

func runHealth(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	resp, err := c.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("server unhealthy: status %q", resp.Status)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Server is healthy: %s (version %s)\n", serverURL, resp.Version)
	return nil
}
