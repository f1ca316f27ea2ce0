package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server and its storage are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			start := time.Now()
			if err := client.Get("/api/v1/health", &result); err != nil {
				return fmt.Errorf("server unhealthy: %w", err)
			}
			result.LatencyMS = time.Since(start).Milliseconds()

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
