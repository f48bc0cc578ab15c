package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/lexfield/regscout/internal/config"
)

// DrainCmd returns the drain command
func DrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Process queued crawl jobs once and exit",
		Long:  "Claim and execute up to --max pending crawl jobs, then exit. Intended for cron or external worker processes.",
		RunE:  runDrain,
	}

	cmd.Flags().Int("max", 10, "Maximum number of jobs to process")

	return cmd
}

func runDrain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	maxJobs, _ := cmd.Flags().GetInt("max")
	if maxJobs <= 0 {
		maxJobs = cfg.DrainBatchSize
	}

	processed, err := a.scheduler.DrainQueue(ctx, maxJobs)
	if err != nil {
		return fmt.Errorf("drain failed after %d job(s): %w", processed, err)
	}

	log.Printf("drained %d job(s)", processed)
	return nil
}
