package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/lexfield/regscout/internal/config"
	"github.com/lexfield/regscout/internal/scheduler"
)

// SubmitCmd returns the submit command
func SubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <url> [url...]",
		Short: "Submit crawl jobs from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSubmit,
	}

	cmd.Flags().String("source", "", "Source identifier for the submitted jobs (required)")
	cmd.Flags().Int("priority", 0, "Job priority, higher runs first")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runSubmit(cmd *cobra.Command, args []string) error {
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

	sourceID, _ := cmd.Flags().GetString("source")
	priority, _ := cmd.Flags().GetInt("priority")

	if len(args) == 1 {
		job, err := a.scheduler.Submit(ctx, scheduler.SubmitInput{
			SourceID: sourceID,
			URL:      args[0],
			Priority: priority,
		})
		if err != nil {
			return err
		}
		log.Printf("submitted job %s for %s", job.ID, job.URL)
		return nil
	}

	jobs, err := a.scheduler.SubmitBulk(ctx, sourceID, args, priority)
	if err != nil {
		return err
	}
	log.Printf("submitted %d job(s)", len(jobs))
	return nil
}
