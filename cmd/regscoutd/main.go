package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexfield/regscout/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "regscoutd",
		Short: "RegScout daemon and CLI",
		Long:  "RegScout daemon for running the crawl API server, draining the job queue, and submitting crawl jobs",
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.DrainCmd())
	rootCmd.AddCommand(cli.SubmitCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
