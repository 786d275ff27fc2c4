package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/lingocast/internal/ui"
)

var (
	jobsLimit int

	jobsCmd = &cobra.Command{
		Use:   "jobs",
		Short: "Show recent generation jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			jobs, err := c.Jobs(cmd.Context(), jobsLimit)
			if err != nil {
				return err
			}
			fmt.Println(ui.RenderJobs(jobs, time.Now()))
			return nil
		},
	}
)

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "number of jobs to show")
}
