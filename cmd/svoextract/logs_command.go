package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"svoextract/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var jobID int64

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := logs.TailOptions{Offset: -1, Limit: lines}
			if jobID > 0 {
				opts.Filter = logs.JobFilter(jobID)
			}
			out := cmd.OutOrStdout()
			for {
				result, err := logs.Tail(cmd.Context(), cfg.LogPath(), opts)
				for _, line := range result.Lines {
					fmt.Fprintln(out, line)
				}
				if err != nil {
					if errors.Is(err, cmd.Context().Err()) {
						return nil
					}
					return err
				}
				if !follow {
					return nil
				}
				opts.Offset = result.Offset
				opts.Follow = true
				opts.Wait = 5 * time.Second
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().Int64Var(&jobID, "job", 0, "Only show lines for this job id")
	return cmd
}
