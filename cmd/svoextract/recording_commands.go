package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"svoextract/internal/api"
	"svoextract/internal/textutil"
)

func newRecordingCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recording",
		Aliases: []string{"recordings", "rec"},
		Short:   "Register and list stereo recordings",
	}
	cmd.AddCommand(newRecordingAddCommand(ctx))
	cmd.AddCommand(newRecordingListCommand(ctx))
	return cmd
}

func newRecordingAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Register .svo2/.svo recordings, copying them into the uploads directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *cliServices) error {
				added := make([]api.Recording, 0, len(args))
				for _, path := range args {
					rec, err := svc.recordings.AddFile(cmd.Context(), path)
					if err != nil {
						return fmt.Errorf("add %s: %w", path, err)
					}
					added = append(added, *rec)
				}
				return ctx.emit(cmd, api.RecordingListResponse{Recordings: added}, func() error {
					out := cmd.OutOrStdout()
					for _, rec := range added {
						fmt.Fprintf(out, "Registered recording %d: %s (%s)\n", rec.ID, rec.Name, textutil.FormatBytes(uint64(rec.SizeBytes)))
					}
					return nil
				})
			})
		},
	}
}

func newRecordingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *cliServices) error {
				recs, err := svc.recordings.List(cmd.Context())
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.RecordingListResponse{Recordings: recs}, func() error {
					if len(recs) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No recordings registered")
						return nil
					}
					fmt.Fprint(cmd.OutOrStdout(), renderTable(recordingColumns, buildRecordingRows(recs)))
					return nil
				})
			})
		},
	}
}

var recordingColumns = []column{
	{header: "ID", align: alignRight},
	{header: "Name"},
	{header: "Size", align: alignRight},
	{header: "Added"},
	{header: "Path"},
}

func buildRecordingRows(recs []api.Recording) [][]string {
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			rec.Name,
			textutil.FormatBytes(uint64(rec.SizeBytes)),
			rec.CreatedAt,
			rec.Path,
		})
	}
	return rows
}
