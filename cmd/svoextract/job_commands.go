package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"svoextract/internal/api"
	"svoextract/internal/queue"
	"svoextract/internal/textutil"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "job",
		Aliases: []string{"jobs"},
		Short:   "Submit and manage extraction jobs",
	}
	cmd.AddCommand(newJobSubmitCommand(ctx))
	cmd.AddCommand(newJobListCommand(ctx))
	cmd.AddCommand(newJobStatusCommand(ctx))
	cmd.AddCommand(newJobArtifactsCommand(ctx))
	cmd.AddCommand(newJobDeleteCommand(ctx))
	cmd.AddCommand(newJobImportCommand(ctx))
	return cmd
}

func newJobSubmitCommand(ctx *commandContext) *cobra.Command {
	var categories []string
	var depthMode string
	var start, end, step int

	cmd := &cobra.Command{
		Use:   "submit <recording-id>...",
		Short: "Queue an extraction job over one or more recordings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			req := api.SubmitRequest{
				RecordingIDs: ids,
				Categories:   categories,
				DepthMode:    depthMode,
				FrameStart:   start,
				FrameStep:    step,
			}
			if cmd.Flags().Changed("end") {
				req.FrameEnd = &end
			}
			return ctx.withServices(func(svc *cliServices) error {
				job, err := svc.jobs.Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.JobResponse{Job: *job}, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %d (%s, %s) over %d recording(s)\n",
						job.ID, strings.Join(job.Categories, ","), job.DepthMode, len(job.RecordingIDs))
					return nil
				})
			})
		},
	}

	cmd.Flags().StringSliceVar(&categories, "category", nil, "Data category to extract (repeatable; defaults from config)")
	cmd.Flags().StringVar(&depthMode, "depth-mode", "", "Depth mode: NEURAL, ULTRA, QUALITY or PERFORMANCE")
	cmd.Flags().IntVar(&start, "start", 0, "First frame index")
	cmd.Flags().IntVar(&end, "end", 0, "Exclusive end frame index (default: end of recording)")
	cmd.Flags().IntVar(&step, "step", 0, "Frame step (defaults from config)")
	return cmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List extraction jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make([]queue.Status, 0, len(statuses))
			for _, value := range statuses {
				filter = append(filter, queue.Status(strings.ToLower(strings.TrimSpace(value))))
			}
			return ctx.withServices(func(svc *cliServices) error {
				jobs, err := svc.jobs.List(cmd.Context(), filter...)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.JobListResponse{Jobs: jobs}, func() error {
					if len(jobs) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
						return nil
					}
					fmt.Fprint(cmd.OutOrStdout(), renderTable(jobColumns, buildJobRows(jobs)))
					return nil
				})
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	return cmd
}

var jobColumns = []column{
	{header: "ID", align: alignRight},
	{header: "Status"},
	{header: "Progress", align: alignRight},
	{header: "Recordings", align: alignRight},
	{header: "Categories"},
	{header: "Depth"},
	{header: "Created"},
}

func buildJobRows(jobs []api.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			textutil.TitleLabel(job.Status),
			formatPercent(job.Progress),
			strconv.Itoa(len(job.RecordingIDs)),
			strings.Join(job.Categories, ", "),
			job.DepthMode,
			job.CreatedAt,
		})
	}
	return rows
}

func newJobStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show job progress with per-recording detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *cliServices) error {
				progress, err := svc.jobs.Progress(cmd.Context(), id)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, progress, func() error {
					renderJobProgress(cmd, progress)
					return nil
				})
			})
		},
	}
}

func renderJobProgress(cmd *cobra.Command, progress *api.JobProgress) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	lines := renderSectionHeader(fmt.Sprintf("Job %d", progress.JobID), colorize)
	lines = append(lines,
		renderStatusLine("Status", jobStatusKind(progress.Status), textutil.TitleLabel(progress.Status), colorize),
		renderStatusLine("Progress", statusInfo, formatPercent(progress.Progress), colorize),
	)
	if progress.ErrorMessage != "" {
		lines = append(lines, renderStatusLine("Error", statusError, progress.ErrorMessage, colorize))
	}
	fmt.Fprintln(out, strings.Join(lines, "\n"))
	if len(progress.Files) == 0 {
		return
	}
	fmt.Fprint(out, renderTable(fileColumns, buildFileRows(progress.Files)))
}

var fileColumns = []column{
	{header: "Recording"},
	{header: "Status"},
	{header: "Progress", align: alignRight},
	{header: "Frames", align: alignRight},
	{header: "Error"},
}

func buildFileRows(files []api.FileProgress) [][]string {
	rows := make([][]string, 0, len(files))
	for _, file := range files {
		frames := "-"
		if file.TotalFrames > 0 {
			frames = fmt.Sprintf("%d/%d", file.CurrentFrame, file.TotalFrames)
		}
		rows = append(rows, []string{
			file.Filename,
			textutil.TitleLabel(file.Status),
			formatPercent(file.Progress),
			frames,
			file.ErrorMessage,
		})
	}
	return rows
}

func newJobArtifactsCommand(ctx *commandContext) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "artifacts <job-id>",
		Short: "List files produced by a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *cliServices) error {
				artifacts, err := svc.jobs.Artifacts(cmd.Context(), id)
				if err != nil {
					return err
				}
				if category = strings.TrimSpace(category); category != "" {
					filtered := artifacts[:0]
					for _, a := range artifacts {
						if a.Category == category {
							filtered = append(filtered, a)
						}
					}
					artifacts = filtered
				}
				return ctx.emit(cmd, api.ArtifactListResponse{JobID: id, Artifacts: artifacts}, func() error {
					if len(artifacts) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No artifacts")
						return nil
					}
					fmt.Fprint(cmd.OutOrStdout(), renderTable(artifactColumns, buildArtifactRows(artifacts)))
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only show artifacts of this category")
	return cmd
}

var artifactColumns = []column{
	{header: "Recording", align: alignRight},
	{header: "Category"},
	{header: "Frame", align: alignRight},
	{header: "Size", align: alignRight},
	{header: "Path"},
}

func buildArtifactRows(artifacts []api.Artifact) [][]string {
	rows := make([][]string, 0, len(artifacts))
	for _, a := range artifacts {
		frame := "-"
		if a.FrameIndex != nil {
			frame = strconv.Itoa(*a.FrameIndex)
		}
		rows = append(rows, []string{
			strconv.FormatInt(a.RecordingID, 10),
			a.Category,
			frame,
			textutil.FormatBytes(uint64(a.SizeBytes)),
			a.Path,
		})
	}
	return rows
}

func newJobDeleteCommand(ctx *commandContext) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "delete <job-id>...",
		Short: "Delete jobs with their result files and bundles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *cliServices) error {
				result, err := api.DeleteJobsByID(cmd.Context(), svc.jobs, ids, purge)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, result, func() error {
					out := cmd.OutOrStdout()
					for _, job := range result.Jobs {
						switch job.Outcome {
						case api.DeleteJobRemoved:
							fmt.Fprintf(out, "Job %d deleted\n", job.ID)
						case api.DeleteJobNotFound:
							fmt.Fprintf(out, "Job %d not found\n", job.ID)
						case api.DeleteJobBusy:
							fmt.Fprintf(out, "Job %d is processing; not deleted\n", job.ID)
						}
						for _, warning := range job.Warnings {
							fmt.Fprintf(out, "  warning: %s\n", warning)
						}
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().BoolVar(&purge, "purge-recordings", false, "Also remove recordings no other job references")
	return cmd
}

func newJobImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <job-id>",
		Short: "Register files already present in a job's result directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *cliServices) error {
				result, err := svc.jobs.Import(cmd.Context(), id)
				if api.IsBusy(err) {
					return fmt.Errorf("job %d is processing; import after it finishes", id)
				}
				if err != nil {
					return err
				}
				return ctx.emit(cmd, result, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d file(s) for job %d (%d already registered)\n",
						result.Imported, result.Scanned, result.JobID, result.Skipped)
					return nil
				})
			})
		},
	}
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}

func parseIDs(values []string) ([]int64, error) {
	if len(values) == 0 {
		return nil, errors.New("at least one id is required")
	}
	ids := make([]int64, 0, len(values))
	for _, value := range values {
		id, err := parseID(value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func formatPercent(value float64) string {
	return strconv.FormatFloat(value, 'f', 1, 64) + "%"
}
