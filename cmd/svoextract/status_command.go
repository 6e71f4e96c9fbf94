package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"svoextract/internal/api"
	"svoextract/internal/daemonctl"
	"svoextract/internal/framesource"
	"svoextract/internal/logging"
	"svoextract/internal/preflight"
	"svoextract/internal/queue"
	"svoextract/internal/textutil"
)

type statusReport struct {
	DaemonRunning bool           `json:"daemon_running"`
	DaemonPID     int            `json:"daemon_pid,omitempty"`
	ConfigBackend string         `json:"backend"`
	Backends      []string       `json:"backends"`
	DatabasePath  string         `json:"database_path"`
	JobStats      map[string]int `json:"job_stats"`
	Checks        []api.Check    `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts and environment checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *cliServices) error {
				stats, err := svc.store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				running, pid, err := daemonctl.ProcessInfo(svc.cfg)
				if err != nil {
					svc.logger.Warn("daemon probe failed", logging.Error(err))
				}
				report := statusReport{
					DaemonRunning: running,
					DaemonPID:     pid,
					ConfigBackend: svc.cfg.FrameSource.Backend,
					Backends:      framesource.Backends(),
					DatabasePath:  svc.store.Path(),
					JobStats:      api.MergeJobStats(stats),
					Checks:        api.FromChecks(preflight.RunAll(cmd.Context(), svc.cfg)),
				}
				return ctx.emit(cmd, report, func() error {
					renderStatusReport(cmd, report)
					return nil
				})
			})
		},
	}
}

func renderStatusReport(cmd *cobra.Command, report statusReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	lines := renderSectionHeader("Environment", colorize)
	daemonLine := renderStatusLine("Daemon", statusWarn, "not running", colorize)
	if report.DaemonRunning {
		daemonLine = renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", report.DaemonPID), colorize)
	}
	lines = append(lines,
		daemonLine,
		renderStatusLine("Frame source", statusInfo, report.ConfigBackend, colorize),
		renderStatusLine("Database", statusInfo, report.DatabasePath, colorize),
	)
	for _, check := range report.Checks {
		kind := statusError
		if check.Passed {
			kind = statusOK
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Jobs", colorize)...)
	for _, status := range queue.AllStatuses() {
		count := report.JobStats[string(status)]
		lines = append(lines, renderStatusLine(textutil.TitleLabel(string(status)), jobStatusKind(string(status)), fmt.Sprintf("%d", count), colorize))
	}
	fmt.Fprintln(out, strings.Join(lines, "\n"))
}
