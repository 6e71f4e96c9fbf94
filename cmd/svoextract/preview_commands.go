package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"svoextract/internal/framesource"
	"svoextract/internal/preview"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render single frames and inspect recordings",
	}
	cmd.AddCommand(newPreviewFrameCommand(ctx))
	cmd.AddCommand(newPreviewInfoCommand(ctx))
	cmd.AddCommand(newPreviewInertialCommand(ctx))
	return cmd
}

// recordingPath resolves a registered recording id to its on-disk path.
func (c *commandContext) recordingPath(ctx context.Context, arg string) (string, error) {
	id, err := parseID(arg)
	if err != nil {
		return "", err
	}
	var path string
	err = c.withServices(func(svc *cliServices) error {
		rec, err := svc.recordings.Get(ctx, id)
		if err != nil {
			return err
		}
		path = rec.Path
		return nil
	})
	return path, err
}

func previewError(info *preview.ErrorInfo) error {
	if info == nil {
		return errors.New("preview failed")
	}
	return fmt.Errorf("preview failed (%s): %s", info.Kind, info.Message)
}

func newPreviewFrameCommand(ctx *commandContext) *cobra.Command {
	var frame int
	var view string
	var depthMode string
	var outPath string

	cmd := &cobra.Command{
		Use:   "frame <recording-id>",
		Short: "Render one view of one frame as JPEG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedView, err := preview.ParseView(view)
			if err != nil {
				return err
			}
			path, err := ctx.recordingPath(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			svc, cfg, err := ctx.previewService()
			if err != nil {
				return err
			}
			modeName := strings.TrimSpace(depthMode)
			if modeName == "" {
				modeName = cfg.Extraction.DepthMode
			}
			mode, err := framesource.ParseDepthMode(modeName)
			if err != nil {
				return err
			}

			result := svc.Frame(cmd.Context(), path, frame, parsedView, mode)
			if !result.OK {
				return previewError(result.Error)
			}
			if outPath != "" {
				if err := os.WriteFile(outPath, result.JPEG, 0o644); err != nil {
					return fmt.Errorf("write preview: %w", err)
				}
			}
			return ctx.emit(cmd, result, func() error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Frame %d/%d %s %dx%d\n", result.Frame, result.TotalFrames, result.View, result.Width, result.Height)
				if outPath != "" {
					fmt.Fprintf(out, "Wrote %s\n", outPath)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&frame, "frame", "f", 0, "Frame index (clamped to the recording)")
	cmd.Flags().StringVar(&view, "view", "", "View: rgb_left, rgb_right, depth, confidence, normals or point_cloud")
	cmd.Flags().StringVar(&depthMode, "depth-mode", "", "Depth mode (defaults from config)")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the JPEG to this path")
	return cmd
}

func newPreviewInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info <recording-id>",
		Short: "Report the frame count of a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ctx.recordingPath(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			svc, _, err := ctx.previewService()
			if err != nil {
				return err
			}
			result := svc.Info(cmd.Context(), path)
			if !result.OK {
				return previewError(result.Error)
			}
			return ctx.emit(cmd, result, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Total frames: %d\n", result.TotalFrames)
				return nil
			})
		},
	}
}

func newPreviewInertialCommand(ctx *commandContext) *cobra.Command {
	var frame int

	cmd := &cobra.Command{
		Use:     "imu <recording-id>",
		Aliases: []string{"inertial"},
		Short:   "Show the inertial sample recorded with a frame",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ctx.recordingPath(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			svc, _, err := ctx.previewService()
			if err != nil {
				return err
			}
			result := svc.Inertial(cmd.Context(), path, frame)
			if !result.OK {
				return previewError(result.Error)
			}
			return ctx.emit(cmd, result, func() error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Frame %d\n", result.Frame)
				if result.Sample == nil {
					fmt.Fprintln(out, "No inertial sample")
					return nil
				}
				s := result.Sample
				fmt.Fprint(out, renderTable(
					[]column{{header: "Field"}, {header: "Value", align: alignRight}},
					[][]string{
						{"timestamp_ms", fmt.Sprintf("%d", s.TimestampMs)},
						{"orientation", formatVector(s.Orientation[:])},
						{"angular_velocity", formatVector(s.AngularVelocity[:])},
						{"linear_acceleration", formatVector(s.LinearAcceleration[:])},
					},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&frame, "frame", "f", 0, "Frame index (clamped to the recording)")
	return cmd
}

func formatVector(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.4f", v)
	}
	return strings.Join(parts, ", ")
}
