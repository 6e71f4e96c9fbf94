package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"svoextract/internal/extract"
	"svoextract/internal/framesource"
	"svoextract/internal/logging"
	"svoextract/internal/services"
)

const stageName = "pipeline"

// Range selects source frames: Start inclusive, End exclusive (nil means the
// whole recording), visited every Step frames.
type Range struct {
	Start int
	End   *int
	Step  int
}

// Validate rejects ranges that cannot be normalized.
func (r Range) Validate() error {
	if r.Step < 1 {
		return services.Wrap(services.ErrInvalidConfiguration, stageName, "range", fmt.Sprintf("step must be >= 1, got %d", r.Step), nil)
	}
	if r.Start < 0 {
		return services.Wrap(services.ErrInvalidConfiguration, stageName, "range", fmt.Sprintf("start must be >= 0, got %d", r.Start), nil)
	}
	if r.End != nil && *r.End < 0 {
		return services.Wrap(services.ErrInvalidConfiguration, stageName, "range", fmt.Sprintf("end must be >= 0, got %d", *r.End), nil)
	}
	return nil
}

// Plan is a range resolved against a recording length.
type Plan struct {
	Start   int
	End     int
	Step    int
	Planned int
}

// Normalize clamps r against total frames. An unbounded or oversized end
// becomes total and a start at or past the end plans zero frames.
func Normalize(r Range, total int) (Plan, error) {
	if err := r.Validate(); err != nil {
		return Plan{}, err
	}
	if total < 0 {
		total = 0
	}
	end := total
	if r.End != nil && *r.End < total {
		end = *r.End
	}
	plan := Plan{Start: r.Start, End: end, Step: r.Step}
	if end > r.Start {
		plan.Planned = (end - r.Start) / r.Step
	}
	return plan, nil
}

// Frames lists the source indices the plan visits.
func (p Plan) Frames() []int {
	frames := make([]int, 0, p.Planned)
	for i := 0; i < p.Planned; i++ {
		frames = append(frames, p.Start+i*p.Step)
	}
	return frames
}

// ProgressFunc receives percent of the planned range done, frames done and
// frames planned.
type ProgressFunc func(percent float64, done, planned int)

// Options configures one run.
type Options struct {
	Range      Range
	Categories extract.Selection
	// OutputDir is the recording's output root; category folders are created
	// beneath it on demand.
	OutputDir  string
	OnProgress ProgressFunc
	Logger     *slog.Logger
}

// Result summarizes a run. Artifacts are in creation order.
type Result struct {
	Extracted   int
	Planned     int
	TotalFrames int
	Artifacts   []extract.Artifact
	EndedEarly  bool
}

// Run extracts the planned frames from src. src must be freshly opened and is
// not closed by Run. On extractor failure the returned Result still lists the
// artifacts written so far.
func Run(ctx context.Context, src framesource.Source, opts Options) (Result, error) {
	if err := opts.Range.Validate(); err != nil {
		return Result{}, err
	}
	if opts.OutputDir == "" {
		return Result{}, services.Wrap(services.ErrInvalidConfiguration, stageName, "options", "output directory is required", nil)
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, stageName))
	report := opts.OnProgress
	if report == nil {
		report = func(float64, int, int) {}
	}

	total := src.TotalFrames()
	plan, err := Normalize(opts.Range, total)
	if err != nil {
		return Result{}, err
	}
	result := Result{Planned: plan.Planned, TotalFrames: total}
	if plan.Planned == 0 {
		logger.Info("no frames planned",
			logging.Int("start", plan.Start),
			logging.Int("end", plan.End),
			logging.Int("total_frames", total),
		)
		report(100, 0, 0)
		return result, nil
	}

	writer := extract.NewWriter(opts.OutputDir)
	var inertial *extract.InertialLog
	if opts.Categories.Enabled(extract.Inertial) {
		inertial = &extract.InertialLog{}
	}

	logger.Debug("extraction plan",
		logging.Int("start", plan.Start),
		logging.Int("end", plan.End),
		logging.Int("step", plan.Step),
		logging.Int("planned", plan.Planned),
		logging.String("categories", opts.Categories.String()),
	)

	for _, frame := range plan.Frames() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := src.Seek(frame); err != nil {
			logging.WarnWithContext(logger, "seek failed; ending file early", "seek_failed",
				logging.Int("frame", frame),
				logging.Error(err),
				logging.String(logging.FieldImpact, "remaining frames of this recording were skipped"),
			)
			result.EndedEarly = true
			break
		}
		if err := src.Grab(); err != nil {
			result.EndedEarly = true
			if errors.Is(err, framesource.ErrEndOfStream) {
				logger.Info("end of stream before planned range completed",
					logging.Int("frame", frame),
					logging.Int("extracted", result.Extracted),
				)
				break
			}
			logging.WarnWithContext(logger, "grab failed; ending file early", "grab_failed",
				logging.Int("frame", frame),
				logging.Error(err),
				logging.String(logging.FieldImpact, "remaining frames of this recording were skipped"),
				logging.Hint("check the recording for corruption"),
			)
			break
		}

		index := result.Extracted
		items, err := writer.ExtractFrame(src, index, opts.Categories)
		result.Artifacts = append(result.Artifacts, items...)
		if err != nil {
			return result, services.Wrap(services.ErrExtraction, stageName, fmt.Sprintf("frame %d", frame), "extract", err)
		}
		if inertial != nil {
			if err := inertial.Collect(src, index); err != nil {
				return result, services.Wrap(services.ErrExtraction, stageName, fmt.Sprintf("frame %d", frame), "inertial", err)
			}
		}

		result.Extracted++
		report(float64(result.Extracted)*100/float64(plan.Planned), result.Extracted, plan.Planned)
	}

	if inertial != nil {
		artifact, err := writer.FlushInertial(inertial)
		if err != nil {
			return result, services.Wrap(services.ErrExtraction, stageName, "inertial", "write log", err)
		}
		if artifact != nil {
			result.Artifacts = append(result.Artifacts, *artifact)
		}
	}
	return result, nil
}
