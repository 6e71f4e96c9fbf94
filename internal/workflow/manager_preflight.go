package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"svoextract/internal/logging"
	"svoextract/internal/preflight"
)

var errPreflight = errors.New("preflight checks failed")

// runPreflightChecks validates directories and the frame source backend
// before a job starts. Returns nil when all checks pass.
func (m *Manager) runPreflightChecks(ctx context.Context) error {
	results := preflight.RunAll(ctx, m.cfg)
	var failures []string
	for _, r := range results {
		if r.Passed {
			m.logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.Event("preflight_passed"),
			)
			continue
		}
		m.logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.Event("preflight_failed"),
			logging.Hint("fix the reported issue; the job stays pending"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	if len(failures) > 0 {
		return fmt.Errorf("%w: %s", errPreflight, strings.Join(failures, "; "))
	}
	return nil
}
