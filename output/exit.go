package output

import (
	"context"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/logger"
	"github.com/teranos/genpipe/pipeline"
)

// Process exit codes.
const (
	ExitSuccess   = 0   // no errors
	ExitErrors    = 1   // the report holds errors
	ExitFault     = 2   // unhandled fault or configuration error
	ExitStale     = 3   // check mode found stale or missing files
	ExitCancelled = 130 // interrupted, as after SIGINT
)

// ExitCode maps the outcome of Pipeline.Run to an exit code.
func ExitCode(report *pipeline.Report, runErr error) int {
	switch {
	case runErr != nil && errors.IsCancelled(runErr):
		return ExitCancelled
	case runErr != nil:
		return ExitFault
	case report == nil:
		return ExitFault
	case !report.Success():
		return ExitErrors
	default:
		return ExitSuccess
	}
}

// WriteAndReturn writes whatever the run produced and returns the exit code
// for the run. Artifacts of a cancelled or failing run are still written;
// a faulted run has no report and writes nothing. A write failure yields
// ExitFault along with the error.
func WriteAndReturn(ctx context.Context, w ArtifactWriter, report *pipeline.Report, runErr error) (int, error) {
	code := ExitCode(report, runErr)
	if report == nil || w == nil {
		return code, nil
	}

	// The run context may already be cancelled; writing what finished is
	// still wanted.
	if _, err := w.Write(context.WithoutCancel(ctx), report); err != nil {
		logger.Logger.Errorw("Failed to write artifacts", logger.FieldError, err)
		return ExitFault, err
	}
	return code, nil
}
