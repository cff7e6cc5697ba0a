package commands

import (
	"fmt"
	"strings"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/output"
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error // nil when the command already reported the outcome
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitWith returns nil for a zero code so cobra treats the command as
// successful.
func exitWith(code int, err error) error {
	if code == output.ExitSuccess && err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// ExitCodeOf maps a command error to a process exit code. Errors that do
// not carry a code are usage or configuration problems.
func ExitCodeOf(err error) int {
	if err == nil {
		return output.ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.IsCancelled(err) {
		return output.ExitCancelled
	}
	return output.ExitFault
}

// IsSilent reports whether err has already been shown to the user.
func IsSilent(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Err == nil
}

// FormatError renders err with any hints attached to it.
func FormatError(err error) string {
	var b strings.Builder
	b.WriteString(err.Error())
	for _, hint := range errors.GetAllHints(err) {
		b.WriteString("\n  hint: ")
		b.WriteString(hint)
	}
	return b.String()
}
