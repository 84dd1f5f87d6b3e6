package main

import (
	"errors"
	"fmt"

	"github.com/dd0wney/anchorlink/pkg/pipeline"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFatal    = 1
	ExitUsage    = 2
	ExitSkipRate = 3
)

// ExitError attaches a process exit code to an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, pipeline.ErrSkipRateExceeded) {
		return ExitSkipRate
	}
	return ExitFatal
}
