package pipeline

import (
	"errors"
	"fmt"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess           = 0
	ExitValidationError   = 1
	ExitMissingBuildCfg   = 2
	ExitConnectivityError = 3
	ExitRemoteError       = 4
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrMissingBuildConfig means the fetched working directory carries no
	// build descriptor.
	ErrMissingBuildConfig = errors.New("missing build descriptor")

	// ErrConnectivity means the initial SSH session could not be established.
	ErrConnectivity = errors.New("SSH connectivity check failed")
)

// StageError wraps a failure with the stage it occurred in and the exit code
// the process should terminate with.
type StageError struct {
	Stage    string
	Err      error
	ExitCode int
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ExitCodeFor maps an error to the process exit code. Unknown errors map to
// the generic remote-error code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.ExitCode
	}
	return ExitRemoteError
}
