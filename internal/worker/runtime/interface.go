// Package runtime provides the Runtime interface for evaluation backends.
package runtime

import (
	"context"
	"io"
)

// Runtime defines the interface for executing objective evaluations.
// Implementations include Docker and raw process execution.
type Runtime interface {
	// Start begins an evaluation and returns a handle.
	Start(ctx context.Context, opts StartOptions) (Handle, error)
}

// StartOptions contains the parameters for starting an evaluation.
type StartOptions struct {
	// Image is the container image. Ignored by the process runtime.
	Image   string
	Command []string
	Env     map[string]string
}

// ExitResult is the terminal outcome of an evaluation process.
type ExitResult struct {
	ExitCode int
	Error    error
}

// Handle represents a running evaluation.
type Handle interface {
	// Wait blocks until the evaluation completes.
	Wait(ctx context.Context) (ExitResult, error)

	// Stop forcefully terminates the evaluation.
	Stop(ctx context.Context) error

	// StreamLogs returns a reader over the evaluation's stdout.
	StreamLogs(ctx context.Context) (io.ReadCloser, error)
}
