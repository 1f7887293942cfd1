package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// EnvCandidateID names the env var carrying the candidate id. The
// process runtime uses it to give each evaluation its own work dir.
const EnvCandidateID = "TUNEPLANE_CANDIDATE_ID"

// ExecRuntime implements the Runtime interface using raw OS processes.
// Useful for local objective functions that don't need isolation.
type ExecRuntime struct {
	// WorkDir is the base directory for per-evaluation work dirs.
	WorkDir string
}

// NewExecRuntime creates a new process-based runtime. An empty workDir
// falls back to a path under the OS temp dir.
func NewExecRuntime(workDir string) *ExecRuntime {
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "tuneplane", "runner")
	}
	return &ExecRuntime{WorkDir: workDir}
}

// ExecHandle represents a running process.
type ExecHandle struct {
	cmd    *exec.Cmd
	output *outputBuffer

	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	result ExitResult
}

// Start implements Runtime.Start using os/exec.
// Stderr is inherited so diagnostics stay visible; only stdout carries
// the objective value and is exposed through StreamLogs.
func (e *ExecRuntime) Start(ctx context.Context, opts StartOptions) (Handle, error) {
	if len(opts.Command) == 0 {
		return nil, errors.New("command is required for the process runtime")
	}

	workDir := e.WorkDir
	if id := opts.Env[EnvCandidateID]; id != "" {
		workDir = filepath.Join(e.WorkDir, id)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	cmd := exec.Command(opts.Command[0], opts.Command[1:]...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), mapToEnvList(opts.Env)...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start process: %w", err)
	}

	h := &ExecHandle{
		cmd:    cmd,
		output: newOutputBuffer(),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		// Drain stdout to EOF before calling Wait. Wait closes the pipe
		// and discards anything still buffered in it, so reading
		// afterwards can lose the final lines of output.
		_, _ = io.Copy(h.output, stdout)
		h.output.Close()

		err := cmd.Wait()

		h.mu.Lock()
		defer h.mu.Unlock()
		if err == nil {
			h.result = ExitResult{ExitCode: 0}
			return
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			h.result = ExitResult{ExitCode: exitErr.ExitCode()}
			return
		}
		h.result = ExitResult{ExitCode: -1, Error: err}
	}()

	return h, nil
}

func (h *ExecHandle) Wait(ctx context.Context) (ExitResult, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.result, nil
	case <-ctx.Done():
		return ExitResult{ExitCode: -1, Error: ctx.Err()}, ctx.Err()
	}
}

func (h *ExecHandle) Stop(ctx context.Context) error {
	var err error
	h.once.Do(func() {
		if h.cmd.Process != nil {
			err = h.cmd.Process.Kill()
		}
	})
	return err
}

func (h *ExecHandle) StreamLogs(ctx context.Context) (io.ReadCloser, error) {
	return h.output, nil
}

// outputBuffer is an unbounded in-memory pipe between the process and
// log readers. Writes never block, so a slow reader can never stall
// the process; reads block until data arrives or the write side is
// closed.
type outputBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	off    int
	closed bool
}

func newOutputBuffer() *outputBuffer {
	b := &outputBuffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	b.cond.Broadcast()
	return len(p), nil
}

func (b *outputBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.off >= len(b.buf) && !b.closed {
		b.cond.Wait()
	}
	if b.off >= len(b.buf) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[b.off:])
	b.off += n
	return n, nil
}

func (b *outputBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
	return nil
}
