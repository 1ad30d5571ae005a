// Package sandbox runs already-approved, already-parsed commands as real OS
// processes. It never constructs or invokes a shell: the binary and
// argument vector go directly to process creation, so no argument can be
// reinterpreted as shell syntax regardless of its contents. Each execution
// gets a sanitized environment, a restricted PATH, a wall-clock timeout,
// and an output-size cap.
//
// Concurrent executions are independent; the caller is responsible for
// bounding how many run at once. Cancellation happens only through the
// timeout.
package sandbox

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"
)

// Error definitions
var (
	// ErrEmptyBinary is returned when no binary was supplied. This is a
	// caller-contract violation, not an execution failure.
	ErrEmptyBinary = errors.New("binary cannot be empty")
)

// Defaults applied when Options fields are zero.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxOutputBytes = 1 << 20 // 1 MiB per stream

	// exitCodeUnknown is reported when no exit status is available, such
	// as after a kill on timeout or a spawn failure.
	exitCodeUnknown = -1
)

// Options configures one sandboxed execution.
type Options struct {
	// Dir is the working directory; empty means the process default.
	Dir string

	// Timeout is the wall-clock limit. On expiry the process is killed
	// and the result reports TimedOut.
	Timeout time.Duration

	// MaxOutputBytes caps captured stdout and stderr (each). Data beyond
	// the cap is discarded, not buffered.
	MaxOutputBytes int64

	// ExtraEnv entries are added to the sanitized environment and take
	// precedence over every default, including the forced PATH.
	ExtraEnv map[string]string
}

// Result describes one finished execution. Spawn failures and non-zero
// exits are reported here, never as errors: callers need the result even on
// failure, to log and respond.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// TimedOut reports that the timeout killed the process; the exit code
	// is not meaningful in that case.
	TimedOut  bool
	Truncated bool
}

// Execute runs binary with args in the sandbox. The returned error is
// non-nil only for caller-contract violations; every runtime failure is
// described by the Result.
func Execute(ctx context.Context, binary string, args []string, opts Options) (*Result, error) {
	if binary == "" {
		return nil, ErrEmptyBinary
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = DefaultMaxOutputBytes
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	// #nosec G204 -- argv goes straight to process creation; the
	// permission engine approved it and no shell ever sees it.
	cmd := exec.CommandContext(runCtx, binary, args...)
	cmd.Dir = opts.Dir
	cmd.Env = flattenEnvironment(buildEnvironment(opts.ExtraEnv))

	stdout := newCappedBuffer(opts.MaxOutputBytes)
	stderr := newCappedBuffer(opts.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	runErr := cmd.Run()

	result := &Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.Truncated() || stderr.Truncated(),
		ExitCode:  exitCodeUnknown,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		return result, nil
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// Spawn failure: binary not found, permission denied, bad
			// working directory. Reported through the result.
			result.Stderr = runErr.Error()
		}
	}
	return result, nil
}

// cappedBuffer captures up to max bytes and discards the rest. It is safe
// for the concurrent writes os/exec may issue.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       []byte
	max       int64
	truncated bool
}

func newCappedBuffer(max int64) *cappedBuffer {
	return &cappedBuffer{max: max}
}

// Write implements io.Writer. It always reports the full length consumed so
// the child process never sees a write error from the cap.
func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.max - int64(len(b.buf))
	switch {
	case remaining <= 0:
		b.truncated = true
	case int64(len(p)) > remaining:
		b.buf = append(b.buf, p[:remaining]...)
		b.truncated = true
	default:
		b.buf = append(b.buf, p...)
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func (b *cappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
