package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"sentinel/internal/logger"
	"sentinel/internal/metrics"
)

// killTree ends a command's process tree; reaped reports whether Wait has
// already returned for the shell.
var killTree = killProcessTree

// Result is the outcome of a command that exited with status 0.
type Result struct {
	// Combined stdout and stderr, one "\n"-terminated line per line of output
	Output   string
	ExitCode int
	Duration time.Duration
}

// Runner executes shell command lines through the host interpreter with a
// hard timeout. Each call spawns its own process; calls are independent and
// may run concurrently.
type Runner struct {
	interp              Interpreter
	defaultTimeout      time.Duration
	heavyProcessLimit   int
	availabilityTimeout time.Duration
}

// Config holds runner configuration
type Config struct {
	// Host interpreter; HostInterpreter() when nil
	Interpreter         Interpreter
	DefaultTimeout      time.Duration
	HeavyProcessLimit   int
	AvailabilityTimeout time.Duration
}

// NewRunner creates a runner. The interpreter is chosen once here.
func NewRunner(cfg Config) *Runner {
	if cfg.Interpreter == nil {
		cfg.Interpreter = HostInterpreter()
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 10 * time.Second
	}
	if cfg.HeavyProcessLimit <= 0 {
		cfg.HeavyProcessLimit = 10
	}
	if cfg.AvailabilityTimeout <= 0 {
		cfg.AvailabilityTimeout = 5 * time.Second
	}

	log := logger.WithComponent("command_runner")
	log.Debug().
		Str("interpreter", cfg.Interpreter.Name()).
		Msg("command runner initialized")

	return &Runner{
		interp:              cfg.Interpreter,
		defaultTimeout:      cfg.DefaultTimeout,
		heavyProcessLimit:   cfg.HeavyProcessLimit,
		availabilityTimeout: cfg.AvailabilityTimeout,
	}
}

// RunDefault runs commandLine with the configured default timeout
func (r *Runner) RunDefault(ctx context.Context, commandLine string) (*Result, error) {
	return r.Run(ctx, commandLine, r.defaultTimeout)
}

// Run executes commandLine and returns its combined output.
//
// Errors: ErrShellUnavailable when the interpreter cannot be found,
// *TimeoutError when the process outlives timeout, *ExitError on a non-zero
// exit, *IOError when output cannot be read, ErrInterrupted when ctx is
// cancelled. Whatever the outcome, the process group is killed before Run
// returns.
func (r *Runner) Run(ctx context.Context, commandLine string, timeout time.Duration) (*Result, error) {
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	start := time.Now()
	res, err := r.run(ctx, commandLine, timeout)
	duration := time.Since(start)

	metrics.CommandDuration.Observe(duration.Seconds())
	metrics.CommandRunsTotal.WithLabelValues(outcome(err)).Inc()

	if res != nil {
		res.Duration = duration
	}
	return res, err
}

func (r *Runner) run(ctx context.Context, commandLine string, timeout time.Duration) (*Result, error) {
	log := logger.WithComponent("command_runner")

	path, args, err := r.interp.Resolve(commandLine)
	if err != nil {
		log.Error().Err(err).Str("interpreter", r.interp.Name()).Msg("command interpreter not found")
		return nil, fmt.Errorf("%w: %v", ErrShellUnavailable, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInterrupted, err)
	}

	log.Debug().Str("command", commandLine).Dur("timeout", timeout).Msg("executing command")

	// One pipe shared by stdout and stderr keeps the child's write order.
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, &IOError{Err: err}
	}

	cmd := exec.Command(path, args...)
	cmd.Stdout = pw
	cmd.Stderr = pw
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrShellUnavailable, err)
		}
		return nil, &IOError{Err: err}
	}
	pw.Close()

	defer pr.Close()

	var out strings.Builder
	readDone := make(chan error, 1)
	go func() { readDone <- readLines(pr, &out) }()

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	// abort kills the tree, unblocks the reader and reaps the process. out is
	// safe to read once it returns.
	abort := func(waited bool) {
		killTree(cmd.Process, waited)
		pr.Close()
		<-readDone
		if !waited {
			<-waitDone
		}
	}

	var waitErr error
	select {
	case waitErr = <-waitDone:
	case <-deadline.C:
		abort(false)
		log.Warn().Str("command", commandLine).Dur("timeout", timeout).Msg("command timed out")
		return nil, &TimeoutError{Command: commandLine, Timeout: timeout, Output: out.String()}
	case <-ctx.Done():
		abort(false)
		log.Warn().Str("command", commandLine).Msg("command interrupted")
		return nil, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}

	// The shell has exited; background children may still hold the pipe.
	var readErr error
	select {
	case readErr = <-readDone:
	case <-deadline.C:
		abort(true)
		log.Warn().Str("command", commandLine).Dur("timeout", timeout).Msg("command output still open at timeout")
		return nil, &TimeoutError{Command: commandLine, Timeout: timeout, Output: out.String()}
	case <-ctx.Done():
		abort(true)
		return nil, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}

	if readErr != nil {
		log.Error().Err(readErr).Str("command", commandLine).Msg("failed to read command output")
		return nil, &IOError{Err: readErr}
	}

	output := out.String()
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			log.Warn().
				Int("exit_code", exitErr.ExitCode()).
				Str("command", commandLine).
				Str("output", output).
				Msg("command exited with non-zero status")
			return nil, &ExitError{Code: exitErr.ExitCode(), Output: output}
		}
		return nil, &IOError{Err: waitErr}
	}

	return &Result{Output: output, ExitCode: 0}, nil
}

// readLines copies r into out line by line, terminating every line with "\n".
func readLines(r io.Reader, out *strings.Builder) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			out.WriteString(line)
			out.WriteByte('\n')
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ListHeavyProcesses lists the limit most CPU-hungry processes using the
// host's process listing tool. limit <= 0 uses the configured default.
func (r *Runner) ListHeavyProcesses(ctx context.Context, limit int) (*Result, error) {
	if limit <= 0 {
		limit = r.heavyProcessLimit
	}
	return r.Run(ctx, r.interp.HeavyProcesses(limit), r.defaultTimeout)
}

// IsAvailable reports whether name resolves to an executable on PATH. It
// never returns an error; any failure, including a timeout, yields false.
func (r *Runner) IsAvailable(ctx context.Context, name string) bool {
	if !validCommandName(name) {
		return false
	}
	_, err := r.Run(ctx, r.interp.Locate(name), r.availabilityTimeout)
	return err == nil
}
