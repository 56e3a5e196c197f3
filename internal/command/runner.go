package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/semenovdl/review-stand/internal/logger"
)

// Result captures the outcome of a finished external command.
type Result struct {
	// ExitCode is the command's exit status (0 on success).
	ExitCode int
	// Stdout is the captured standard output, trimmed of trailing whitespace.
	Stdout string
	// Stderr is the captured standard error, trimmed of trailing whitespace.
	Stderr string
}

// Runner executes external programs and reports structured results.
// Services depend on this interface so tests can substitute a fake.
type Runner interface {
	// Run executes the program and waits for it to finish.
	// A non-zero exit status is returned as an error wrapping the Result.
	Run(ctx context.Context, name string, args ...string) (*Result, error)
	// Start launches the program without waiting for completion.
	Start(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct {
	// Dir is the working directory for launched commands (current directory when empty).
	Dir string
	// Env is appended to the inherited environment when non-empty.
	Env []string
}

// ExitError reports a command that finished with a non-zero status.
type ExitError struct {
	// Name is the program that was executed.
	Name string
	// Result holds the exit status and captured output.
	Result *Result
}

// Error renders the failed command with its exit status and stderr tail.
func (e *ExitError) Error() string {
	if e.Result.Stderr == "" {
		return fmt.Sprintf("%s exited with status %d", e.Name, e.Result.ExitCode)
	}

	return fmt.Sprintf("%s exited with status %d: %s", e.Name, e.Result.ExitCode, e.Result.Stderr)
}

// NewExecRunner creates a runner executing commands in the current directory.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the program, captures its output and waits for completion.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	logger.DebugKV(ctx, "Running command", "name", name, "args", strings.Join(args, " "))

	cmd := r.command(ctx, name, args...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &ExitError{Name: name, Result: result}
		}

		return result, fmt.Errorf("run %s: %w", name, err)
	}

	return result, nil
}

// Start launches the program detached from the caller's lifetime.
func (r *ExecRunner) Start(ctx context.Context, name string, args ...string) error {
	logger.InfoKV(ctx, "Starting process", "name", name, "args", strings.Join(args, " "))

	cmd := r.command(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}

	// Reap the child when it eventually exits so it does not linger as a zombie.
	go func() {
		_ = cmd.Wait()
	}()

	return nil
}

func (r *ExecRunner) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir

	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}

	return cmd
}
