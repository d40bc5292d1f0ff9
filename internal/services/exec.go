package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// ExitError reports a subprocess that terminated with a non-zero status.
type ExitError struct {
	Code     int
	Signaled bool
}

func (e *ExitError) Error() string {
	if e.Signaled {
		return "process terminated by signal"
	}
	return fmt.Sprintf("process exited with code %d", e.Code)
}

// Executor abstracts command execution for testability. Implementations
// stream stdout and stderr line by line to the provided callbacks and
// report the started process through onStart so callers can track live
// handles for cancellation.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStart func(*os.Process), onStdout, onStderr func(string)) error
}

// CommandExecutor runs real subprocesses. Each child is placed in its own
// process group so a termination signal reaches the whole tree.
type CommandExecutor struct{}

func (CommandExecutor) Run(ctx context.Context, binary string, args []string, onStart func(*os.Process), onStdout, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	if onStart != nil {
		onStart(cmd.Process)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r *bufio.Scanner, forward func(string)) {
		defer wg.Done()
		r.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for r.Scan() {
			if forward != nil {
				forward(r.Text())
			}
		}
		if err := r.Err(); err != nil {
			once.Do(func() { scanErr = err })
		}
	}

	wg.Add(2)
	go scan(bufio.NewScanner(stdout), onStdout)
	go scan(bufio.NewScanner(stderr), onStderr)
	wg.Wait()

	waitErr := cmd.Wait()
	if scanErr != nil {
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				return &ExitError{Signaled: true}
			}
			return &ExitError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("wait command: %w", waitErr)
	}
	return nil
}
