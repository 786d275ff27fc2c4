// Package proc runs the external audio tools (gtts-cli, ffmpeg, ffprobe)
// with timeouts and captured stderr.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is wrapped into errors from commands that exceeded their deadline.
var ErrTimeout = errors.New("subprocess timed out")

// Command describes one tool invocation.
type Command struct {
	Name   string
	Args   []string
	Stdin  io.Reader // nil means empty input
	Stdout io.Writer // nil discards output
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands. Tests substitute fakes for the real tools.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// Exec is the Runner backed by os/exec.
type Exec struct {
	// Timeout applies when ctx carries no deadline of its own.
	Timeout time.Duration

	// Grace is how long an interrupted process gets before it is killed.
	Grace time.Duration
}

// NewExec returns an Exec runner with the given default timeout.
func NewExec(timeout time.Duration) *Exec {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Exec{Timeout: timeout, Grace: 100 * time.Millisecond}
}

// Run starts the command and waits for it, interrupting then killing the
// process when the context ends first.
func (e *Exec) Run(ctx context.Context, c Command) error {
	timeout := e.Timeout
	if _, ok := ctx.Deadline(); !ok && timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.Command(c.Name, c.Args...) //nolint:gosec

	// stdin is wired before Start so the child never sees a half set up pipe
	if c.Stdin != nil {
		cmd.Stdin = c.Stdin
	} else {
		cmd.Stdin = strings.NewReader("")
	}
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", c.Name, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s failed: %w, stderr: %s", c.Name, err, tail(stderr.String()))
		}
		return nil

	case <-ctx.Done():
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case <-done:
		case <-time.After(e.Grace):
			_ = cmd.Process.Kill()
			<-done
		}

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", c.Name, ErrTimeout)
		}
		return fmt.Errorf("%s cancelled: %w", c.Name, ctx.Err())
	}
}

// Output runs a command and returns its stdout.
func Output(ctx context.Context, r Runner, stdin io.Reader, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	err := r.Run(ctx, Command{Name: name, Args: args, Stdin: stdin, Stdout: &out})
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// LookPath resolves a binary in PATH. It is a variable so tests can pretend
// tools are missing or present.
var LookPath = exec.LookPath

// tail keeps the last lines of a noisy stderr so errors stay readable.
func tail(s string) string {
	const max = 512
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
