package proc

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Handler answers a faked command by writing its stdout.
type Handler func(stdin []byte, args []string, stdout io.Writer) error

// Fake is a Runner that dispatches commands to in-process handlers by
// binary name. Unknown binaries fail as if they were not installed.
type Fake struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Command
}

// NewFake returns an empty Fake runner.
func NewFake() *Fake {
	return &Fake{handlers: make(map[string]Handler)}
}

// Handle registers the handler for a binary name.
func (f *Fake) Handle(name string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = h
	return f
}

// Run implements Runner.
func (f *Fake) Run(ctx context.Context, c Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	h, ok := f.handlers[c.Name]
	f.calls = append(f.calls, Command{Name: c.Name, Args: append([]string(nil), c.Args...)})
	f.mu.Unlock()

	if !ok {
		return fmt.Errorf("failed to start %s: executable file not found in $PATH", c.Name)
	}

	var stdin []byte
	if c.Stdin != nil {
		b, err := io.ReadAll(c.Stdin)
		if err != nil {
			return err
		}
		stdin = b
	}

	out := c.Stdout
	if out == nil {
		out = io.Discard
	}
	return h(stdin, c.Args, out)
}

// Calls returns the commands seen so far.
func (f *Fake) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}
