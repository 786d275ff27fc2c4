package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dgnsrekt/lingocast/internal/form"
)

type stateMsg form.State

type doneMsg struct {
	out form.Outcome
	err error
}

type submitModel struct {
	spinner spinner.Model
	state   form.State
	width   int
	cancel  context.CancelFunc

	done bool
	out  form.Outcome
	err  error
}

func newSubmitModel(cancel context.CancelFunc, width int) submitModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(yellowColor)
	return submitModel{
		spinner: sp,
		state:   form.Idle(),
		width:   width,
		cancel:  cancel,
	}
}

func (m submitModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m submitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case stateMsg:
		m.state = form.State(msg)

	case doneMsg:
		m.done = true
		m.out, m.err = msg.out, msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m submitModel) View() string {
	var b strings.Builder
	if m.state.Status.IsActive() {
		b.WriteString(m.spinner.View())
	}
	b.WriteString(RenderState(m.state, m.width))
	b.WriteString("\n")
	return b.String()
}

// SubmitOptions configures RunSubmit.
type SubmitOptions struct {
	Out         io.Writer
	Interactive bool
	Width       int
}

// RunSubmit runs one submission, showing a spinner and progress bar when
// interactive and one line per state change otherwise.
func RunSubmit(ctx context.Context, sub *form.Submitter, sel form.Selection, opts SubmitOptions) (form.Outcome, error) {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	if !opts.Interactive {
		return runPlain(ctx, sub, sel, opts.Out)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSubmitModel(cancel, opts.Width), tea.WithOutput(opts.Out))
	result := make(chan doneMsg, 1)
	go func() {
		out, err := sub.Submit(ctx, sel, func(st form.State) {
			p.Send(stateMsg(st))
		})
		result <- doneMsg{out: out, err: err}
		p.Send(doneMsg{out: out, err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		r := <-result
		if r.err != nil {
			return r.out, r.err
		}
		return r.out, fmt.Errorf("terminal UI failed: %w", err)
	}
	r := <-result
	return r.out, r.err
}

func runPlain(ctx context.Context, sub *form.Submitter, sel form.Selection, w io.Writer) (form.Outcome, error) {
	var last form.State
	return sub.Submit(ctx, sel, func(st form.State) {
		if st.Status == last.Status && st.Message == last.Message && st.Status == form.StatusUploading {
			last = st
			return
		}
		last = st
		fmt.Fprintln(w, PlainState(st))
	})
}
