// Package ui renders lingocast state in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/lingocast/internal/form"
)

// Status colours.
var (
	grayColor   = lipgloss.Color("#888888")
	blueColor   = lipgloss.Color("#00AAFF")
	yellowColor = lipgloss.Color("#FFFF00")
	greenColor  = lipgloss.Color("#00FF00")
	redColor    = lipgloss.Color("#FF0000")
	dimColor    = lipgloss.Color("#333333")
)

// StatusIcon returns the icon shown next to a status message.
func StatusIcon(s form.Status) string {
	switch s {
	case form.StatusUploading:
		return "📤"
	case form.StatusProcessing:
		return "⚙️"
	case form.StatusCompleted:
		return "✅"
	case form.StatusError:
		return "❌"
	default:
		return "📁"
	}
}

// StatusColor returns the colour of a status.
func StatusColor(s form.Status) lipgloss.Color {
	switch s {
	case form.StatusUploading:
		return blueColor
	case form.StatusProcessing:
		return yellowColor
	case form.StatusCompleted:
		return greenColor
	case form.StatusError:
		return redColor
	default:
		return grayColor
	}
}

// StatusLine renders icon and message on one line, truncated to width.
func StatusLine(st form.State, width int) string {
	msg := st.Message
	if width > 4 {
		msg = truncate.StringWithTail(msg, uint(width-4), "...")
	}
	return lipgloss.NewStyle().Foreground(StatusColor(st.Status)).Render(StatusIcon(st.Status) + " " + msg)
}

// RenderState renders the status line and, when the state carries one, a
// progress bar.
func RenderState(st form.State, width int) string {
	lines := []string{StatusLine(st, width)}
	if st.HasProgress() && st.Status != form.StatusIdle {
		lines = append(lines, progressBar(st, width))
	}
	return strings.Join(lines, "\n")
}

func progressBar(st form.State, width int) string {
	w := width - 8
	if w < 10 {
		w = 10
	}
	if w > 60 {
		w = 60
	}
	bar := progress.New(
		progress.WithSolidFill(string(StatusColor(st.Status))),
		progress.WithWidth(w),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(dimColor)
	return bar.ViewAs(float64(st.Progress)/100) + fmt.Sprintf(" %3d%%", st.Progress)
}

// PlainState is the non-interactive rendering of a state.
func PlainState(st form.State) string {
	if st.HasProgress() && st.Status != form.StatusIdle {
		return fmt.Sprintf("%s %s (%d%%)", StatusIcon(st.Status), st.Message, st.Progress)
	}
	return StatusIcon(st.Status) + " " + st.Message
}
