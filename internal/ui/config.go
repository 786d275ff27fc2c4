package ui

import (
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Config contains terminal specific switches read from the environment.
type Config struct {
	// NoColor follows no-color.org: any non-empty value disables colour.
	NoColor string `env:"NO_COLOR"`
	Plain   bool   `env:"LINGOCAST_PLAIN"`
	Width   int    `env:"COLUMNS" envDefault:"80"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of f, or fallback when f is not a
// terminal.
func TerminalWidth(f *os.File, fallback int) int {
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		return w
	}
	return fallback
}

// Colorless reports whether colour output is disabled.
func (c Config) Colorless() bool {
	return c.NoColor != ""
}

// Apply sets the global colour profile.
func (c Config) Apply() {
	if c.Colorless() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// Interactive reports whether the animated submit view should be used.
func (c Config) Interactive(f *os.File) bool {
	return !c.Plain && IsTerminal(f)
}
