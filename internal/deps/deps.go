// Package deps checks that the external audio tools are installed.
package deps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgnsrekt/lingocast/internal/proc"
)

// Checker describes one external tool.
type Checker struct {
	Name        string
	VersionArgs []string
	Hint        string
}

// Known tools.
var (
	FFmpeg  = Checker{Name: "ffmpeg", VersionArgs: []string{"-version"}, Hint: "install ffmpeg from your package manager"}
	FFprobe = Checker{Name: "ffprobe", VersionArgs: []string{"-version"}, Hint: "ships with ffmpeg"}
	GTTSCLI = Checker{Name: "gtts-cli", VersionArgs: []string{"--version"}, Hint: "pip install gTTS"}
)

// AudioTools are required to assemble and encode tracks.
var AudioTools = []string{FFmpeg.Name, FFprobe.Name}

var known = map[string]Checker{
	FFmpeg.Name:  FFmpeg,
	FFprobe.Name: FFprobe,
	GTTSCLI.Name: GTTSCLI,
}

// Lookup returns the checker for a tool name. Unknown tools get a checker
// that only probes PATH.
func Lookup(name string) Checker {
	if c, ok := known[name]; ok {
		return c
	}
	return Checker{Name: name}
}

// Result is the outcome of checking a single tool.
type Result struct {
	Name    string
	Path    string
	Version string
	Err     error
}

// OK reports whether the tool is usable.
func (r Result) OK() bool { return r.Err == nil }

// Check resolves the tool in PATH and, when runner is set, runs it once to
// read its version line.
func (c Checker) Check(ctx context.Context, runner proc.Runner) Result {
	res := Result{Name: c.Name}

	path, err := proc.LookPath(c.Name)
	if err != nil {
		res.Err = fmt.Errorf("%s not found in PATH", c.Name)
		return res
	}
	res.Path = path

	if runner == nil || len(c.VersionArgs) == 0 {
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := proc.Output(ctx, runner, nil, c.Name, c.VersionArgs...)
	if err != nil {
		res.Err = fmt.Errorf("cannot execute %s: %w", c.Name, err)
		return res
	}
	res.Version = firstLine(string(out))
	return res
}

// CheckTools checks every named tool and returns whether all are usable
// along with the names of the missing ones, in the order given.
func CheckTools(ctx context.Context, runner proc.Runner, names ...string) (bool, []string) {
	var missing []string
	for _, n := range names {
		if r := Lookup(n).Check(ctx, runner); !r.OK() {
			missing = append(missing, n)
		}
	}
	return len(missing) == 0, missing
}

// Report checks all tools for the doctor command.
func Report(ctx context.Context, runner proc.Runner, names ...string) []Result {
	results := make([]Result, 0, len(names))
	for _, n := range names {
		results = append(results, Lookup(n).Check(ctx, runner))
	}
	return results
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	nameStyle = lipgloss.NewStyle().Bold(true).Width(10)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"})
)

// Render formats results as a short report.
func Render(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteString(nameStyle.Render(r.Name))
		if r.OK() {
			b.WriteString(okStyle.Render("✓ "))
			detail := r.Path
			if r.Version != "" {
				detail = r.Version
			}
			b.WriteString(dimStyle.Render(detail))
		} else {
			b.WriteString(failStyle.Render("✗ " + r.Err.Error()))
			if hint := Lookup(r.Name).Hint; hint != "" {
				b.WriteString(dimStyle.Render(" (" + hint + ")"))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// MissingMessage is the error shown when audio tools are absent.
func MissingMessage(missing []string) string {
	return fmt.Sprintf("FFmpeg tools are not available. Missing: %s. Please install ffmpeg and ffprobe.",
		strings.Join(missing, ", "))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
