package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/lingocast/internal/history"
	"github.com/dgnsrekt/lingocast/internal/language"
	"github.com/dgnsrekt/lingocast/internal/storage"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

const (
	sizeWidth    = 9
	createdWidth = 16
	minNameWidth = 12
)

// RenderFiles renders generated files as a table fitting width.
func RenderFiles(files []storage.FileInfo, width int, now time.Time) string {
	if len(files) == 0 {
		return lipgloss.NewStyle().Foreground(grayColor).Render("No audio files yet.")
	}

	nameWidth := width - sizeWidth - createdWidth - 4
	if nameWidth < minNameWidth {
		nameWidth = minNameWidth
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(row(nameWidth, "NAME", "SIZE", "CREATED")))
	b.WriteByte('\n')

	var total uint64
	for _, f := range files {
		total += uint64(f.Size)
		created := humanize.RelTime(time.Unix(f.Created, 0), now, "ago", "from now")
		b.WriteString(row(nameWidth, f.Filename, humanize.Bytes(uint64(f.Size)), created))
		b.WriteByte('\n')
	}

	summary := fmt.Sprintf("%d %s, %s", len(files), plural(len(files), "file"), humanize.Bytes(total))
	b.WriteString(lipgloss.NewStyle().Foreground(grayColor).Render(summary))
	return b.String()
}

func row(nameWidth int, name, size, created string) string {
	name = truncate.StringWithTail(name, uint(nameWidth), "…")
	return runewidth.FillRight(name, nameWidth) + "  " +
		runewidth.FillLeft(size, sizeWidth) + "  " +
		created
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// RenderLanguages renders the language table with aligned flags and native
// names.
func RenderLanguages(langs []language.Language) string {
	nameWidth := 0
	for _, l := range langs {
		nameWidth = max(nameWidth, runewidth.StringWidth(l.Name))
	}

	var b strings.Builder
	for i, l := range langs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %s  %s  %s",
			runewidth.FillRight(l.Flag(), 2),
			l.Code,
			runewidth.FillRight(l.Name, nameWidth),
			lipgloss.NewStyle().Foreground(grayColor).Render(l.Native()),
		)
	}
	return b.String()
}

// RenderJobs renders job history, newest first.
func RenderJobs(jobs []history.Job, now time.Time) string {
	if len(jobs) == 0 {
		return lipgloss.NewStyle().Foreground(grayColor).Render("No jobs recorded.")
	}

	var b strings.Builder
	for i, j := range jobs {
		if i > 0 {
			b.WriteByte('\n')
		}
		icon, color := "✅", greenColor
		if j.Status != history.StatusSucceeded {
			icon, color = "❌", redColor
		}
		line := fmt.Sprintf("%s %-4s %-5s %s  %d rows", icon, j.Kind, j.Languages, j.OutputFile, j.Rows)
		if j.Skipped > 0 {
			line += fmt.Sprintf(" (%d skipped)", j.Skipped)
		}
		line += "  " + humanize.RelTime(j.CreatedAt, now, "ago", "from now")
		b.WriteString(lipgloss.NewStyle().Foreground(color).Render(line))
		if j.Error != "" {
			b.WriteString("\n   " + truncate.StringWithTail(j.Error, 100, "..."))
		}
	}
	return b.String()
}
