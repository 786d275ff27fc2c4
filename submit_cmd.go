package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/lingocast/internal/form"
	"github.com/dgnsrekt/lingocast/internal/ui"
)

var (
	submitFrom    string
	submitTo      string
	submitOutput  string
	submitPause   int
	submitSilence int
	submitWatch   bool
	submitPlain   bool

	submitCmd = &cobra.Command{
		Use:   "submit CSV_FILE",
		Short: "Generate an audio track from a CSV phrase list",
		Long: paragraph(fmt.Sprintf("\n%s a CSV file to the audio service. Column 1 is spoken in the first language and column 2 in the second, with a pause between them.",
			keyword("Upload"))),
		Example: paragraph("lingocast submit phrases.csv --from it --to ru\nlingocast submit phrases.csv --from en --to es --pause 3000 --watch"),
		Args:    cobra.ExactArgs(1),
		RunE:    runSubmit,
	}
)

func init() {
	submitCmd.Flags().StringVarP(&submitFrom, "from", "f", "", "language of the first column (e.g. it)")
	submitCmd.Flags().StringVarP(&submitTo, "to", "t", "", "language of the second column (e.g. ru)")
	submitCmd.Flags().StringVarP(&submitOutput, "output", "o", "", "output file name (default derived from the CSV name)")
	submitCmd.Flags().IntVar(&submitPause, "pause", 0, "pause between languages in ms (default 5000)")
	submitCmd.Flags().IntVar(&submitSilence, "silence", 0, "silence after each row in ms (default 1000)")
	submitCmd.Flags().BoolVarP(&submitWatch, "watch", "w", false, "submit again whenever the CSV file changes")
	submitCmd.Flags().BoolVar(&submitPlain, "plain", false, "print one line per status change")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	c, err := newClient()
	if err != nil {
		return err
	}
	uiCfg, err := ui.LoadConfig()
	if err != nil {
		return fmt.Errorf("error parsing environment: %w", err)
	}
	uiCfg.Plain = uiCfg.Plain || submitPlain

	opts := ui.SubmitOptions{
		Out:         os.Stdout,
		Interactive: uiCfg.Interactive(os.Stdout),
		Width:       ui.TerminalWidth(os.Stdout, uiCfg.Width),
	}
	sub := form.NewSubmitter(c)
	path := args[0]

	submit := func() error {
		upload, st := form.SelectFile(path)
		if upload == nil {
			fmt.Println(ui.PlainState(st))
			return errors.New(st.Message)
		}
		sel := form.Selection{
			File:           upload,
			First:          submitFrom,
			Second:         submitTo,
			OutputFilename: submitOutput,
			Pause:          submitPause,
			Silence:        submitSilence,
		}

		out, err := ui.RunSubmit(ctx, sub, sel, opts)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s %s\n", keyword("Output:"), out.Response.OutputFile)
		fmt.Println(faint(c.DownloadURL(out.Response.OutputFile)))
		if out.FilesErr == nil {
			fmt.Println()
			fmt.Println(ui.RenderFiles(out.Files, opts.Width, time.Now()))
		}
		return nil
	}

	err = submit()
	if !submitWatch {
		return err
	}
	if err != nil {
		log.Error("Submission failed", "err", err)
	}
	return watchFile(ctx, path, func() {
		if err := submit(); err != nil {
			log.Error("Submission failed", "err", err)
		}
	})
}

// watchFile calls fn after path is written, until ctx is done. Bursts of
// events within the debounce window count as one change.
func watchFile(ctx context.Context, path string, fn func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	dir := filepath.Dir(abs)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	fmt.Println(faint(fmt.Sprintf("Watching %s for changes, press ctrl+c to stop.", path)))

	const debounce = 500 * time.Millisecond
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != abs || (!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create)) {
				continue
			}
			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			timer.Reset(debounce)
		case <-timer.C:
			fn()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}
