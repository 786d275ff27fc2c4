package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/lingocast/internal/form"
	"github.com/dgnsrekt/lingocast/internal/storage"
	"github.com/dgnsrekt/lingocast/internal/ui"
)

var (
	downloadOutput string
	linkCopy       bool

	filesCmd = &cobra.Command{
		Use:     "files",
		Aliases: []string{"ls"},
		Short:   "List, download and delete generated tracks",
		Args:    cobra.NoArgs,
		RunE:    runFilesList,
	}

	filesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List generated tracks, newest first",
		Args:  cobra.NoArgs,
		RunE:  runFilesList,
	}

	filesDownloadCmd = &cobra.Command{
		Use:     "download FILE",
		Short:   "Download a generated track",
		Example: paragraph("lingocast files download phrases_it-ru.mp3 -o ~/Music/italian.mp3"),
		Args:    cobra.ExactArgs(1),
		RunE:    runFilesDownload,
	}

	filesDeleteCmd = &cobra.Command{
		Use:     "delete FILE...",
		Aliases: []string{"rm"},
		Short:   "Delete generated tracks",
		Args:    cobra.MinimumNArgs(1),
		RunE:    runFilesDelete,
	}

	filesLinkCmd = &cobra.Command{
		Use:   "link FILE",
		Short: "Print the download URL of a track",
		Args:  cobra.ExactArgs(1),
		RunE:  runFilesLink,
	}
)

func init() {
	filesDownloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "destination path (default ./FILE)")
	filesLinkCmd.Flags().BoolVarP(&linkCopy, "copy", "c", false, "copy the URL to the clipboard")

	filesCmd.AddCommand(filesListCmd, filesDownloadCmd, filesDeleteCmd, filesLinkCmd)
}

func listWidth() int {
	cfg, err := ui.LoadConfig()
	if err != nil {
		return 80
	}
	return ui.TerminalWidth(os.Stdout, cfg.Width)
}

func runFilesList(cmd *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	files, err := c.ListFiles(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(ui.RenderFiles(files, listWidth(), time.Now()))
	return nil
}

func runFilesDownload(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	name := args[0]
	dest := downloadOutput
	if dest == "" {
		dest = filepath.Base(name)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", dest, err)
	}
	n, err := c.Download(cmd.Context(), name, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return err
	}

	fmt.Printf("Saved %s (%s)\n", keyword(dest), humanize.Bytes(uint64(n)))
	return nil
}

func runFilesDelete(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	sub := form.NewSubmitter(c)

	var (
		errs      []error
		files     []storage.FileInfo
		refreshed bool
	)
	for _, name := range args {
		remaining, err := sub.Delete(cmd.Context(), name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		fmt.Printf("File %s deleted successfully\n", name)
		files, refreshed = remaining, true
	}

	if refreshed {
		fmt.Println()
		fmt.Println(ui.RenderFiles(files, listWidth(), time.Now()))
	}
	return errors.Join(errs...)
}

func runFilesLink(_ *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	link := c.DownloadURL(args[0])
	fmt.Println(link)

	if linkCopy {
		// OSC 52 reaches the local clipboard over SSH too
		termenv.Copy(link)
		if err := clipboard.WriteAll(link); err != nil {
			log.Debug("System clipboard unavailable", "err", err)
		}
		fmt.Println(faint("Copied to clipboard."))
	}
	return nil
}
