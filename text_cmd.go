package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/lingocast/internal/job"
)

var (
	textLang     string
	textOutput   string
	textDownload bool

	textCmd = &cobra.Command{
		Use:     "text TEXT...",
		Short:   "Speak a single text",
		Example: paragraph("lingocast text Buongiorno a tutti --lang it\nlingocast text \"Доброе утро\" --lang ru --download"),
		Args:    cobra.MinimumNArgs(1),
		RunE:    runText,
	}
)

func init() {
	textCmd.Flags().StringVarP(&textLang, "lang", "l", "it", "language of the text")
	textCmd.Flags().StringVarP(&textOutput, "output", "o", "", "output file name on the service")
	textCmd.Flags().BoolVarP(&textDownload, "download", "d", false, "download the track into the current directory")
}

func runText(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	name, err := c.TextToAudio(cmd.Context(), job.TextRequest{
		Text:           strings.Join(args, " "),
		Language:       textLang,
		OutputFilename: textOutput,
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", keyword("Output:"), name)

	if !textDownload {
		fmt.Println(faint(c.DownloadURL(name)))
		return nil
	}

	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", name, err)
	}
	n, err := c.Download(cmd.Context(), name, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(name)
		return err
	}
	fmt.Printf("Saved %s (%s)\n", name, humanize.Bytes(uint64(n)))
	return nil
}
