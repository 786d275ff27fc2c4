package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/lingocast/internal/csvsource"
	"github.com/dgnsrekt/lingocast/internal/job"
	"github.com/dgnsrekt/lingocast/internal/language"
)

var (
	inspectRows int
	inspectFrom string
	inspectTo   string

	inspectCmd = &cobra.Command{
		Use:     "inspect CSV_FILE",
		Short:   "Guess the language of each CSV column",
		Long:    paragraph(fmt.Sprintf("\n%s a phrase list locally: detect column languages and count the rows that would be spoken.", keyword("Inspect"))),
		Example: paragraph("lingocast inspect phrases.csv\nlingocast inspect phrases.csv --from it --to ru"),
		Args:    cobra.ExactArgs(1),
		RunE:    runInspect,
	}
)

func init() {
	inspectCmd.Flags().IntVarP(&inspectRows, "rows", "n", 50, "rows sampled for language detection")
	inspectCmd.Flags().StringVarP(&inspectFrom, "from", "f", "", "expected language of the first column")
	inspectCmd.Flags().StringVarP(&inspectTo, "to", "t", "", "expected language of the second column")
}

func runInspect(_ *cobra.Command, args []string) error {
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open file: %w", err)
	}
	cols, err := csvsource.Inspect(f, inspectRows)
	_ = f.Close()
	if err != nil {
		return err
	}

	for _, col := range cols {
		detected := "unknown"
		if col.Code != "" {
			detected = fmt.Sprintf("%s (%s) %.0f%%", col.Name, col.Code, col.Confidence*100)
			if !col.Reliable {
				detected += faint(" unreliable")
			}
		}
		sample := col.Sample
		if len([]rune(sample)) > 40 {
			sample = string([]rune(sample)[:40]) + "…"
		}
		fmt.Printf("column %d  %s  %s\n", col.Index, keyword(detected), faint(sample))
	}

	req := job.DefaultRequest()
	if inspectFrom != "" || inspectTo != "" {
		if err := language.ValidatePair(inspectFrom, inspectTo); err != nil {
			return err
		}
		req = job.NewPairRequest(language.Canonical(inspectFrom), language.Canonical(inspectTo), job.DefaultOutputFilename, 0, 0)
	}

	for _, m := range csvsource.CheckColumns(cols, req.Languages) {
		fmt.Println(failure("warning: " + m.String()))
	}

	f, err = os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open file: %w", err)
	}
	defer f.Close() //nolint:errcheck
	sheet, err := csvsource.Parse(f, req.Languages)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d rows will be spoken as %s, %d dropped\n",
		len(sheet.Rows), strings.Join(req.Codes(), " → "), sheet.Dropped)
	return nil
}
