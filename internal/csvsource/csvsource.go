// Package csvsource reads phrase lists: headerless CSV files where each
// column holds the same sentence in a different language.
package csvsource

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dgnsrekt/lingocast/internal/job"
)

// ErrNoColumns is returned when Parse is called without language columns.
var ErrNoColumns = errors.New("no language columns configured")

var (
	numericRe     = regexp.MustCompile(`^\d+\.?\d*$`)
	punctBeforeWS = regexp.MustCompile(`[,.](\s)`)
)

// Row is one usable line of the sheet. Sentences follow the order of the
// language configs passed to Parse.
type Row struct {
	Line      int
	Sentences []string
}

// Sheet is the cleaned content of a CSV file.
type Sheet struct {
	Rows    []Row
	Dropped int // records removed by the cleaning rules
}

// Parse reads a headerless CSV and keeps, for each record, the cells of the
// configured columns. A record is dropped when any configured cell is
// missing or blank, or when the first language's cell is a plain number.
func Parse(r io.Reader, langs []job.LanguageConfig) (Sheet, error) {
	if len(langs) == 0 {
		return Sheet{}, ErrNoColumns
	}

	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var sheet Sheet
	line := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Sheet{}, fmt.Errorf("failed to read CSV: %w", err)
		}
		line++

		sentences, ok := pick(record, langs)
		if !ok {
			sheet.Dropped++
			continue
		}
		sheet.Rows = append(sheet.Rows, Row{Line: line, Sentences: sentences})
	}

	return sheet, nil
}

func pick(record []string, langs []job.LanguageConfig) ([]string, bool) {
	sentences := make([]string, len(langs))
	for i, lc := range langs {
		if lc.ColumnIndex >= len(record) {
			return nil, false
		}
		cell := strings.TrimSpace(record[lc.ColumnIndex])
		if cell == "" {
			return nil, false
		}
		if i == 0 && numericRe.MatchString(cell) {
			return nil, false
		}
		sentences[i] = CleanSentence(cell)
	}
	return sentences, true
}

// CleanSentence trims s and drops every comma or full stop that is directly
// followed by whitespace, so the engine does not pause mid phrase.
func CleanSentence(s string) string {
	return punctBeforeWS.ReplaceAllString(strings.TrimSpace(s), "$1")
}

// skipBOM drops a leading UTF-8 byte order mark as written by spreadsheet
// exports.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	return br
}
