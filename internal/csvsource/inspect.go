package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/dgnsrekt/lingocast/internal/job"
	"github.com/dgnsrekt/lingocast/internal/language"
)

// Column is the detected language of one CSV column.
type Column struct {
	Index      int
	Code       string // ISO 639-1, empty when undetermined
	Name       string
	Confidence float64
	Reliable   bool
	Sample     string
}

// Mismatch reports a configured column whose text looks like another language.
type Mismatch struct {
	ColumnIndex int
	Configured  string
	Detected    string
	Confidence  float64
}

func (m Mismatch) String() string {
	return fmt.Sprintf("column %d is configured as %q but reads like %q (%.0f%%)",
		m.ColumnIndex, m.Configured, m.Detected, m.Confidence*100)
}

// Inspect samples up to maxRows records and guesses the language of each
// column. Numeric and blank cells are ignored.
func Inspect(r io.Reader, maxRows int) ([]Column, error) {
	if maxRows <= 0 {
		maxRows = 50
	}

	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var texts [][]string
	var samples []string
	for n := 0; n < maxRows; n++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		for len(texts) < len(record) {
			texts = append(texts, nil)
			samples = append(samples, "")
		}
		for i, cell := range record {
			cell = strings.TrimSpace(cell)
			if cell == "" || numericRe.MatchString(cell) {
				continue
			}
			if samples[i] == "" {
				samples[i] = cell
			}
			texts[i] = append(texts[i], cell)
		}
	}

	cols := make([]Column, len(texts))
	for i := range texts {
		col := Column{Index: i, Sample: samples[i]}
		if len(texts[i]) > 0 {
			text := strings.Join(texts[i], ". ")
			info := whatlanggo.Detect(text)
			col.Code = info.Lang.Iso6391()
			col.Name = info.Lang.String()
			col.Confidence = info.Confidence
			col.Reliable = info.IsReliable()
		}
		cols[i] = col
	}
	return cols, nil
}

// CheckColumns compares detected column languages with a descriptor and
// returns the reliable disagreements. Configured codes are canonicalised,
// so "en-US" matches a column detected as "en".
func CheckColumns(cols []Column, langs []job.LanguageConfig) []Mismatch {
	var out []Mismatch
	for _, lc := range langs {
		if lc.ColumnIndex < 0 || lc.ColumnIndex >= len(cols) {
			continue
		}
		col := cols[lc.ColumnIndex]
		if col.Code == "" || !col.Reliable {
			continue
		}
		configured := language.Canonical(lc.LanguageCode)
		if col.Code != configured {
			out = append(out, Mismatch{
				ColumnIndex: lc.ColumnIndex,
				Configured:  configured,
				Detected:    col.Code,
				Confidence:  col.Confidence,
			})
		}
	}
	return out
}
