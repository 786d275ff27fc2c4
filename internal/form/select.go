package form

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dgnsrekt/lingocast/internal/job"
	"github.com/dgnsrekt/lingocast/internal/language"
)

// Validation errors. Their text is what the form displays.
var (
	ErrInvalidFile      = errors.New(MsgInvalidFile)
	ErrNoFile           = errors.New(MsgNoFile)
	ErrMissingLanguages = errors.New(MsgMissingLangs)
	ErrSameLanguages    = errors.New(MsgSameLangs)
)

// Upload is a selected file.
type Upload struct {
	Path string
	Name string
	Size int64
	MIME string
}

// SelectFile checks that path is a CSV file. The name must end in .csv,
// which the server requires, and the content must sniff as CSV or plain
// text. Single column files carry no separators to detect.
func SelectFile(path string) (*Upload, State) {
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return nil, Failed(MsgInvalidFile)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil || !isCSV(mt, path) {
		return nil, Failed(MsgInvalidFile)
	}

	u := &Upload{
		Path: path,
		Name: filepath.Base(path),
		Size: st.Size(),
		MIME: mt.String(),
	}
	return u, State{Status: StatusIdle, Message: msgSelectedPrefix + u.Name, Progress: NoProgress}
}

func isCSV(mt *mimetype.MIME, path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return false
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/csv") || m.Is("text/plain") {
			return true
		}
	}
	return false
}

// Selection is everything the user filled in.
type Selection struct {
	File   *Upload
	First  string
	Second string

	// Optional, zero values take the service defaults.
	OutputFilename string
	Pause          int
	Silence        int
}

// Validate checks the selection without touching the network.
func (s Selection) Validate() error {
	if s.File == nil {
		return ErrNoFile
	}
	err := language.ValidatePair(s.First, s.Second)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, language.ErrMissingLanguage):
		return ErrMissingLanguages
	case errors.Is(err, language.ErrSameLanguage):
		return ErrSameLanguages
	default:
		return fmt.Errorf("%s: %w", MsgMissingLangs, err)
	}
}

// Request builds the job descriptor for the selection.
func (s Selection) Request() job.Request {
	pause, silence := s.Pause, s.Silence
	if pause <= 0 {
		pause = job.DefaultPauseDuration
	}
	if silence <= 0 {
		silence = job.DefaultSilenceDuration
	}
	first, second := language.Canonical(s.First), language.Canonical(s.Second)
	out := s.OutputFilename
	if out == "" && s.File != nil {
		out = job.SuggestOutputName(s.File.Path, first, second)
	}
	return job.NewPairRequest(first, second, out, pause, silence)
}
