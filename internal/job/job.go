// Package job defines the request and response shapes exchanged between the
// lingocast client and the audio service.
package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgnsrekt/lingocast/internal/language"
)

const (
	// DefaultPauseDuration is the pause between languages of a row, in ms.
	DefaultPauseDuration = 5000

	// DefaultSilenceDuration is the silence after the last language of a row, in ms.
	DefaultSilenceDuration = 1000

	// DefaultOutputFilename is used when a CSV job names no output.
	DefaultOutputFilename = "output.mp3"

	// MaxDuration bounds pause and silence durations, in ms.
	MaxDuration = 60000

	// OutputExt is the only extension the service writes.
	OutputExt = ".mp3"
)

// ErrInvalidRequest wraps every descriptor validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// LanguageConfig maps a CSV column to a spoken language.
type LanguageConfig struct {
	ColumnIndex  int    `json:"column_index"`
	LanguageCode string `json:"language_code"`
	Flag         string `json:"flag"`
}

// Request is the job descriptor sent alongside a CSV upload.
type Request struct {
	Languages       []LanguageConfig `json:"languages"`
	OutputFilename  string           `json:"output_filename"`
	PauseDuration   int              `json:"pause_duration"`
	SilenceDuration int              `json:"silence_duration"`
}

// Response is returned by the CSV generation endpoint.
type Response struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	OutputFile string `json:"output_file,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TextRequest asks for a single text to be spoken.
type TextRequest struct {
	Text           string `json:"text"`
	Language       string `json:"language"`
	OutputFilename string `json:"output_filename,omitempty"`
}

// TextResponse is returned by the text generation endpoint.
type TextResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	AudioFile string `json:"audio_file,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DefaultRequest returns the descriptor used when a client sends none:
// Italian in column 0, Russian in column 1.
func DefaultRequest() Request {
	return Request{
		Languages: []LanguageConfig{
			{ColumnIndex: 0, LanguageCode: "it", Flag: language.FlagFor("it")},
			{ColumnIndex: 1, LanguageCode: "ru", Flag: language.FlagFor("ru")},
		},
		OutputFilename:  DefaultOutputFilename,
		PauseDuration:   DefaultPauseDuration,
		SilenceDuration: DefaultSilenceDuration,
	}
}

// NewPairRequest builds the two language descriptor the form submits:
// first language in column 0, second in column 1.
func NewPairRequest(first, second, output string, pause, silence int) Request {
	return Request{
		Languages: []LanguageConfig{
			{ColumnIndex: 0, LanguageCode: first, Flag: language.FlagFor(first)},
			{ColumnIndex: 1, LanguageCode: second, Flag: language.FlagFor(second)},
		},
		OutputFilename:  output,
		PauseDuration:   pause,
		SilenceDuration: silence,
	}
}

// DecodeRequest parses a JSON descriptor. Fields left out take their
// defaults and an empty payload yields DefaultRequest.
func DecodeRequest(payload string) (Request, error) {
	req := DefaultRequest()
	if strings.TrimSpace(payload) == "" {
		return req, nil
	}

	var in struct {
		Languages       []LanguageConfig `json:"languages"`
		OutputFilename  *string          `json:"output_filename"`
		PauseDuration   *int             `json:"pause_duration"`
		SilenceDuration *int             `json:"silence_duration"`
	}
	if err := json.Unmarshal([]byte(payload), &in); err != nil {
		return Request{}, fmt.Errorf("%w: malformed descriptor: %v", ErrInvalidRequest, err)
	}

	if in.Languages != nil {
		req.Languages = in.Languages
	}
	if in.OutputFilename != nil {
		req.OutputFilename = *in.OutputFilename
	}
	if in.PauseDuration != nil {
		req.PauseDuration = *in.PauseDuration
	}
	if in.SilenceDuration != nil {
		req.SilenceDuration = *in.SilenceDuration
	}
	return req, nil
}

// Normalize canonicalises language codes, fills missing flags and settles
// the output filename. It must run before Validate.
func (r *Request) Normalize() error {
	for i := range r.Languages {
		lc := &r.Languages[i]
		if l, err := language.Lookup(lc.LanguageCode); err == nil {
			lc.LanguageCode = l.Code
			if lc.Flag == "" {
				lc.Flag = l.Flag()
			}
		}
	}

	if strings.TrimSpace(r.OutputFilename) == "" {
		r.OutputFilename = DefaultOutputFilename
	}
	name, err := NormalizeFilename(r.OutputFilename)
	if err != nil {
		return err
	}
	r.OutputFilename = name
	return nil
}

// Validate checks the descriptor invariants: at least one language, every
// code supported and used once, non negative columns, bounded durations and
// a bare .mp3 output name.
func (r Request) Validate() error {
	if len(r.Languages) == 0 {
		return fmt.Errorf("%w: at least one language is required", ErrInvalidRequest)
	}

	seen := make(map[string]bool, len(r.Languages))
	for _, lc := range r.Languages {
		l, err := language.Lookup(lc.LanguageCode)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if seen[l.Code] {
			return fmt.Errorf("%w: language %q listed more than once", ErrInvalidRequest, l.Code)
		}
		seen[l.Code] = true

		if lc.ColumnIndex < 0 {
			return fmt.Errorf("%w: column_index for %q must not be negative", ErrInvalidRequest, l.Code)
		}
	}

	if r.PauseDuration < 0 || r.PauseDuration > MaxDuration {
		return fmt.Errorf("%w: pause_duration must be between 0 and %d ms", ErrInvalidRequest, MaxDuration)
	}
	if r.SilenceDuration < 0 || r.SilenceDuration > MaxDuration {
		return fmt.Errorf("%w: silence_duration must be between 0 and %d ms", ErrInvalidRequest, MaxDuration)
	}

	if _, err := NormalizeFilename(r.OutputFilename); err != nil {
		return err
	}
	return nil
}

// Codes returns the language codes of the descriptor in order.
func (r Request) Codes() []string {
	codes := make([]string, len(r.Languages))
	for i, lc := range r.Languages {
		codes[i] = lc.LanguageCode
	}
	return codes
}

// Normalize fills the default language and output filename of a text job.
func (r *TextRequest) Normalize() error {
	if strings.TrimSpace(r.Language) == "" {
		r.Language = "it"
	}
	l, err := language.Lookup(r.Language)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	r.Language = l.Code

	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("%w: text must not be empty", ErrInvalidRequest)
	}

	if strings.TrimSpace(r.OutputFilename) == "" {
		r.OutputFilename = fmt.Sprintf("text_audio_%s%s", r.Language, OutputExt)
	}
	name, err := NormalizeFilename(r.OutputFilename)
	if err != nil {
		return err
	}
	r.OutputFilename = name
	return nil
}

// NormalizeFilename turns a user supplied output name into a bare .mp3 file
// name. A name without extension gets .mp3 appended; other extensions,
// directory components and dot names are rejected.
func NormalizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", fmt.Errorf("%w: output filename is empty", ErrInvalidRequest)
	case strings.ContainsAny(name, `/\`) || strings.Contains(name, ".."):
		return "", fmt.Errorf("%w: output filename %q must not contain path components", ErrInvalidRequest, name)
	case strings.ContainsRune(name, 0):
		return "", fmt.Errorf("%w: output filename contains a NUL byte", ErrInvalidRequest)
	}

	ext := filepath.Ext(name)
	switch {
	case ext == "":
		name += OutputExt
	case !strings.EqualFold(ext, OutputExt):
		return "", fmt.Errorf("%w: output filename must end in %s, got %q", ErrInvalidRequest, OutputExt, ext)
	default:
		name = strings.TrimSuffix(name, ext) + OutputExt
	}

	if strings.TrimSuffix(strings.ToLower(name), OutputExt) == "" {
		return "", fmt.Errorf("%w: output filename %q has no base name", ErrInvalidRequest, name)
	}
	return name, nil
}

// SuggestOutputName derives an output name from the CSV file name and the
// chosen languages, e.g. "phrases.csv" + it, ru -> "phrases_it-ru.mp3".
func SuggestOutputName(csvPath string, codes ...string) string {
	stem := strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
	stem = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '.' {
			return '_'
		}
		return r
	}, stem)
	if stem == "" {
		stem = "output"
	}
	if len(codes) > 0 {
		stem += "_" + strings.Join(codes, "-")
	}
	return stem + OutputExt
}
