// Package language holds the fixed table of languages lingocast can speak,
// along with lookup, flag and validation helpers shared by the server and the
// client.
package language

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Common language errors.
var (
	// ErrUnsupported is returned when a code is not in the language table.
	ErrUnsupported = errors.New("unsupported language")

	// ErrMissingLanguage is returned when one of a language pair is empty.
	ErrMissingLanguage = errors.New("both languages must be selected")

	// ErrSameLanguage is returned when both languages of a pair are equal.
	ErrSameLanguage = errors.New("languages must differ")
)

// Language describes one supported speech language.
type Language struct {
	Code   string // ISO 639-1 code understood by the TTS engine
	Name   string // English display name
	Region string // ISO 3166 region used to derive the flag
}

// table is ordered the way languages are offered to users.
var table = []Language{
	{Code: "it", Name: "Italian", Region: "IT"},
	{Code: "ru", Name: "Russian", Region: "RU"},
	{Code: "en", Name: "English", Region: "GB"},
	{Code: "es", Name: "Spanish", Region: "ES"},
	{Code: "fr", Name: "French", Region: "FR"},
	{Code: "de", Name: "German", Region: "DE"},
	{Code: "pt", Name: "Portuguese", Region: "PT"},
	{Code: "ja", Name: "Japanese", Region: "JP"},
	{Code: "ko", Name: "Korean", Region: "KR"},
	{Code: "zh", Name: "Chinese", Region: "CN"},
}

// All returns a copy of the language table in display order.
func All() []Language {
	out := make([]Language, len(table))
	copy(out, table)
	return out
}

// Codes returns the supported language codes in display order.
func Codes() []string {
	codes := make([]string, len(table))
	for i, l := range table {
		codes[i] = l.Code
	}
	return codes
}

// Names returns a code to English name map.
func Names() map[string]string {
	names := make(map[string]string, len(table))
	for _, l := range table {
		names[l.Code] = l.Name
	}
	return names
}

// Lookup resolves a code to a supported language. Any BCP 47 form of a
// supported language is accepted, so "EN", "en-US" and "pt_BR" resolve to
// their base language.
func Lookup(code string) (Language, error) {
	raw := strings.TrimSpace(code)
	if raw == "" {
		return Language{}, fmt.Errorf("%w: empty code", ErrUnsupported)
	}

	base := strings.ToLower(raw)
	if tag, err := xlanguage.Parse(strings.ReplaceAll(raw, "_", "-")); err == nil {
		b, _ := tag.Base()
		base = b.String()
	}

	for _, l := range table {
		if l.Code == base {
			return l, nil
		}
	}

	if s := Suggest(raw); len(s) > 0 {
		return Language{}, fmt.Errorf("%w: %q (did you mean %s?)", ErrUnsupported, raw, strings.Join(s, ", "))
	}
	return Language{}, fmt.Errorf("%w: %q", ErrUnsupported, raw)
}

// Canonical returns the table code for any accepted form of code, or the
// trimmed lower case input when it is not supported.
func Canonical(code string) string {
	if l, err := Lookup(code); err == nil {
		return l.Code
	}
	return strings.ToLower(strings.TrimSpace(code))
}

// IsSupported reports whether code resolves to a supported language.
func IsSupported(code string) bool {
	_, err := Lookup(code)
	return err == nil
}

// Suggest returns supported codes whose code or name fuzzily matches input,
// best match first.
func Suggest(input string) []string {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return nil
	}

	candidates := make([]string, 0, len(table)*2)
	for _, l := range table {
		candidates = append(candidates, l.Code, strings.ToLower(l.Name))
	}

	seen := make(map[string]bool)
	var out []string
	for _, m := range fuzzy.Find(input, candidates) {
		code := table[m.Index/2].Code
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

// Flag returns the regional indicator emoji for the language.
func (l Language) Flag() string {
	return regionFlag(l.Region)
}

// Native returns the language name written in the language itself.
func (l Language) Native() string {
	tag, err := xlanguage.Parse(l.Code)
	if err != nil {
		return l.Name
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return l.Name
}

// String implements fmt.Stringer.
func (l Language) String() string {
	return fmt.Sprintf("%s %s (%s)", l.Flag(), l.Name, l.Code)
}

// FlagFor returns the flag emoji for a language code, or an empty string
// when the code is not supported.
func FlagFor(code string) string {
	l, err := Lookup(code)
	if err != nil {
		return ""
	}
	return l.Flag()
}

// ValidatePair checks a first/second language selection. Both must be set
// and they must differ; an unsupported code is also rejected.
func ValidatePair(first, second string) error {
	if strings.TrimSpace(first) == "" || strings.TrimSpace(second) == "" {
		return ErrMissingLanguage
	}

	a, err := Lookup(first)
	if err != nil {
		return err
	}
	b, err := Lookup(second)
	if err != nil {
		return err
	}
	if a.Code == b.Code {
		return ErrSameLanguage
	}
	return nil
}

// regionFlag converts a two letter region code into its flag emoji.
func regionFlag(region string) string {
	if len(region) != 2 {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(region) {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return b.String()
}
