package language

import (
	"errors"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		input    string
		wantCode string
		wantErr  bool
	}{
		{"it", "it", false},
		{"EN", "en", false},
		{"en-US", "en", false},
		{"pt_BR", "pt", false},
		{" zh ", "zh", false},
		{"", "", true},
		{"xx", "", true},
		{"klingon", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			l, err := Lookup(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupported) {
					t.Fatalf("Lookup(%q) error = %v, want ErrUnsupported", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%q) unexpected error: %v", tt.input, err)
			}
			if l.Code != tt.wantCode {
				t.Errorf("Lookup(%q) = %q, want %q", tt.input, l.Code, tt.wantCode)
			}
		})
	}
}

func TestTableHasTenLanguages(t *testing.T) {
	all := All()
	if len(all) != 10 {
		t.Fatalf("expected 10 languages, got %d", len(all))
	}

	names := Names()
	want := map[string]string{
		"it": "Italian", "ru": "Russian", "en": "English", "es": "Spanish",
		"fr": "French", "de": "German", "pt": "Portuguese", "ja": "Japanese",
		"ko": "Korean", "zh": "Chinese",
	}
	for code, name := range want {
		if names[code] != name {
			t.Errorf("Names()[%q] = %q, want %q", code, names[code], name)
		}
	}
}

func TestFlags(t *testing.T) {
	tests := map[string]string{
		"it": "🇮🇹",
		"ru": "🇷🇺",
		"en": "🇬🇧",
		"ja": "🇯🇵",
		"zh": "🇨🇳",
		"xx": "",
	}
	for code, want := range tests {
		if got := FlagFor(code); got != want {
			t.Errorf("FlagFor(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestValidatePair(t *testing.T) {
	tests := []struct {
		name          string
		first, second string
		want          error
	}{
		{"valid", "it", "ru", nil},
		{"missing first", "", "ru", ErrMissingLanguage},
		{"missing second", "it", "  ", ErrMissingLanguage},
		{"same", "en", "en", ErrSameLanguage},
		{"same after canonicalising", "en", "en-GB", ErrSameLanguage},
		{"unsupported", "it", "xx", ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePair(tt.first, tt.second)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidatePair(%q, %q) = %v, want %v", tt.first, tt.second, err, tt.want)
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	got := Suggest("itl")
	if len(got) == 0 || got[0] != "it" {
		t.Errorf("Suggest(itl) = %v, want it first", got)
	}

	if got := Suggest(""); got != nil {
		t.Errorf("Suggest(\"\") = %v, want nil", got)
	}
}

func TestNative(t *testing.T) {
	l, err := Lookup("it")
	if err != nil {
		t.Fatal(err)
	}
	if l.Native() == "" {
		t.Error("Native() returned empty name")
	}
}

func TestCanonical(t *testing.T) {
	tests := map[string]string{
		"it":    "it",
		"EN":    "en",
		"en-US": "en",
		"pt_BR": "pt",
		" ru ":  "ru",
		"XX":    "xx",
		"":      "",
	}
	for in, want := range tests {
		if got := Canonical(in); got != want {
			t.Errorf("Canonical(%q) = %q, want %q", in, got, want)
		}
	}
}
