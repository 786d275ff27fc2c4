package job

import (
	"errors"
	"testing"
)

func TestDefaultRequest(t *testing.T) {
	req := DefaultRequest()

	if len(req.Languages) != 2 {
		t.Fatalf("expected 2 default languages, got %d", len(req.Languages))
	}
	if req.Languages[0].LanguageCode != "it" || req.Languages[0].ColumnIndex != 0 {
		t.Errorf("first default language = %+v, want it in column 0", req.Languages[0])
	}
	if req.Languages[1].LanguageCode != "ru" || req.Languages[1].ColumnIndex != 1 {
		t.Errorf("second default language = %+v, want ru in column 1", req.Languages[1])
	}
	if req.Languages[0].Flag != "🇮🇹" || req.Languages[1].Flag != "🇷🇺" {
		t.Errorf("unexpected default flags: %q %q", req.Languages[0].Flag, req.Languages[1].Flag)
	}
	if req.PauseDuration != 5000 || req.SilenceDuration != 1000 {
		t.Errorf("unexpected default durations: %d/%d", req.PauseDuration, req.SilenceDuration)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("default request should validate: %v", err)
	}
}

func TestDecodeRequest(t *testing.T) {
	t.Run("empty payload uses defaults", func(t *testing.T) {
		req, err := DecodeRequest("  ")
		if err != nil {
			t.Fatal(err)
		}
		if req.OutputFilename != DefaultOutputFilename {
			t.Errorf("OutputFilename = %q", req.OutputFilename)
		}
	})

	t.Run("partial payload keeps other defaults", func(t *testing.T) {
		req, err := DecodeRequest(`{"output_filename":"lesson.mp3","pause_duration":2000}`)
		if err != nil {
			t.Fatal(err)
		}
		if req.OutputFilename != "lesson.mp3" {
			t.Errorf("OutputFilename = %q", req.OutputFilename)
		}
		if req.PauseDuration != 2000 {
			t.Errorf("PauseDuration = %d", req.PauseDuration)
		}
		if req.SilenceDuration != DefaultSilenceDuration {
			t.Errorf("SilenceDuration = %d", req.SilenceDuration)
		}
		if len(req.Languages) != 2 {
			t.Errorf("Languages = %v", req.Languages)
		}
	})

	t.Run("explicit zero durations are kept", func(t *testing.T) {
		req, err := DecodeRequest(`{"pause_duration":0,"silence_duration":0}`)
		if err != nil {
			t.Fatal(err)
		}
		if req.PauseDuration != 0 || req.SilenceDuration != 0 {
			t.Errorf("durations = %d/%d, want 0/0", req.PauseDuration, req.SilenceDuration)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := DecodeRequest(`{"languages":`)
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", err)
		}
	})
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Request)
		wantErr bool
	}{
		{"default", func(*Request) {}, false},
		{"no languages", func(r *Request) { r.Languages = nil }, true},
		{"unsupported language", func(r *Request) { r.Languages[0].LanguageCode = "xx" }, true},
		{"duplicate language", func(r *Request) { r.Languages[1].LanguageCode = "it" }, true},
		{"negative column", func(r *Request) { r.Languages[1].ColumnIndex = -1 }, true},
		{"negative pause", func(r *Request) { r.PauseDuration = -1 }, true},
		{"silence too long", func(r *Request) { r.SilenceDuration = MaxDuration + 1 }, true},
		{"path in filename", func(r *Request) { r.OutputFilename = "../x.mp3" }, true},
		{"wrong extension", func(r *Request) { r.OutputFilename = "x.wav" }, true},
		{"three languages", func(r *Request) {
			r.Languages = append(r.Languages, LanguageConfig{ColumnIndex: 2, LanguageCode: "en"})
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := DefaultRequest()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRequestNormalize(t *testing.T) {
	req := Request{
		Languages: []LanguageConfig{
			{ColumnIndex: 2, LanguageCode: "EN"},
			{ColumnIndex: 0, LanguageCode: "de-DE"},
		},
		OutputFilename: "lesson",
	}
	if err := req.Normalize(); err != nil {
		t.Fatal(err)
	}

	if got := req.Codes(); got[0] != "en" || got[1] != "de" {
		t.Errorf("Codes() = %v, want [en de]", got)
	}
	if req.Languages[0].Flag != "🇬🇧" || req.Languages[1].Flag != "🇩🇪" {
		t.Errorf("flags not derived: %q %q", req.Languages[0].Flag, req.Languages[1].Flag)
	}
	if req.OutputFilename != "lesson.mp3" {
		t.Errorf("OutputFilename = %q, want lesson.mp3", req.OutputFilename)
	}
}

func TestNormalizeFilename(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"output.mp3", "output.mp3", false},
		{"lesson", "lesson.mp3", false},
		{"Lesson.MP3", "Lesson.mp3", false},
		{"  spaced name.mp3 ", "spaced name.mp3", false},
		{"", "", true},
		{".mp3", "", true},
		{"a/b.mp3", "", true},
		{`a\b.mp3`, "", true},
		{"..", "", true},
		{"track.wav", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeFilename(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeFilename(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextRequestNormalize(t *testing.T) {
	req := TextRequest{Text: "Ciao"}
	if err := req.Normalize(); err != nil {
		t.Fatal(err)
	}
	if req.Language != "it" {
		t.Errorf("Language = %q, want it", req.Language)
	}
	if req.OutputFilename != "text_audio_it.mp3" {
		t.Errorf("OutputFilename = %q, want text_audio_it.mp3", req.OutputFilename)
	}

	empty := TextRequest{Text: "   ", Language: "en"}
	if err := empty.Normalize(); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for blank text, got %v", err)
	}
}

func TestSuggestOutputName(t *testing.T) {
	if got := SuggestOutputName("/tmp/phrases.csv", "it", "ru"); got != "phrases_it-ru.mp3" {
		t.Errorf("SuggestOutputName = %q", got)
	}
	if got := SuggestOutputName("my.list.csv"); got != "my_list.mp3" {
		t.Errorf("SuggestOutputName = %q", got)
	}
}
