package deps

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dgnsrekt/lingocast/internal/proc"
)

func fakePath(t *testing.T, installed ...string) {
	t.Helper()
	orig := proc.LookPath
	t.Cleanup(func() { proc.LookPath = orig })
	proc.LookPath = func(name string) (string, error) {
		for _, n := range installed {
			if n == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestCheckTools(t *testing.T) {
	tests := []struct {
		name      string
		installed []string
		ok        bool
		missing   []string
	}{
		{"all present", []string{"ffmpeg", "ffprobe"}, true, nil},
		{"no ffprobe", []string{"ffmpeg"}, false, []string{"ffprobe"}},
		{"nothing", nil, false, []string{"ffmpeg", "ffprobe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakePath(t, tt.installed...)
			ok, missing := CheckTools(context.Background(), nil, AudioTools...)
			if ok != tt.ok {
				t.Errorf("ok = %v, want %v", ok, tt.ok)
			}
			if strings.Join(missing, ",") != strings.Join(tt.missing, ",") {
				t.Errorf("missing = %v, want %v", missing, tt.missing)
			}
		})
	}
}

func TestCheckRunsVersion(t *testing.T) {
	fakePath(t, "ffmpeg", "ffprobe")
	runner := proc.NewFake().Handle("ffmpeg", func(_ []byte, args []string, w io.Writer) error {
		if args[0] != "-version" {
			t.Errorf("unexpected args %v", args)
		}
		_, err := io.WriteString(w, "ffmpeg version 6.1\nbuilt with gcc\n")
		return err
	})

	r := FFmpeg.Check(context.Background(), runner)
	if !r.OK() {
		t.Fatalf("unexpected error: %v", r.Err)
	}
	if r.Version != "ffmpeg version 6.1" {
		t.Errorf("Version = %q", r.Version)
	}

	// ffprobe is in PATH but fails to execute
	if r := FFprobe.Check(context.Background(), runner); r.OK() {
		t.Error("expected ffprobe to fail without a handler")
	}
}

func TestRenderAndMessage(t *testing.T) {
	out := Render([]Result{
		{Name: "ffmpeg", Path: "/usr/bin/ffmpeg"},
		{Name: "gtts-cli", Err: errors.New("gtts-cli not found in PATH")},
	})
	for _, want := range []string{"ffmpeg", "gtts-cli not found", "pip install gTTS"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	msg := MissingMessage([]string{"ffmpeg", "ffprobe"})
	want := "FFmpeg tools are not available. Missing: ffmpeg, ffprobe. Please install ffmpeg and ffprobe."
	if msg != want {
		t.Errorf("MissingMessage = %q", msg)
	}
}
