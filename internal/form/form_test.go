package form

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgnsrekt/lingocast/internal/client"
	"github.com/dgnsrekt/lingocast/internal/job"
	"github.com/dgnsrekt/lingocast/internal/storage"
)

type fakeBackend struct {
	resp     job.Response
	err      error
	chunks   int
	size     int64
	requests []job.Request
	lists    int
	deleted  []string
}

func (f *fakeBackend) GenerateFromCSV(_ context.Context, _ string, req job.Request, onProgress client.Progress) (job.Response, error) {
	f.requests = append(f.requests, req)
	if onProgress != nil && f.chunks > 0 {
		for i := 1; i <= f.chunks; i++ {
			onProgress(f.size*int64(i)/int64(f.chunks), f.size)
		}
	}
	return f.resp, f.err
}

func (f *fakeBackend) ListFiles(context.Context) ([]storage.FileInfo, error) {
	f.lists++
	return []storage.FileInfo{{Filename: "phrases_it-ru.mp3", Size: 10, Created: 1}}, nil
}

func (f *fakeBackend) Delete(_ context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStatus(t *testing.T) {
	tests := []struct {
		status   Status
		active   bool
		finished bool
	}{
		{StatusIdle, false, false},
		{StatusUploading, true, false},
		{StatusProcessing, true, false},
		{StatusCompleted, false, true},
		{StatusError, false, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsActive(); got != tt.active {
			t.Errorf("%s.IsActive() = %v, want %v", tt.status, got, tt.active)
		}
		if got := tt.status.IsFinished(); got != tt.finished {
			t.Errorf("%s.IsFinished() = %v, want %v", tt.status, got, tt.finished)
		}
	}

	if Idle().HasProgress() {
		t.Error("idle state should have no progress")
	}
	if Idle().Message != MsgReady {
		t.Errorf("unexpected idle message %q", Idle().Message)
	}
}

func TestSelectFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		ok      bool
	}{
		{"csv", "phrases.csv", "Ciao,Привет\nGrazie,Спасибо\n", true},
		{"single column csv", "words.csv", "ciao\ngrazie\n", true},
		{"csv content with txt name", "phrases.txt", "a,b,c\n1,2,3\n4,5,6\n", false},
		{"upper case extension", "PHRASES.CSV", "a,b\n1,2\n", true},
		{"plain text", "notes.txt", "just some notes\n", false},
		{"png", "image.csv", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			u, st := SelectFile(path)
			if !tt.ok {
				if u != nil || st.Status != StatusError || st.Message != MsgInvalidFile {
					t.Fatalf("expected invalid file state, got %+v", st)
				}
				return
			}
			if u == nil {
				t.Fatalf("expected %s to be accepted, got %+v", tt.file, st)
			}
			if st.Status != StatusIdle || st.Message != "File selected: "+tt.file {
				t.Errorf("unexpected state %+v", st)
			}
			if u.Size != int64(len(tt.content)) {
				t.Errorf("size = %d, want %d", u.Size, len(tt.content))
			}
		})
	}

	if u, st := SelectFile(t.TempDir()); u != nil || st.Status != StatusError {
		t.Error("a directory must not be selectable")
	}
}

func TestSelectionRequest(t *testing.T) {
	sel := Selection{
		File:   &Upload{Path: "/tmp/phrases.csv", Name: "phrases.csv"},
		First:  "IT",
		Second: "ru-RU",
	}
	req := sel.Request()
	if got := strings.Join(req.Codes(), ","); got != "it,ru" {
		t.Errorf("codes = %q, want it,ru", got)
	}
	if req.OutputFilename != "phrases_it-ru.mp3" {
		t.Errorf("OutputFilename = %q", req.OutputFilename)
	}
	if req.PauseDuration != job.DefaultPauseDuration || req.SilenceDuration != job.DefaultSilenceDuration {
		t.Errorf("defaults not applied: %+v", req)
	}
}

func TestSubmitValidation(t *testing.T) {
	file := &Upload{Path: "phrases.csv", Name: "phrases.csv"}
	tests := []struct {
		name string
		sel  Selection
		want string
	}{
		{"no file", Selection{First: "it", Second: "ru"}, MsgNoFile},
		{"no languages", Selection{File: file}, MsgMissingLangs},
		{"one language", Selection{File: file, First: "it"}, MsgMissingLangs},
		{"same languages", Selection{File: file, First: "it", Second: "it"}, MsgSameLangs},
		{"same after canonicalising", Selection{File: file, First: "EN", Second: "en-GB"}, MsgSameLangs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{}
			var states []State
			_, err := NewSubmitter(b).Submit(context.Background(), tt.sel, func(s State) {
				states = append(states, s)
			})
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if len(states) != 1 || states[0].Status != StatusError || states[0].Message != tt.want {
				t.Errorf("states = %+v, want one error %q", states, tt.want)
			}
			if len(b.requests) != 0 || b.lists != 0 {
				t.Error("validation failure must not reach the backend")
			}
		})
	}
}

func TestSubmitSuccess(t *testing.T) {
	b := &fakeBackend{
		resp:   job.Response{Success: true, OutputFile: "phrases_it-ru.mp3"},
		chunks: 4,
		size:   400,
	}
	s := NewSubmitter(b)
	sel := Selection{File: &Upload{Path: "/tmp/phrases.csv", Name: "phrases.csv"}, First: "it", Second: "ru"}

	var states []State
	out, err := s.Submit(context.Background(), sel, func(st State) { states = append(states, st) })
	if err != nil {
		t.Fatal(err)
	}

	if b.lists != 1 {
		t.Errorf("ListFiles called %d times, want exactly 1", b.lists)
	}
	if len(out.Files) != 1 || out.Response.OutputFile != "phrases_it-ru.mp3" {
		t.Errorf("unexpected outcome %+v", out)
	}

	final := states[len(states)-1]
	if final.Status != StatusCompleted || final.Progress != 100 || final.Message != MsgCompleted {
		t.Errorf("final state = %+v", final)
	}
	if s.State() != final {
		t.Error("State() should return the final state")
	}

	prev := -1
	for _, st := range states {
		if !st.HasProgress() {
			t.Fatalf("state %+v has no percentage", st)
		}
		if st.Progress < prev {
			t.Errorf("progress went backwards: %d after %d", st.Progress, prev)
		}
		prev = st.Progress
	}
	if states[0].Status != StatusUploading || states[0].Progress != 0 {
		t.Errorf("first state = %+v", states[0])
	}

	req := b.requests[0]
	if req.OutputFilename != "phrases_it-ru.mp3" || req.PauseDuration != job.DefaultPauseDuration {
		t.Errorf("unexpected request %+v", req)
	}
	if req.Languages[0].Flag != "🇮🇹" || req.Languages[1].Flag != "🇷🇺" {
		t.Errorf("flags should follow the selected languages: %+v", req.Languages)
	}
}

func TestSubmitFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"api error", &client.APIError{StatusCode: 422, Message: "no valid sentences found in CSV"}, "no valid sentences found in CSV"},
		{"transport error", errors.New("connection refused"), "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{err: tt.err}
			sel := Selection{File: &Upload{Path: "p.csv"}, First: "fr", Second: "de"}

			var last State
			_, err := NewSubmitter(b).Submit(context.Background(), sel, func(s State) { last = s })
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
			if last.Status != StatusError || !strings.Contains(last.Message, tt.want) {
				t.Errorf("final state = %+v", last)
			}
			if b.lists != 0 {
				t.Error("failed submissions must not refresh the file list")
			}
		})
	}
}

func TestDelete(t *testing.T) {
	b := &fakeBackend{}
	files, err := NewSubmitter(b).Delete(context.Background(), "old.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if len(b.deleted) != 1 || b.deleted[0] != "old.mp3" {
		t.Errorf("deleted = %v", b.deleted)
	}
	if b.lists != 1 || len(files) != 1 {
		t.Errorf("expected one list refresh, got %d", b.lists)
	}
}
